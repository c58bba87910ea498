package repo

import (
	"fleetguard/backend/app/models"

	"gorm.io/gorm"
)

type AgentRepository struct{ db *gorm.DB }

func NewAgentRepository(db *gorm.DB) *AgentRepository { return &AgentRepository{db: db} }

func (r *AgentRepository) Create(a *models.Agent) error {
	return r.db.Create(a).Error
}

func (r *AgentRepository) FindByAgentID(agentID string) (*models.Agent, error) {
	var a models.Agent
	if err := r.db.Where("agent_id = ?", agentID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) FindByToken(token string) (*models.Agent, error) {
	var a models.Agent
	if err := r.db.Where("token = ?", token).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) ListAll() ([]models.Agent, error) {
	var agents []models.Agent
	if err := r.db.Order("created_at ASC").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *AgentRepository) Save(a *models.Agent) error {
	return r.db.Save(a).Error
}

// RemoveWithCommands deletes the agent and every command it owns in one
// transaction. Both the UNINSTALL side effect and explicit admin removal go
// through here so there is never a window with commands but no agent.
func (r *AgentRepository) RemoveWithCommands(agentID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", agentID).Delete(&models.AgentCommand{}).Error; err != nil {
			return err
		}
		res := tx.Where("agent_id = ?", agentID).Delete(&models.Agent{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
