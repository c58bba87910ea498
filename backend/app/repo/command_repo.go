package repo

import (
	"time"

	"fleetguard/backend/app/models"

	"gorm.io/gorm"
)

type CommandRepository struct{ db *gorm.DB }

func NewCommandRepository(db *gorm.DB) *CommandRepository { return &CommandRepository{db: db} }

func (r *CommandRepository) Create(cmd *models.AgentCommand) error {
	return r.db.Create(cmd).Error
}

// CountActive returns how many non-terminal commands the agent owns.
// Single-flight admission checks this under the per-agent lock.
func (r *CommandRepository) CountActive(agentID string) (int64, error) {
	var n int64
	err := r.db.Model(&models.AgentCommand{}).
		Where("agent_id = ? AND status IN ?", agentID,
			[]models.CommandStatus{models.StatusQueued, models.StatusInProgress}).
		Count(&n).Error
	return n, err
}

// OldestQueued selects the next command for dispatch: FIFO by creation time,
// insertion order breaking ties.
func (r *CommandRepository) OldestQueued(agentID string) (*models.AgentCommand, error) {
	var cmd models.AgentCommand
	err := r.db.Where("agent_id = ? AND status = ?", agentID, models.StatusQueued).
		Order("created_at ASC, id ASC").
		First(&cmd).Error
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *CommandRepository) MarkInProgress(id uint) error {
	return r.db.Model(&models.AgentCommand{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.StatusInProgress,
			"updated_at": time.Now(),
		}).Error
}

// CloseInProgress closes every IN_PROGRESS command for the agent with ERROR.
// Returns the number of rows touched; terminal rows are never mutated.
func (r *CommandRepository) CloseInProgress(agentID, message string) (int64, error) {
	res := r.db.Model(&models.AgentCommand{}).
		Where("agent_id = ? AND status = ?", agentID, models.StatusInProgress).
		Updates(map[string]any{
			"status":     models.StatusError,
			"last_error": message,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *CommandRepository) FindByCommandID(agentID, commandID string) (*models.AgentCommand, error) {
	var cmd models.AgentCommand
	err := r.db.Where("agent_id = ? AND command_id = ?", agentID, commandID).
		First(&cmd).Error
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *CommandRepository) SetTerminal(id uint, status models.CommandStatus, result, lastError string) error {
	return r.db.Model(&models.AgentCommand{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"result":     result,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}

func (r *CommandRepository) ListByAgent(agentID string) ([]models.AgentCommand, error) {
	var cmds []models.AgentCommand
	err := r.db.Where("agent_id = ?", agentID).
		Order("created_at ASC, id ASC").
		Find(&cmds).Error
	if err != nil {
		return nil, err
	}
	return cmds, nil
}
