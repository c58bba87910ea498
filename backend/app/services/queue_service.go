package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"fleetguard/backend/app/events"
	"fleetguard/backend/app/models"
	"fleetguard/backend/app/repo"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const cancelledByAdmin = "cancelled by admin"

// QueueService is the admission side of the command queue: it is the only
// writer of QUEUED status. Dispatch and completion live in AgentService.
type QueueService struct {
	agents   *repo.AgentRepository
	commands *repo.CommandRepository
	locks    *AgentLocks
	hub      *events.Hub
}

func NewQueueService(agents *repo.AgentRepository, commands *repo.CommandRepository, locks *AgentLocks, hub *events.Hub) *QueueService {
	return &QueueService{agents: agents, commands: commands, locks: locks, hub: hub}
}

// Enqueue admits one command for the agent. Rejected with ErrAlreadyPending
// while any non-terminal command exists; the check and the insert run under
// the agent's lock so concurrent admin actions cannot double-enqueue.
func (s *QueueService) Enqueue(agentID string, kind models.CommandKind, payload json.RawMessage) (*models.AgentCommand, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agentId", ErrMissingField)
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if _, err := s.agents.FindByAgentID(agentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	unlock := s.locks.Lock(agentID)
	defer unlock()

	active, err := s.commands.CountActive(agentID)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrAlreadyPending
	}

	cmd := &models.AgentCommand{
		CommandID: uuid.NewString(),
		AgentID:   agentID,
		Kind:      kind,
		Payload:   string(payload),
		Status:    models.StatusQueued,
	}
	if err := s.commands.Create(cmd); err != nil {
		return nil, err
	}
	s.hub.Emit(events.CommandEnqueued, events.Payload{
		AgentID:   agentID,
		CommandID: cmd.CommandID,
		Kind:      string(kind),
		Status:    string(models.StatusQueued),
	})
	return cmd, nil
}

// Cancel closes the queued command with ERROR. Only QUEUED may be cancelled;
// an IN_PROGRESS command is already on the agent and can only be closed by a
// result report or by reconciliation.
func (s *QueueService) Cancel(agentID string) (*models.AgentCommand, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agentId", ErrMissingField)
	}

	unlock := s.locks.Lock(agentID)
	defer unlock()

	cmd, err := s.commands.OldestQueued(agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoQueuedCommand
		}
		return nil, err
	}
	if err := s.commands.SetTerminal(cmd.ID, models.StatusError, "", cancelledByAdmin); err != nil {
		return nil, err
	}
	cmd.Status = models.StatusError
	cmd.LastError = cancelledByAdmin
	s.hub.Emit(events.CommandCancelled, events.Payload{
		AgentID:   agentID,
		CommandID: cmd.CommandID,
		Kind:      string(cmd.Kind),
		Status:    string(models.StatusError),
	})
	return cmd, nil
}

// Queue lists the agent's full command history, oldest first.
func (s *QueueService) Queue(agentID string) ([]models.AgentCommand, error) {
	return s.commands.ListByAgent(agentID)
}
