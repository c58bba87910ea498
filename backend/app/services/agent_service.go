package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetguard/backend/app/dto"
	"fleetguard/backend/app/events"
	"fleetguard/backend/app/models"
	"fleetguard/backend/app/repo"
	"fleetguard/backend/global"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const reconnectMessage = "agent reconnected before command completed"

// Ports the local web interface may bind on a managed host.
var allowedLocalWebPorts = []int{8080, 8090, 8180, 8190}

// AgentService owns the agent-facing protocol: poll handling (telemetry
// upsert, reconciliation, dispatch) and result handling (terminal status +
// side effects), plus agent registration and removal for the admin layer.
type AgentService struct {
	agents   *repo.AgentRepository
	commands *repo.CommandRepository
	locks    *AgentLocks
	hub      *events.Hub
	presence *Presence
}

func NewAgentService(agents *repo.AgentRepository, commands *repo.CommandRepository, locks *AgentLocks, hub *events.Hub, presence *Presence) *AgentService {
	return &AgentService{agents: agents, commands: commands, locks: locks, hub: hub, presence: presence}
}

// Register creates a new agent with a fresh id and API token. The token is
// only ever returned here.
func (s *AgentService) Register(displayName string) (*models.Agent, error) {
	a := &models.Agent{
		AgentID:           uuid.NewString(),
		Token:             uuid.NewString(),
		DisplayName:       displayName,
		ScheduleDailyTime: "03:00",
		LocalWebPort:      allowedLocalWebPorts[0],
	}
	if err := s.agents.Create(a); err != nil {
		return nil, err
	}
	s.hub.Emit(events.AgentRegistered, events.Payload{AgentID: a.AgentID})
	return a, nil
}

// Authenticate resolves the bearer credential to an agent.
func (s *AgentService) Authenticate(token string) (*models.Agent, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	a, err := s.agents.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return a, nil
}

// Poll processes one agent check-in: persist the telemetry snapshot, close
// any stale IN_PROGRESS command, then hand out at most one command. The
// whole sequence runs under the agent's lock.
func (s *AgentService) Poll(ctx context.Context, agent *models.Agent, req *dto.PollRequest) (*dto.PollResponse, error) {
	if req.AgentID != agent.AgentID {
		return nil, ErrIdentityMismatch
	}

	unlock := s.locks.Lock(agent.AgentID)
	defer unlock()

	// Re-read under the lock: the row loaded during authentication may be
	// stale against an admin action (override, local web toggle) committed
	// since, and the telemetry write below is a full-row save.
	agent, err := s.find(agent.AgentID)
	if err != nil {
		return nil, err
	}

	s.applyTelemetry(agent, req)
	if err := s.agents.Save(agent); err != nil {
		return nil, err
	}
	s.presence.Mark(ctx, agent.AgentID)

	resp := &dto.PollResponse{
		LocalWeb: dto.LocalWebConfig{Enabled: agent.LocalWebEnabled, Port: agent.LocalWebPort},
	}
	if req.TelemetryOnly {
		return resp, nil
	}

	// Reconciliation: the agent is back, so any execution context holding
	// an IN_PROGRESS command is gone. Close before selecting new work.
	closed, err := s.commands.CloseInProgress(agent.AgentID, reconnectMessage)
	if err != nil {
		return nil, err
	}
	if closed > 0 {
		global.Logger.Warn().
			Str("agent_id", agent.AgentID).
			Int64("commands", closed).
			Msg("reconciled stale in-progress command")
		s.hub.Emit(events.CommandCompleted, events.Payload{
			AgentID:    agent.AgentID,
			Status:     string(models.StatusError),
			Reconciled: true,
		})
	}

	cmd, err := s.commands.OldestQueued(agent.AgentID)
	switch {
	case err == nil:
		if err := s.commands.MarkInProgress(cmd.ID); err != nil {
			return nil, err
		}
		cmd.Status = models.StatusInProgress
	case errors.Is(err, gorm.ErrRecordNotFound):
		cmd, err = s.consumePollIntervalOverride(agent)
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			return resp, nil
		}
	default:
		return nil, err
	}

	s.hub.Emit(events.CommandDispatched, events.Payload{
		AgentID:   agent.AgentID,
		CommandID: cmd.CommandID,
		Kind:      string(cmd.Kind),
		Status:    string(models.StatusInProgress),
	})
	resp.Command = &dto.CommandDescriptor{ID: cmd.CommandID, Type: cmd.Kind}
	if cmd.Payload != "" {
		resp.Command.Payload = json.RawMessage(cmd.Payload)
	}
	return resp, nil
}

// consumePollIntervalOverride synthesizes a SET_POLL_INTERVAL command when a
// pending override is stored. It is inserted directly IN_PROGRESS (delivered
// in the same step) and the override is cleared so it is issued at most once.
func (s *AgentService) consumePollIntervalOverride(agent *models.Agent) (*models.AgentCommand, error) {
	if agent.PendingPollInterval == nil {
		return nil, nil
	}
	payload, _ := json.Marshal(dto.SetPollIntervalPayload{PollIntervalSeconds: *agent.PendingPollInterval})
	cmd := &models.AgentCommand{
		CommandID: uuid.NewString(),
		AgentID:   agent.AgentID,
		Kind:      models.KindSetPollInterval,
		Payload:   string(payload),
		Status:    models.StatusInProgress,
	}
	if err := s.commands.Create(cmd); err != nil {
		return nil, err
	}
	agent.PendingPollInterval = nil
	if err := s.agents.Save(agent); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (s *AgentService) applyTelemetry(agent *models.Agent, req *dto.PollRequest) {
	now := time.Now()
	agent.LastSeenAt = &now
	agent.Hostname = req.Hostname
	agent.IP = req.IP
	agent.AgentVersion = req.AgentVersion
	if req.DisplayName != "" {
		agent.DisplayName = req.DisplayName
	}
	agent.LastRunAt = parseTimePtr(req.LastRunAt)
	agent.LastStatus = req.LastStatus
	agent.LastExitCode = req.LastExitCode
	agent.LastDurationSeconds = req.LastDurationSeconds
	agent.UptimeSeconds = req.UptimeSeconds
	agent.RebootRequired = req.RebootRequired
	if req.Schedule != nil {
		agent.ScheduleEnabled = req.Schedule.Enabled
		if req.Schedule.DailyTime != "" {
			agent.ScheduleDailyTime = req.Schedule.DailyTime
		}
	}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

// ReportResult finalizes a command and applies the side effects its kind
// implies. Reporting on an already-terminal command is acknowledged without
// mutation so agent retries after a dropped response stay idempotent.
func (s *AgentService) ReportResult(agent *models.Agent, req *dto.ResultRequest) error {
	if req.AgentID != agent.AgentID {
		return ErrIdentityMismatch
	}
	if req.CommandID == "" {
		return fmt.Errorf("%w: commandId", ErrMissingField)
	}
	status := models.CommandStatus(req.Status)
	if req.Status == "" {
		status = models.StatusDone
	}
	if status != models.StatusDone && status != models.StatusError {
		return fmt.Errorf("%w: status", ErrMissingField)
	}

	unlock := s.locks.Lock(agent.AgentID)
	defer unlock()

	// Same staleness rule as Poll: side effects save the full agent row.
	agent, err := s.find(agent.AgentID)
	if err != nil {
		return err
	}

	cmd, err := s.commands.FindByCommandID(agent.AgentID, req.CommandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if cmd.Terminal() {
		return nil
	}

	result := ""
	if len(req.Result) > 0 {
		result = string(req.Result)
	}
	errMsg := ""
	if req.ErrorMessage != nil {
		errMsg = *req.ErrorMessage
	}
	if err := s.commands.SetTerminal(cmd.ID, status, result, errMsg); err != nil {
		return err
	}

	if status != models.StatusError {
		if err := s.applySideEffects(agent, cmd, req.Result); err != nil {
			return err
		}
	}
	s.hub.Emit(events.CommandCompleted, events.Payload{
		AgentID:   agent.AgentID,
		CommandID: cmd.CommandID,
		Kind:      string(cmd.Kind),
		Status:    string(status),
	})
	return nil
}

// applySideEffects mutates fleet state for the kinds that carry one. The
// switch is exhaustive over the closed kind set; kinds without a side effect
// surface their result opaquely through the read interfaces.
func (s *AgentService) applySideEffects(agent *models.Agent, cmd *models.AgentCommand, result json.RawMessage) error {
	switch cmd.Kind {
	case models.KindFetchInfo:
		if len(result) == 0 {
			return nil
		}
		now := time.Now()
		info := string(result)
		agent.Info = &info
		agent.InfoUpdatedAt = &now
		return s.agents.Save(agent)
	case models.KindUpdateAgent:
		var payload struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(result, &payload); err != nil || payload.Version == "" {
			return nil
		}
		agent.AgentVersion = payload.Version
		return s.agents.Save(agent)
	case models.KindUninstall:
		if err := s.agents.RemoveWithCommands(agent.AgentID); err != nil {
			return err
		}
		s.hub.Emit(events.AgentRemoved, events.Payload{AgentID: agent.AgentID})
		return nil
	case models.KindRunNow, models.KindSetSchedule, models.KindListLogs,
		models.KindFetchLog, models.KindSetPollInterval:
		return nil
	}
	return nil
}

// Remove deletes an agent and its commands on explicit admin action.
func (s *AgentService) Remove(agentID string) error {
	unlock := s.locks.Lock(agentID)
	defer unlock()
	if err := s.agents.RemoveWithCommands(agentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.hub.Emit(events.AgentRemoved, events.Payload{AgentID: agentID})
	return nil
}

// SetPollInterval stores a pending override; the next poll consumes it.
func (s *AgentService) SetPollInterval(agentID string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: pollIntervalSeconds", ErrMissingField)
	}
	unlock := s.locks.Lock(agentID)
	defer unlock()
	agent, err := s.find(agentID)
	if err != nil {
		return err
	}
	agent.PendingPollInterval = &seconds
	return s.agents.Save(agent)
}

// SetLocalWeb updates the desired local web toggle, returned on every poll.
func (s *AgentService) SetLocalWeb(agentID string, enabled bool, port int) error {
	ok := false
	for _, p := range allowedLocalWebPorts {
		if p == port {
			ok = true
			break
		}
	}
	if !ok {
		return ErrPortNotAllowed
	}
	unlock := s.locks.Lock(agentID)
	defer unlock()
	agent, err := s.find(agentID)
	if err != nil {
		return err
	}
	agent.LocalWebEnabled = enabled
	agent.LocalWebPort = port
	return s.agents.Save(agent)
}

func (s *AgentService) find(agentID string) (*models.Agent, error) {
	agent, err := s.agents.FindByAgentID(agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return agent, nil
}

// Get returns the agent for admin display.
func (s *AgentService) Get(agentID string) (*models.Agent, error) {
	return s.find(agentID)
}

func (s *AgentService) List() ([]models.Agent, error) {
	return s.agents.ListAll()
}

// View renders an agent row for the admin read interface.
func (s *AgentService) View(ctx context.Context, a *models.Agent) dto.AgentView {
	v := dto.AgentView{
		AgentID:             a.AgentID,
		DisplayName:         a.DisplayName,
		Hostname:            a.Hostname,
		IP:                  a.IP,
		AgentVersion:        a.AgentVersion,
		LastSeenAt:          formatTimePtr(a.LastSeenAt),
		LastRunAt:           formatTimePtr(a.LastRunAt),
		LastStatus:          a.LastStatus,
		LastExitCode:        a.LastExitCode,
		LastDurationSeconds: a.LastDurationSeconds,
		UptimeSeconds:       a.UptimeSeconds,
		RebootRequired:      a.RebootRequired,
		Schedule:            dto.SchedulePayload{Enabled: a.ScheduleEnabled, DailyTime: a.ScheduleDailyTime},
		LocalWeb:            dto.LocalWebConfig{Enabled: a.LocalWebEnabled, Port: a.LocalWebPort},
		PendingPollInterval: a.PendingPollInterval,
		InfoUpdatedAt:       formatTimePtr(a.InfoUpdatedAt),
		Online:              s.presence.Online(ctx, a),
	}
	if a.Info != nil {
		raw := json.RawMessage(*a.Info)
		v.Info = &raw
	}
	return v
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
