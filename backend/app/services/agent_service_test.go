package services

import (
	"context"
	"encoding/json"
	"testing"

	"fleetguard/backend/app/dto"
	"fleetguard/backend/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	got, err := env.agentSvc.Authenticate(agent.Token)
	require.NoError(t, err)
	assert.Equal(t, agent.AgentID, got.AgentID)

	_, err = env.agentSvc.Authenticate("bogus")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.agentSvc.Authenticate("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPollRejectsIdentityMismatch(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)
	other := env.registerAgent(t)

	_, err := env.agentSvc.Poll(context.Background(), agent, &dto.PollRequest{AgentID: other.AgentID})
	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestPollPersistsTelemetry(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	status := "OK"
	exitCode := 0
	duration := 12.5
	uptime := int64(86400)
	reboot := true
	lastRun := "2026-08-27T03:00:00Z"
	_, err := env.agentSvc.Poll(context.Background(), agent, &dto.PollRequest{
		AgentID:             agent.AgentID,
		Hostname:            "web-01",
		IP:                  "192.0.2.10",
		AgentVersion:        "1.4.2",
		LastRunAt:           &lastRun,
		LastStatus:          &status,
		LastExitCode:        &exitCode,
		LastDurationSeconds: &duration,
		UptimeSeconds:       &uptime,
		RebootRequired:      &reboot,
		Schedule:            &dto.SchedulePayload{Enabled: true, DailyTime: "04:30"},
	})
	require.NoError(t, err)

	got, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	assert.Equal(t, "web-01", got.Hostname)
	assert.Equal(t, "192.0.2.10", got.IP)
	assert.Equal(t, "1.4.2", got.AgentVersion)
	require.NotNil(t, got.LastStatus)
	assert.Equal(t, "OK", *got.LastStatus)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.ScheduleEnabled)
	assert.Equal(t, "04:30", got.ScheduleDailyTime)
	require.NotNil(t, got.RebootRequired)
	assert.True(t, *got.RebootRequired)
	require.NotNil(t, got.LastSeenAt)
}

// Fields absent from the report are written back as NULL, not merged.
func TestPollClearsUnreportedTelemetry(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	status := "OK"
	_, err := env.agentSvc.Poll(context.Background(), agent, &dto.PollRequest{
		AgentID:    agent.AgentID,
		LastStatus: &status,
	})
	require.NoError(t, err)

	agent, err = env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	_, err = env.agentSvc.Poll(context.Background(), agent, &dto.PollRequest{AgentID: agent.AgentID})
	require.NoError(t, err)

	got, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	assert.Nil(t, got.LastStatus)
}

func TestPollTelemetryOnlySkipsDispatch(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	queued, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	resp, err := env.agentSvc.Poll(context.Background(), agent, &dto.PollRequest{
		AgentID:       agent.AgentID,
		TelemetryOnly: true,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Command)
	// local web config still comes back
	assert.Equal(t, agent.LocalWebPort, resp.LocalWeb.Port)

	got, err := env.commands.FindByCommandID(agent.AgentID, queued.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, got.Status)
}

func TestPollAlwaysReturnsLocalWebConfig(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	require.NoError(t, env.agentSvc.SetLocalWeb(agent.AgentID, true, 8090))
	agent, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)

	resp := pollOnce(t, env, agent)
	assert.True(t, resp.LocalWeb.Enabled)
	assert.Equal(t, 8090, resp.LocalWeb.Port)
}

// Scenario: poll delivers a command, the agent re-polls without reporting.
// The stale IN_PROGRESS command is closed ERROR and no new command comes
// back since nothing is queued.
func TestPollReconcilesStaleInProgress(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	first := pollOnce(t, env, agent)
	require.NotNil(t, first.Command)

	second := pollOnce(t, env, agent)
	assert.Nil(t, second.Command)

	got, err := env.commands.FindByCommandID(agent.AgentID, cmd.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, "agent reconnected before command completed", got.LastError)
}

// Repolling with only terminal history must not mutate anything and must
// select the next queued command normally.
func TestPollReconciliationIdempotent(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	done, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)
	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID: agent.AgentID, CommandID: done.CommandID, Status: "DONE",
	}))

	next, err := env.queueSvc.Enqueue(agent.AgentID, models.KindFetchInfo, nil)
	require.NoError(t, err)

	resp := pollOnce(t, env, agent)
	require.NotNil(t, resp.Command)
	assert.Equal(t, next.CommandID, resp.Command.ID)

	got, err := env.commands.FindByCommandID(agent.AgentID, done.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
}

// Scenario: pending override 30s, no queued work -> poll returns a
// SET_POLL_INTERVAL command already IN_PROGRESS; a second poll returns
// nothing because the override was consumed.
func TestPollIntervalOverrideConsumedOnce(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	require.NoError(t, env.agentSvc.SetPollInterval(agent.AgentID, 30))
	agent, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)

	resp := pollOnce(t, env, agent)
	require.NotNil(t, resp.Command)
	assert.Equal(t, models.KindSetPollInterval, resp.Command.Type)

	var payload dto.SetPollIntervalPayload
	require.NoError(t, json.Unmarshal(resp.Command.Payload, &payload))
	assert.Equal(t, 30, payload.PollIntervalSeconds)

	got, err := env.commands.FindByCommandID(agent.AgentID, resp.Command.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)

	agent, err = env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	assert.Nil(t, agent.PendingPollInterval)

	second := pollOnce(t, env, agent)
	assert.Nil(t, second.Command)
}

// The synthesized command is subject to reconciliation like any other.
func TestPollIntervalOverrideReconciled(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	require.NoError(t, env.agentSvc.SetPollInterval(agent.AgentID, 45))
	agent, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)

	resp := pollOnce(t, env, agent)
	require.NotNil(t, resp.Command)

	pollOnce(t, env, agent)
	got, err := env.commands.FindByCommandID(agent.AgentID, resp.Command.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
}

func TestQueuedCommandPreferredOverOverride(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	queued, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	require.NoError(t, env.agentSvc.SetPollInterval(agent.AgentID, 30))
	agent, err = env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)

	resp := pollOnce(t, env, agent)
	require.NotNil(t, resp.Command)
	assert.Equal(t, queued.CommandID, resp.Command.ID)

	// override still pending for a later poll
	agent, err = env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	require.NotNil(t, agent.PendingPollInterval)
	assert.Equal(t, 30, *agent.PendingPollInterval)
}

// An override committed between authentication and the poll body must not be
// clobbered by the poll's telemetry save: the poll re-reads the row under the
// agent lock, so the override is delivered, not lost.
func TestPollDeliversOverrideSetAfterAuthentication(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	// The row as the HTTP layer holds it, loaded before the admin acts.
	stale, err := env.agentSvc.Authenticate(agent.Token)
	require.NoError(t, err)

	require.NoError(t, env.agentSvc.SetPollInterval(agent.AgentID, 30))

	resp := pollOnce(t, env, stale)
	require.NotNil(t, resp.Command)
	assert.Equal(t, models.KindSetPollInterval, resp.Command.Type)

	var payload dto.SetPollIntervalPayload
	require.NoError(t, json.Unmarshal(resp.Command.Payload, &payload))
	assert.Equal(t, 30, payload.PollIntervalSeconds)

	got, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	assert.Nil(t, got.PendingPollInterval)
}

// Same interleaving on the result path: a FETCH_INFO side effect saves the
// full row and must not undo a local web toggle set after authentication.
func TestReportResultKeepsLocalWebSetAfterAuthentication(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindFetchInfo, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	stale, err := env.agentSvc.Authenticate(agent.Token)
	require.NoError(t, err)

	require.NoError(t, env.agentSvc.SetLocalWeb(agent.AgentID, true, 8090))

	err = env.agentSvc.ReportResult(stale, &dto.ResultRequest{
		AgentID:   agent.AgentID,
		CommandID: cmd.CommandID,
		Status:    string(models.StatusDone),
		Result:    json.RawMessage(`{"hostname":"web-01"}`),
	})
	require.NoError(t, err)

	got, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	assert.True(t, got.LocalWebEnabled)
	assert.Equal(t, 8090, got.LocalWebPort)
	require.NotNil(t, got.Info)
	assert.JSONEq(t, `{"hostname":"web-01"}`, *got.Info)
}

// Scenario: enqueue -> poll -> result DONE -> terminal, slot free again.
func TestReportResultDone(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	result := json.RawMessage(`{"lastStatus":"OK","lastExitCode":0}`)
	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID:   agent.AgentID,
		CommandID: cmd.CommandID,
		Status:    "DONE",
		Result:    result,
	}))

	got, err := env.commands.FindByCommandID(agent.AgentID, cmd.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.JSONEq(t, string(result), got.Result)

	_, err = env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	assert.NoError(t, err)
}

func TestReportResultDefaultsToDone(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID: agent.AgentID, CommandID: cmd.CommandID,
	}))
	got, err := env.commands.FindByCommandID(agent.AgentID, cmd.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
}

func TestReportResultError(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindUpdateAgent, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	msg := "download failed"
	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID:      agent.AgentID,
		CommandID:    cmd.CommandID,
		Status:       "ERROR",
		ErrorMessage: &msg,
	}))

	got, err := env.commands.FindByCommandID(agent.AgentID, cmd.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, msg, got.LastError)
}

func TestReportResultRequiresCommandID(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	err := env.agentSvc.ReportResult(agent, &dto.ResultRequest{AgentID: agent.AgentID})
	assert.ErrorIs(t, err, ErrMissingField)
}

// A result for another agent's command must look like it does not exist.
func TestReportResultCrossAgentNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.registerAgent(t)
	b := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(a.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	err = env.agentSvc.ReportResult(b, &dto.ResultRequest{
		AgentID: b.AgentID, CommandID: cmd.CommandID, Status: "DONE",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

// A repeated report on a terminal command is acknowledged without mutation.
func TestReportResultTerminalIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)
	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID: agent.AgentID, CommandID: cmd.CommandID, Status: "DONE",
	}))

	err = env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID: agent.AgentID, CommandID: cmd.CommandID, Status: "ERROR",
	})
	require.NoError(t, err)

	got, err := env.commands.FindByCommandID(agent.AgentID, cmd.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
}

func TestFetchInfoCachesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindFetchInfo, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	info := json.RawMessage(`{"os":"debian","kernel":"6.1.0","packages":1542}`)
	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID: agent.AgentID, CommandID: cmd.CommandID, Status: "DONE", Result: info,
	}))

	got, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	require.NotNil(t, got.Info)
	assert.JSONEq(t, string(info), *got.Info)
	assert.NotNil(t, got.InfoUpdatedAt)
}

func TestUpdateAgentOverwritesVersion(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindUpdateAgent, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID:   agent.AgentID,
		CommandID: cmd.CommandID,
		Status:    "DONE",
		Result:    json.RawMessage(`{"version":"2.0.0"}`),
	}))

	got, err := env.agents.FindByAgentID(agent.AgentID)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.AgentVersion)
}

// Side effects only apply on success.
func TestErrorResultSkipsSideEffects(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindUninstall, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	msg := "permission denied"
	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID: agent.AgentID, CommandID: cmd.CommandID, Status: "ERROR", ErrorMessage: &msg,
	}))

	_, err = env.agents.FindByAgentID(agent.AgentID)
	assert.NoError(t, err)
}

// Scenario: successful UNINSTALL removes the agent and all of its commands;
// no command rows may survive the agent.
func TestUninstallRemovesAgentAndCommands(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindUninstall, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	require.NoError(t, env.agentSvc.ReportResult(agent, &dto.ResultRequest{
		AgentID:   agent.AgentID,
		CommandID: cmd.CommandID,
		Status:    "DONE",
		Result:    json.RawMessage(`{"uninstalled":true}`),
	}))

	_, err = env.agents.FindByAgentID(agent.AgentID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, env.db.Model(&models.AgentCommand{}).Where("agent_id = ?", agent.AgentID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	_, err = env.agentSvc.Authenticate(agent.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestExplicitRemove(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	_, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	require.NoError(t, env.agentSvc.Remove(agent.AgentID))
	assert.ErrorIs(t, env.agentSvc.Remove(agent.AgentID), ErrNotFound)

	var count int64
	require.NoError(t, env.db.Model(&models.AgentCommand{}).Where("agent_id = ?", agent.AgentID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSetLocalWebValidatesPort(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	assert.ErrorIs(t, env.agentSvc.SetLocalWeb(agent.AgentID, true, 9999), ErrPortNotAllowed)
	assert.NoError(t, env.agentSvc.SetLocalWeb(agent.AgentID, true, 8180))
}

func TestSetPollIntervalValidatesSeconds(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	assert.ErrorIs(t, env.agentSvc.SetPollInterval(agent.AgentID, 0), ErrMissingField)
	assert.ErrorIs(t, env.agentSvc.SetPollInterval("missing", 30), ErrNotFound)
}
