package services

import (
	"sync"
	"testing"

	"fleetguard/backend/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueCreatesQueuedCommand(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, cmd.Status)
	assert.Equal(t, models.KindRunNow, cmd.Kind)
	assert.NotEmpty(t, cmd.CommandID)
}

func TestEnqueueRejectsUnknownAgent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.queueSvc.Enqueue("no-such-agent", models.KindRunNow, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnqueueRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	_, err := env.queueSvc.Enqueue(agent.AgentID, models.CommandKind("REBOOT"), nil)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestEnqueueSingleFlightWhileQueued(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	_, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	_, err = env.queueSvc.Enqueue(agent.AgentID, models.KindFetchInfo, nil)
	assert.ErrorIs(t, err, ErrAlreadyPending)
}

// Scenario: enqueue -> poll delivers IN_PROGRESS -> a second enqueue is
// still rejected; the slot is occupied until the command goes terminal.
func TestEnqueueSingleFlightWhileInProgress(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	resp := pollOnce(t, env, agent)
	require.NotNil(t, resp.Command)
	assert.Equal(t, cmd.CommandID, resp.Command.ID)

	_, err = env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	assert.ErrorIs(t, err, ErrAlreadyPending)
}

func TestEnqueueConcurrentSameAgentAdmitsExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyPending)
		}
	}
	assert.Equal(t, 1, admitted)

	active, err := env.commands.CountActive(agent.AgentID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, active)
}

func TestEnqueueDifferentAgentsIndependent(t *testing.T) {
	env := newTestEnv(t)
	a := env.registerAgent(t)
	b := env.registerAgent(t)

	_, err := env.queueSvc.Enqueue(a.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	_, err = env.queueSvc.Enqueue(b.AgentID, models.KindRunNow, nil)
	assert.NoError(t, err)
}

func TestCancelQueuedCommand(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	queued, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)

	cancelled, err := env.queueSvc.Cancel(agent.AgentID)
	require.NoError(t, err)
	assert.Equal(t, queued.CommandID, cancelled.CommandID)
	assert.Equal(t, models.StatusError, cancelled.Status)
	assert.Equal(t, "cancelled by admin", cancelled.LastError)

	// slot is free again
	_, err = env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	assert.NoError(t, err)
}

func TestCancelWithNothingQueued(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	_, err := env.queueSvc.Cancel(agent.AgentID)
	assert.ErrorIs(t, err, ErrNoQueuedCommand)
}

// An IN_PROGRESS command cannot be cancelled: the agent already holds it.
func TestCancelDoesNotTouchInProgress(t *testing.T) {
	env := newTestEnv(t)
	agent := env.registerAgent(t)

	cmd, err := env.queueSvc.Enqueue(agent.AgentID, models.KindRunNow, nil)
	require.NoError(t, err)
	pollOnce(t, env, agent)

	_, err = env.queueSvc.Cancel(agent.AgentID)
	assert.ErrorIs(t, err, ErrNoQueuedCommand)

	got, err := env.commands.FindByCommandID(agent.AgentID, cmd.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}
