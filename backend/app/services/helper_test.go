package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"fleetguard/backend/app/dto"
	"fleetguard/backend/app/events"
	"fleetguard/backend/app/models"
	"fleetguard/backend/app/repo"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	agents   *repo.AgentRepository
	commands *repo.CommandRepository
	hub      *events.Hub
	agentSvc *AgentService
	queueSvc *QueueService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// sqlite: a single connection avoids table-lock errors under the
	// concurrent enqueue tests
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Agent{}, &models.AgentCommand{}))

	agents := repo.NewAgentRepository(gdb)
	commands := repo.NewCommandRepository(gdb)
	locks := NewAgentLocks()
	hub := events.NewHub()
	presence := NewPresence(nil, 0)

	return &testEnv{
		db:       gdb,
		agents:   agents,
		commands: commands,
		hub:      hub,
		agentSvc: NewAgentService(agents, commands, locks, hub, presence),
		queueSvc: NewQueueService(agents, commands, locks, hub),
	}
}

func (e *testEnv) registerAgent(t *testing.T) *models.Agent {
	t.Helper()
	a, err := e.agentSvc.Register("test host")
	require.NoError(t, err)
	return a
}

func pollOnce(t *testing.T, env *testEnv, agent *models.Agent) *dto.PollResponse {
	t.Helper()
	resp, err := env.agentSvc.Poll(context.Background(), agent, &dto.PollRequest{
		AgentID:  agent.AgentID,
		Hostname: "host-1",
		IP:       "10.0.0.5",
	})
	require.NoError(t, err)
	return resp
}
