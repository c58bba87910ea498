package repo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"fleetguard/backend/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Agent{}, &models.AgentCommand{}))
	return gdb
}

func mkCommand(t *testing.T, r *CommandRepository, agentID, commandID string, status models.CommandStatus, createdAt time.Time) *models.AgentCommand {
	t.Helper()
	cmd := &models.AgentCommand{
		CommandID: commandID,
		AgentID:   agentID,
		Kind:      models.KindRunNow,
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, r.Create(cmd))
	return cmd
}

func TestOldestQueuedIsFIFO(t *testing.T) {
	r := NewCommandRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mkCommand(t, r, "a", "c-late", models.StatusQueued, base.Add(time.Minute))
	mkCommand(t, r, "a", "c-early", models.StatusQueued, base)

	got, err := r.OldestQueued("a")
	require.NoError(t, err)
	assert.Equal(t, "c-early", got.CommandID)
}

// Equal creation times fall back to insertion order.
func TestOldestQueuedTieBreaksByInsertionOrder(t *testing.T) {
	r := NewCommandRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mkCommand(t, r, "a", "c-first", models.StatusQueued, base)
	mkCommand(t, r, "a", "c-second", models.StatusQueued, base)

	got, err := r.OldestQueued("a")
	require.NoError(t, err)
	assert.Equal(t, "c-first", got.CommandID)
}

func TestOldestQueuedSkipsOtherStatusesAndAgents(t *testing.T) {
	r := NewCommandRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mkCommand(t, r, "a", "c-done", models.StatusDone, base)
	mkCommand(t, r, "a", "c-active", models.StatusInProgress, base)
	mkCommand(t, r, "b", "c-other", models.StatusQueued, base)
	want := mkCommand(t, r, "a", "c-queued", models.StatusQueued, base.Add(time.Hour))

	got, err := r.OldestQueued("a")
	require.NoError(t, err)
	assert.Equal(t, want.CommandID, got.CommandID)
}

func TestCloseInProgressLeavesTerminalAlone(t *testing.T) {
	r := NewCommandRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	active := mkCommand(t, r, "a", "c-active", models.StatusInProgress, base)
	done := mkCommand(t, r, "a", "c-done", models.StatusDone, base)
	queued := mkCommand(t, r, "a", "c-queued", models.StatusQueued, base)

	n, err := r.CloseInProgress("a", "agent reconnected before command completed")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := r.FindByCommandID("a", active.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)

	got, err = r.FindByCommandID("a", done.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)

	got, err = r.FindByCommandID("a", queued.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, got.Status)
}

func TestCountActive(t *testing.T) {
	r := NewCommandRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mkCommand(t, r, "a", "c1", models.StatusDone, base)
	mkCommand(t, r, "a", "c2", models.StatusError, base)
	n, err := r.CountActive("a")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	mkCommand(t, r, "a", "c3", models.StatusInProgress, base)
	n, err = r.CountActive("a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
