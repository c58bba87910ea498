package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSkipsNonLogFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.log"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.log"), 0o755))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "agent.log", entries[0].Name)
	assert.Equal(t, int64(1), entries[0].SizeBytes)
}

func TestListMissingDir(t *testing.T) {
	entries, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadTailsLargeFile(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("x", maxFetchBytes+100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.log"), []byte(content), 0o644))

	out, err := Read(dir, "big.log")
	require.NoError(t, err)
	assert.Equal(t, true, out["truncated"])
	assert.Len(t, out["content"], maxFetchBytes)
	assert.Equal(t, int64(maxFetchBytes+100), out["sizeBytes"])
}

func TestReadRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(dir, "../etc/passwd")
	assert.Error(t, err)
	_, err = Read(dir, "")
	assert.Error(t, err)
}
