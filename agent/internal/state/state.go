package state

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// State is the last-run record reported on every poll. Written atomically:
// tmp file then rename.
type State struct {
	LastRunAt           *string  `json:"lastRunAt,omitempty"`
	LastStatus          *string  `json:"lastStatus,omitempty"`
	LastExitCode        *int     `json:"lastExitCode,omitempty"`
	LastDurationSeconds *float64 `json:"lastDurationSeconds,omitempty"`
	LastPoll            *string  `json:"lastPoll,omitempty"`
}

func Read(path string) State {
	var s State
	b, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	_ = json.Unmarshal(b, &s)
	return s
}

func Write(path string, s State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
