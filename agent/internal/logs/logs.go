package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const maxFetchBytes = 256 * 1024

type Entry struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	Modified  string `json:"modified"`
}

// List enumerates the agent's log files, newest first.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:      e.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified > out[j].Modified })
	return out, nil
}

// Read returns the tail of one named log file. The name must be a bare file
// name inside dir; path traversal is rejected.
func Read(dir, name string) (map[string]any, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid log name %q", name)
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := info.Size()
	offset := int64(0)
	if size > maxFetchBytes {
		offset = size - maxFetchBytes
	}
	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return map[string]any{
		"logName":   name,
		"sizeBytes": size,
		"truncated": offset > 0,
		"content":   string(buf),
	}, nil
}
