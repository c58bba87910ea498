// Package localweb runs the optional on-host status page. The coordinator
// toggles it through the localWeb block of every poll response.
package localweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fleetguard/agent/internal/config"
	"fleetguard/agent/internal/logger"
	"fleetguard/agent/internal/state"
	"fleetguard/agent/internal/sysinfo"
)

var allowedPorts = map[int]bool{8080: true, 8090: true, 8180: true, 8190: true}

type Manager struct {
	server *http.Server
	port   int
}

func NewManager() *Manager { return &Manager{} }

// Apply reconciles the running server with the desired config. Called after
// every poll; it is a no-op when nothing changed.
func (m *Manager) Apply(enabled bool, port int) {
	if !enabled {
		m.stop()
		return
	}
	if !allowedPorts[port] {
		logger.Errorf("Local web port %d not allowed, keeping current state", port)
		return
	}
	if m.server != nil && m.port == port {
		return
	}
	m.stop()
	m.start(port)
}

func (m *Manager) start(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		cfg := config.Get()
		st := state.Read(cfg.StatePath)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"agentId":      cfg.AgentID,
			"hostname":     sysinfo.Hostname(),
			"agentVersion": config.Version(),
			"lastRunAt":    st.LastRunAt,
			"lastStatus":   st.LastStatus,
			"lastPoll":     st.LastPoll,
			"schedule": map[string]any{
				"enabled":   cfg.Schedule.Enabled,
				"dailyTime": cfg.Schedule.DailyTime,
			},
		})
	})

	m.server = &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: mux}
	m.port = port
	srv := m.server
	go func() {
		logger.Infof("Local web listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Local web server: %v", err)
		}
	}()
}

func (m *Manager) stop() {
	if m.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
	logger.Infof("Local web stopped")
	m.server = nil
	m.port = 0
}
