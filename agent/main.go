package main

import (
	"flag"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"fleetguard/agent/internal/api"
	"fleetguard/agent/internal/command"
	"fleetguard/agent/internal/config"
	"fleetguard/agent/internal/localweb"
	"fleetguard/agent/internal/logger"
	"fleetguard/agent/internal/state"
	"fleetguard/agent/internal/sysinfo"
)

func main() {
	var (
		configPath = flag.String("config", "/etc/fleetguard/agent.yaml", "path to agent config")
		once       = flag.Bool("once", false, "poll once and exit")
	)
	flag.Parse()

	cfg := config.Init(*configPath)
	if err := logger.Init(cfg.LogPath); err != nil {
		os.Exit(1)
	}
	if cfg.AgentID == "" || cfg.Token == "" {
		logger.Error("agent.id and agent.token must be set, run the installer first")
		os.Exit(1)
	}

	watchConfig(*configPath)
	web := localweb.NewManager()

	logger.Infof("Agent %s polling %s every %ds", cfg.AgentID, cfg.DashboardURL, cfg.PollIntervalSeconds)
	for {
		pollOnce(web)
		if *once {
			return
		}
		time.Sleep(time.Duration(config.Get().PollIntervalSeconds) * time.Second)
	}
}

func pollOnce(web *localweb.Manager) {
	cfg := config.Get()
	client := api.NewClient(cfg.DashboardURL, cfg.Token)

	resp, err := client.Poll(buildPayload(cfg, false))
	if err != nil {
		logger.Errorf("Poll failed: %v", err)
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	st := state.Read(cfg.StatePath)
	st.LastPoll = &now
	_ = state.Write(cfg.StatePath, st)

	web.Apply(resp.LocalWeb.Enabled, resp.LocalWeb.Port)

	if resp.Command == nil {
		return
	}
	outcome := command.Dispatch(command.Descriptor{
		ID:      resp.Command.ID,
		Type:    resp.Command.Type,
		Payload: resp.Command.Payload,
	})
	report := &api.ResultPayload{
		AgentID:   cfg.AgentID,
		CommandID: resp.Command.ID,
		Status:    outcome.Status,
		Result:    outcome.Result,
	}
	if outcome.ErrorMessage != "" {
		report.ErrorMessage = &outcome.ErrorMessage
	}
	if err := client.ReportResult(report); err != nil {
		logger.Errorf("Result report failed: %v", err)
	}

	if !outcome.Exit && !outcome.Restart {
		// Push the fresh run state without taking another command.
		if _, err := client.Poll(buildPayload(config.Get(), true)); err != nil {
			logger.Errorf("Telemetry poll failed: %v", err)
		}
	}

	if outcome.Exit {
		logger.Info("Exiting after uninstall")
		os.Exit(0)
	}
	if outcome.Restart {
		// The service manager restarts us; the new process picks up the
		// rewritten config or updated binary.
		logger.Info("Restarting to apply changes")
		os.Exit(0)
	}
}

func buildPayload(cfg config.AppConfig, telemetryOnly bool) *api.PollPayload {
	st := state.Read(cfg.StatePath)
	p := &api.PollPayload{
		AgentID:      cfg.AgentID,
		Hostname:     sysinfo.Hostname(),
		IP:           sysinfo.PrimaryIP(),
		AgentVersion: config.Version(),
		LastSeenAt:   time.Now().UTC().Format(time.RFC3339),
		LastRunAt:    st.LastRunAt,
		LastStatus:   st.LastStatus,
		LastExitCode: st.LastExitCode,
		Schedule: &api.SchedulePayload{
			Enabled:   cfg.Schedule.Enabled,
			DailyTime: cfg.Schedule.DailyTime,
		},
		TelemetryOnly: telemetryOnly,
	}
	p.LastDurationSeconds = st.LastDurationSeconds
	if uptime, err := sysinfo.UptimeSeconds(); err == nil {
		p.UptimeSeconds = &uptime
	}
	reboot := sysinfo.RebootRequired()
	p.RebootRequired = &reboot
	return p
}

// watchConfig reloads the config when the file changes so an operator edit
// takes effect without a restart. Editors replace files on save, so re-add
// the watch after Remove/Rename events.
func watchConfig(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Errorf("Config watch unavailable: %v", err)
		return
	}
	if err := watcher.Add(path); err != nil {
		logger.Errorf("Config watch unavailable: %v", err)
		watcher.Close()
		return
	}
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					logger.Info("Config changed, reloading")
					config.Reload()
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					time.Sleep(200 * time.Millisecond)
					_ = watcher.Add(path)
					config.Reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Errorf("Config watch: %v", err)
			}
		}
	}()
}
