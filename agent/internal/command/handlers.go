package command

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"fleetguard/agent/internal/config"
	"fleetguard/agent/internal/logs"
	"fleetguard/agent/internal/state"
	"fleetguard/agent/internal/sysinfo"
)

func init() {
	Register("RUN_NOW", runNow{})
	Register("SET_SCHEDULE", setSchedule{})
	Register("UPDATE_AGENT", updateAgent{})
	Register("FETCH_INFO", fetchInfo{})
	Register("UNINSTALL", uninstall{})
	Register("LIST_LOGS", listLogs{})
	Register("FETCH_LOG", fetchLog{})
	Register("SET_POLL_INTERVAL", setPollInterval{})
}

// runNow executes the configured update command and records the run in the
// state file so the next poll reports it.
type runNow struct{}

func (runNow) Execute(json.RawMessage) (any, bool, bool, error) {
	cfg := config.Get()
	if cfg.RunCommand == "" {
		return nil, false, false, fmt.Errorf("no run command configured")
	}
	start := time.Now()
	cmd := exec.Command("/bin/sh", "-c", cfg.RunCommand)
	runErr := cmd.Run()
	duration := time.Since(start).Seconds()

	exitCode := 0
	status := "OK"
	if runErr != nil {
		status = "FAILED"
		exitCode = 1
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	st := state.Read(cfg.StatePath)
	st.LastRunAt = &now
	st.LastStatus = &status
	st.LastExitCode = &exitCode
	st.LastDurationSeconds = &duration
	_ = state.Write(cfg.StatePath, st)

	result := map[string]any{
		"lastStatus":          status,
		"lastExitCode":        exitCode,
		"lastDurationSeconds": duration,
	}
	if runErr != nil {
		return result, false, false, fmt.Errorf("run failed with exit code %d", exitCode)
	}
	return result, false, false, nil
}

type setSchedule struct{}

func (setSchedule) Execute(raw json.RawMessage) (any, bool, bool, error) {
	var p struct {
		Enabled   bool   `json:"enabled"`
		DailyTime string `json:"dailyTime"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, false, false, err
		}
	}
	if p.DailyTime == "" {
		p.DailyTime = "03:00"
	}
	if err := config.SetSchedule(p.Enabled, p.DailyTime); err != nil {
		return nil, false, false, err
	}
	return map[string]any{"schedule": map[string]any{"enabled": p.Enabled, "dailyTime": p.DailyTime}}, false, false, nil
}

// updateAgent runs the configured self-update command and reports the new
// version. The poller restarts afterwards so the new binary takes over.
type updateAgent struct{}

func (updateAgent) Execute(json.RawMessage) (any, bool, bool, error) {
	cfg := config.Get()
	if cfg.UpdateCommand != "" {
		if err := exec.Command("/bin/sh", "-c", cfg.UpdateCommand).Run(); err != nil {
			return nil, false, false, fmt.Errorf("update command failed: %w", err)
		}
	}
	return map[string]any{"version": config.Version()}, true, false, nil
}

type fetchInfo struct{}

func (fetchInfo) Execute(json.RawMessage) (any, bool, bool, error) {
	return sysinfo.Collect(), false, false, nil
}

// uninstall reports success then exits; file and unit removal is the
// installer's uninstall script, which the coordinator does not manage.
type uninstall struct{}

func (uninstall) Execute(json.RawMessage) (any, bool, bool, error) {
	return map[string]any{"uninstalled": true}, false, true, nil
}

type listLogs struct{}

func (listLogs) Execute(json.RawMessage) (any, bool, bool, error) {
	entries, err := logs.List(config.Get().LogDir)
	if err != nil {
		return nil, false, false, err
	}
	return map[string]any{"logs": entries}, false, false, nil
}

type fetchLog struct{}

func (fetchLog) Execute(raw json.RawMessage) (any, bool, bool, error) {
	var p struct {
		LogName string `json:"logName"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, false, false, err
		}
	}
	if p.LogName == "" {
		return nil, false, false, fmt.Errorf("missing logName")
	}
	out, err := logs.Read(config.Get().LogDir, p.LogName)
	if err != nil {
		return nil, false, false, err
	}
	return out, false, false, nil
}

type setPollInterval struct{}

func (setPollInterval) Execute(raw json.RawMessage) (any, bool, bool, error) {
	var p struct {
		PollIntervalSeconds int `json:"pollIntervalSeconds"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, false, false, err
		}
	}
	if p.PollIntervalSeconds <= 0 {
		return nil, false, false, fmt.Errorf("invalid poll interval")
	}
	if err := config.SetPollInterval(p.PollIntervalSeconds); err != nil {
		return nil, false, false, err
	}
	return map[string]any{"pollIntervalSeconds": p.PollIntervalSeconds}, true, false, nil
}
