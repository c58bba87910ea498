package dto

import (
	"encoding/json"
	"fmt"

	"fleetguard/backend/app/models"
)

// Typed per-kind payloads. The queue engine stores payload bytes opaquely;
// validation happens once at admission so a malformed payload is rejected
// at the admin boundary instead of on the agent.

type SetSchedulePayload struct {
	Enabled   bool   `json:"enabled"`
	DailyTime string `json:"dailyTime"`
}

type FetchLogPayload struct {
	LogName string `json:"logName"`
}

type SetPollIntervalPayload struct {
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
}

// ValidatePayload checks that raw decodes as the payload type for kind.
// The switch is exhaustive over the closed kind set.
func ValidatePayload(kind models.CommandKind, raw json.RawMessage) error {
	switch kind {
	case models.KindSetSchedule:
		var p SetSchedulePayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.DailyTime == "" {
			return fmt.Errorf("dailyTime is required")
		}
	case models.KindFetchLog:
		var p FetchLogPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.LogName == "" {
			return fmt.Errorf("logName is required")
		}
	case models.KindSetPollInterval:
		var p SetPollIntervalPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.PollIntervalSeconds <= 0 {
			return fmt.Errorf("pollIntervalSeconds must be positive")
		}
	case models.KindRunNow, models.KindUpdateAgent, models.KindFetchInfo,
		models.KindUninstall, models.KindListLogs:
		// no payload expected
	default:
		return fmt.Errorf("unknown command type %q", kind)
	}
	return nil
}

func decodeStrict(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload is required")
	}
	return json.Unmarshal(raw, into)
}
