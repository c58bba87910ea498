package dto

import (
	"encoding/json"

	"fleetguard/backend/app/models"
)

type SchedulePayload struct {
	Enabled   bool   `json:"enabled"`
	DailyTime string `json:"dailyTime"`
}

// PollRequest is the telemetry snapshot an agent sends on every check-in.
// Field names match the agent wire contract; optional fields are pointers so
// an absent value is stored as NULL rather than a zero.
type PollRequest struct {
	AgentID             string           `json:"agentId"`
	DisplayName         string           `json:"displayName"`
	Hostname            string           `json:"hostname"`
	IP                  string           `json:"ip"`
	AgentVersion        string           `json:"agentVersion"`
	LastSeenAt          *string          `json:"lastSeenAt"`
	LastRunAt           *string          `json:"lastRunAt"`
	LastStatus          *string          `json:"lastStatus"`
	LastExitCode        *int             `json:"lastExitCode"`
	LastDurationSeconds *float64         `json:"lastDurationSeconds"`
	Schedule            *SchedulePayload `json:"schedule"`
	UptimeSeconds       *int64           `json:"uptimeSeconds"`
	RebootRequired      *bool            `json:"rebootRequired"`
	// TelemetryOnly skips command dispatch for this round.
	TelemetryOnly bool `json:"telemetryOnly,omitempty"`
}

type CommandDescriptor struct {
	ID      string             `json:"id"`
	Type    models.CommandKind `json:"type"`
	Payload json.RawMessage    `json:"payload,omitempty"`
}

type LocalWebConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type PollResponse struct {
	Command  *CommandDescriptor `json:"command"`
	LocalWeb LocalWebConfig     `json:"localWeb"`
}

type ResultRequest struct {
	AgentID      string          `json:"agentId"`
	CommandID    string          `json:"commandId"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"errorMessage"`
}

type AgentView struct {
	AgentID             string           `json:"agentId"`
	DisplayName         string           `json:"displayName"`
	Hostname            string           `json:"hostname"`
	IP                  string           `json:"ip"`
	AgentVersion        string           `json:"agentVersion"`
	LastSeenAt          *string          `json:"lastSeenAt"`
	LastRunAt           *string          `json:"lastRunAt"`
	LastStatus          *string          `json:"lastStatus"`
	LastExitCode        *int             `json:"lastExitCode"`
	LastDurationSeconds *float64         `json:"lastDurationSeconds"`
	UptimeSeconds       *int64           `json:"uptimeSeconds"`
	RebootRequired      *bool            `json:"rebootRequired"`
	Schedule            SchedulePayload  `json:"schedule"`
	LocalWeb            LocalWebConfig   `json:"localWeb"`
	PendingPollInterval *int             `json:"pendingPollIntervalSeconds,omitempty"`
	Info                *json.RawMessage `json:"info,omitempty"`
	InfoUpdatedAt       *string          `json:"infoUpdatedAt,omitempty"`
	Online              bool             `json:"online"`
}

type RegisterAgentRequest struct {
	DisplayName string `json:"displayName"`
}

// RegisterAgentResponse carries the API token exactly once, at registration.
type RegisterAgentResponse struct {
	AgentID string `json:"agentId"`
	Token   string `json:"token"`
}

type SetPollIntervalRequest struct {
	AgentID             string `json:"agentId"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
}

type SetLocalWebRequest struct {
	AgentID string `json:"agentId"`
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
}
