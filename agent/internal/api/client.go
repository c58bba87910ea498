// Package api is the agent's HTTP client for the coordinator. All requests
// carry the per-agent bearer token; the agent retries on its own poll
// cadence, never inside a request.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type PollPayload struct {
	AgentID             string           `json:"agentId"`
	DisplayName         string           `json:"displayName,omitempty"`
	Hostname            string           `json:"hostname"`
	IP                  string           `json:"ip"`
	AgentVersion        string           `json:"agentVersion"`
	LastSeenAt          string           `json:"lastSeenAt"`
	LastRunAt           *string          `json:"lastRunAt"`
	LastStatus          *string          `json:"lastStatus"`
	LastExitCode        *int             `json:"lastExitCode"`
	LastDurationSeconds *float64         `json:"lastDurationSeconds"`
	Schedule            *SchedulePayload `json:"schedule"`
	UptimeSeconds       *int64           `json:"uptimeSeconds"`
	RebootRequired      *bool            `json:"rebootRequired"`
	TelemetryOnly       bool             `json:"telemetryOnly,omitempty"`
}

type SchedulePayload struct {
	Enabled   bool   `json:"enabled"`
	DailyTime string `json:"dailyTime"`
}

type CommandDescriptor struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type LocalWebConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type PollResponse struct {
	Command  *CommandDescriptor `json:"command"`
	LocalWeb LocalWebConfig     `json:"localWeb"`
}

type ResultPayload struct {
	AgentID      string  `json:"agentId"`
	CommandID    string  `json:"commandId"`
	Status       string  `json:"status"`
	Result       any     `json:"result,omitempty"`
	ErrorMessage *string `json:"errorMessage"`
}

func (c *Client) Poll(payload *PollPayload) (*PollResponse, error) {
	var resp PollResponse
	if err := c.postJSON("/api/agent/poll", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ReportResult(payload *ResultPayload) error {
	return c.postJSON("/api/agent/command-result", payload, nil)
}

func (c *Client) postJSON(path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "fleetguard-agent/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
