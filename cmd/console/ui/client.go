package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the admin HTTP client. Login stores the JWT; every later call
// sends it as a bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type AgentEntry struct {
	AgentID             string  `json:"agentId"`
	DisplayName         string  `json:"displayName"`
	Hostname            string  `json:"hostname"`
	IP                  string  `json:"ip"`
	AgentVersion        string  `json:"agentVersion"`
	LastSeenAt          *string `json:"lastSeenAt"`
	LastRunAt           *string `json:"lastRunAt"`
	LastStatus          *string `json:"lastStatus"`
	LastExitCode        *int    `json:"lastExitCode"`
	UptimeSeconds       *int64  `json:"uptimeSeconds"`
	RebootRequired      *bool   `json:"rebootRequired"`
	PendingPollInterval *int    `json:"pendingPollIntervalSeconds"`
	Online              bool    `json:"online"`
	Schedule            struct {
		Enabled   bool   `json:"enabled"`
		DailyTime string `json:"dailyTime"`
	} `json:"schedule"`
	LocalWeb struct {
		Enabled bool `json:"enabled"`
		Port    int  `json:"port"`
	} `json:"localWeb"`
}

type CommandEntry struct {
	CommandID    string          `json:"commandId"`
	AgentID      string          `json:"agentId"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	ErrorMessage string          `json:"errorMessage"`
	CreatedAt    int64           `json:"createdAt"`
}

func (c *Client) Login(baseURL, username, password string) error {
	c.BaseURL = strings.TrimRight(baseURL, "/")
	var resp struct {
		Token string `json:"access_token"`
	}
	err := c.do(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.Token = resp.Token
	return nil
}

func (c *Client) ListAgents() ([]AgentEntry, error) {
	var out []AgentEntry
	err := c.do(http.MethodGet, "/admin/agents", nil, &out)
	return out, err
}

func (c *Client) GetAgent(agentID string) (*AgentEntry, error) {
	var out AgentEntry
	err := c.do(http.MethodGet, "/admin/agents/get?agentId="+url.QueryEscape(agentID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Queue(agentID string) ([]CommandEntry, error) {
	var out []CommandEntry
	err := c.do(http.MethodGet, "/admin/command/queue?agentId="+url.QueryEscape(agentID), nil, &out)
	return out, err
}

func (c *Client) Enqueue(agentID, kind string, payload any) (*CommandEntry, error) {
	body := map[string]any{"agentId": agentID, "type": kind}
	if payload != nil {
		body["payload"] = payload
	}
	var out CommandEntry
	err := c.do(http.MethodPost, "/admin/command", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(agentID string) (*CommandEntry, error) {
	var out CommandEntry
	err := c.do(http.MethodPost, "/admin/command/cancel", map[string]string{"agentId": agentID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterAgent(displayName string) (agentID, token string, err error) {
	var out struct {
		AgentID string `json:"agentId"`
		Token   string `json:"token"`
	}
	err = c.do(http.MethodPost, "/admin/agents", map[string]string{"displayName": displayName}, &out)
	return out.AgentID, out.Token, err
}

func (c *Client) RemoveAgent(agentID string) error {
	return c.do(http.MethodDelete, "/admin/agents?agentId="+url.QueryEscape(agentID), nil, nil)
}

func (c *Client) SetPollInterval(agentID string, seconds int) error {
	return c.do(http.MethodPost, "/admin/agents/poll-interval", map[string]any{
		"agentId":             agentID,
		"pollIntervalSeconds": seconds,
	}, nil)
}

func (c *Client) SetLocalWeb(agentID string, enabled bool, port int) error {
	return c.do(http.MethodPost, "/admin/agents/local-web", map[string]any{
		"agentId": agentID,
		"enabled": enabled,
		"port":    port,
	}, nil)
}

func (c *Client) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
