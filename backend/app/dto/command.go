package dto

import (
	"encoding/json"

	"fleetguard/backend/app/models"
)

type EnqueueRequest struct {
	AgentID string             `json:"agentId"`
	Type    models.CommandKind `json:"type"`
	Payload json.RawMessage    `json:"payload,omitempty"`
}

type CancelRequest struct {
	AgentID string `json:"agentId"`
}

type CommandView struct {
	CommandID    string               `json:"commandId"`
	AgentID      string               `json:"agentId"`
	Type         models.CommandKind   `json:"type"`
	Payload      json.RawMessage      `json:"payload,omitempty"`
	Status       models.CommandStatus `json:"status"`
	Result       json.RawMessage      `json:"result,omitempty"`
	ErrorMessage string               `json:"errorMessage,omitempty"`
	CreatedAt    int64                `json:"createdAt"`
	UpdatedAt    int64                `json:"updatedAt"`
}

func NewCommandView(c *models.AgentCommand) CommandView {
	v := CommandView{
		CommandID:    c.CommandID,
		AgentID:      c.AgentID,
		Type:         c.Kind,
		Status:       c.Status,
		ErrorMessage: c.LastError,
		CreatedAt:    c.CreatedAt.Unix(),
		UpdatedAt:    c.UpdatedAt.Unix(),
	}
	if c.Payload != "" {
		v.Payload = json.RawMessage(c.Payload)
	}
	if c.Result != "" {
		v.Result = json.RawMessage(c.Result)
	}
	return v
}
