package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fleetguard/backend/app/dto"
	"fleetguard/backend/app/services"
)

type CommandController struct {
	Queue *services.QueueService
}

func NewCommandController(q *services.QueueService) *CommandController {
	return &CommandController{Queue: q}
}

// Post handles POST /admin/command: admit one command for an agent.
func (c *CommandController) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" || req.Type == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := dto.ValidatePayload(req.Type, req.Payload); err != nil {
		writeError(w, fmt.Errorf("%w: %v", services.ErrMissingField, err))
		return
	}
	cmd, err := c.Queue.Enqueue(req.AgentID, req.Type, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dto.NewCommandView(cmd))
}

// Cancel handles POST /admin/command/cancel: only QUEUED may be cancelled.
func (c *CommandController) Cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cmd, err := c.Queue.Cancel(req.AgentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCommandView(cmd))
}

// Queue handles GET /admin/command/queue?agentId=...
func (c *CommandController) List(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cmds, err := c.Queue.Queue(agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.CommandView, 0, len(cmds))
	for i := range cmds {
		out = append(out, dto.NewCommandView(&cmds[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
