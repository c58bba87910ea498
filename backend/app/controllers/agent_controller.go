package controllers

import (
	"encoding/json"
	"net/http"

	"fleetguard/backend/app/dto"
	"fleetguard/backend/app/middleware"
	"fleetguard/backend/app/services"
)

// AgentController serves the two agent-facing endpoints. Agents authenticate
// with their per-agent bearer token, not with admin JWTs.
type AgentController struct {
	Agents *services.AgentService
}

func NewAgentController(agents *services.AgentService) *AgentController {
	return &AgentController{Agents: agents}
}

// Poll handles POST /api/agent/poll.
func (c *AgentController) Poll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	agent, err := c.Agents.Authenticate(middleware.BearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req dto.PollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	resp, err := c.Agents.Poll(r.Context(), agent, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Result handles POST /api/agent/command-result.
func (c *AgentController) Result(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	agent, err := c.Agents.Authenticate(middleware.BearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req dto.ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.Agents.ReportResult(agent, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
