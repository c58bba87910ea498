package controllers

import (
	"encoding/json"
	"net/http"

	"fleetguard/backend/app/dto"
	"fleetguard/backend/app/services"
)

// AdminController covers fleet management: registration, listing, explicit
// removal, the poll-interval override, and the local web toggle.
type AdminController struct {
	svc *services.AgentService
}

func NewAdminController(agents *services.AgentService) *AdminController {
	return &AdminController{svc: agents}
}

// Agents routes /admin/agents by method: POST registers, GET lists,
// DELETE removes.
func (c *AdminController) Agents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		c.register(w, r)
	case http.MethodGet:
		c.list(w, r)
	case http.MethodDelete:
		c.remove(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *AdminController) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	agent, err := c.svc.Register(req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.RegisterAgentResponse{AgentID: agent.AgentID, Token: agent.Token})
}

func (c *AdminController) list(w http.ResponseWriter, r *http.Request) {
	agents, err := c.svc.List()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.AgentView, 0, len(agents))
	for i := range agents {
		out = append(out, c.svc.View(r.Context(), &agents[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *AdminController) remove(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.svc.Remove(agentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Get handles GET /admin/agents/get?agentId=...
func (c *AdminController) Get(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	agent, err := c.svc.Get(agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.svc.View(r.Context(), agent))
}

// SetPollInterval handles POST /admin/agents/poll-interval.
func (c *AdminController) SetPollInterval(w http.ResponseWriter, r *http.Request) {
	var req dto.SetPollIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.svc.SetPollInterval(req.AgentID, req.PollIntervalSeconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SetLocalWeb handles POST /admin/agents/local-web.
func (c *AdminController) SetLocalWeb(w http.ResponseWriter, r *http.Request) {
	var req dto.SetLocalWebRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.svc.SetLocalWeb(req.AgentID, req.Enabled, req.Port); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Online handles GET /admin/online: agents that polled within the presence
// window. Display only; nothing here mutates command state.
func (c *AdminController) Online(w http.ResponseWriter, r *http.Request) {
	agents, err := c.svc.List()
	if err != nil {
		writeError(w, err)
		return
	}
	online := make([]string, 0)
	for i := range agents {
		if c.svc.View(r.Context(), &agents[i]).Online {
			online = append(online, agents[i].AgentID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"online_agents": online, "count": len(online)})
}
