package router

import (
	"net/http"

	"fleetguard/backend/app/controllers"
	"fleetguard/backend/app/middleware"
)

func NewRouter(authCtrl *controllers.AuthController, agentCtrl *controllers.AgentController, cmdCtrl *controllers.CommandController, adminCtrl *controllers.AdminController, mw *middleware.Auth) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("/login", authCtrl.Login)

	// agent-facing; bearer token auth happens inside the controller
	mux.HandleFunc("/api/agent/poll", agentCtrl.Poll)
	mux.HandleFunc("/api/agent/command-result", agentCtrl.Result)

	// admin-only
	mux.Handle("/admin/command", mw.RequireAdmin(http.HandlerFunc(cmdCtrl.Post)))
	mux.Handle("/admin/command/cancel", mw.RequireAdmin(http.HandlerFunc(cmdCtrl.Cancel)))
	mux.Handle("/admin/command/queue", mw.RequireAdmin(http.HandlerFunc(cmdCtrl.List)))
	mux.Handle("/admin/agents", mw.RequireAdmin(http.HandlerFunc(adminCtrl.Agents)))
	mux.Handle("/admin/agents/get", mw.RequireAdmin(http.HandlerFunc(adminCtrl.Get)))
	mux.Handle("/admin/agents/poll-interval", mw.RequireAdmin(http.HandlerFunc(adminCtrl.SetPollInterval)))
	mux.Handle("/admin/agents/local-web", mw.RequireAdmin(http.HandlerFunc(adminCtrl.SetLocalWeb)))
	mux.Handle("/admin/online", mw.RequireAdmin(http.HandlerFunc(adminCtrl.Online)))

	return mux
}
