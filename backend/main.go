package main

import (
	"flag"
	"fmt"
	"net/http"

	"fleetguard/backend/global"
	"fleetguard/backend/initialize"
)

func main() {
	var (
		configPath = flag.String("config", "config/backend.yaml", "Path to backend config file")
		host       = flag.String("host", "", "Override HTTP listen host")
		port       = flag.Int("port", 0, "Override HTTP listen port")
	)
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("build failed")
	}

	listenHost := app.Cfg.HTTP.Host
	if *host != "" {
		listenHost = *host
	}
	listenPort := app.Cfg.HTTP.Port
	if *port != 0 {
		listenPort = *port
	}

	addr := fmt.Sprintf("%s:%d", listenHost, listenPort)
	global.Logger.Info().Str("addr", addr).Msg("coordinator listening")
	if err := http.ListenAndServe(addr, app.Router); err != nil {
		global.Logger.Fatal().Err(err).Msg("serve failed")
	}
}
