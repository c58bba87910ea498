package initialize

import (
	"fmt"
	"net/http"
	"time"

	"fleetguard/backend/app/controllers"
	"fleetguard/backend/app/db"
	"fleetguard/backend/app/events"
	jwtutil "fleetguard/backend/app/jwt"
	"fleetguard/backend/app/middleware"
	"fleetguard/backend/app/models"
	"fleetguard/backend/app/repo"
	"fleetguard/backend/app/services"
	"fleetguard/backend/config"
	"fleetguard/backend/global"
	"fleetguard/backend/router"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cfg      config.Config
	DB       *gorm.DB
	Router   http.Handler
	Hub      *events.Hub
	Agents   *services.AgentService
	Queue    *services.QueueService
	Users    *services.UserService
	Presence *services.Presence
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = *cfg

	gdb, err := db.Connect(db.Config{
		Driver:   cfg.DB.Driver,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Pass,
		DBName:   cfg.DB.Name,
		Path:     cfg.DB.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(&models.User{}, &models.Agent{}, &models.AgentCommand{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.Redis.Addr != "" {
		global.Rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}

	// Lifecycle events are emitted after commit; this default observer
	// makes every transition visible in the log.
	hub := events.NewHub()
	hub.Subscribe(events.CommandEnqueued, logEvent)
	hub.Subscribe(events.CommandDispatched, logEvent)
	hub.Subscribe(events.CommandCompleted, logEvent)
	hub.Subscribe(events.CommandCancelled, logEvent)
	hub.Subscribe(events.AgentRegistered, logEvent)
	hub.Subscribe(events.AgentRemoved, logEvent)

	// Services
	userRepo := repo.NewUserRepository(gdb)
	agentRepo := repo.NewAgentRepository(gdb)
	cmdRepo := repo.NewCommandRepository(gdb)
	locks := services.NewAgentLocks()
	presence := services.NewPresence(global.Rdb, time.Duration(cfg.Redis.PresenceTTLSec)*time.Second)
	userSvc := services.NewUserService(userRepo)
	agentSvc := services.NewAgentService(agentRepo, cmdRepo, locks, hub, presence)
	queueSvc := services.NewQueueService(agentRepo, cmdRepo, locks, hub)
	if err := userSvc.EnsureAdmin(cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	// Controllers
	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	authCtrl := controllers.NewAuthController(userSvc, signer)
	agentCtrl := controllers.NewAgentController(agentSvc)
	cmdCtrl := controllers.NewCommandController(queueSvc)
	adminCtrl := controllers.NewAdminController(agentSvc)
	mw := &middleware.Auth{Signer: signer}

	h := router.NewRouter(authCtrl, agentCtrl, cmdCtrl, adminCtrl, mw)
	h = middleware.Logging(h)

	return &App{
		Cfg:      *cfg,
		DB:       gdb,
		Router:   h,
		Hub:      hub,
		Agents:   agentSvc,
		Queue:    queueSvc,
		Users:    userSvc,
		Presence: presence,
	}, nil
}

func logEvent(e events.Event, p events.Payload) {
	global.Logger.Info().
		Str("event", string(e)).
		Str("agent_id", p.AgentID).
		Str("command_id", p.CommandID).
		Str("kind", p.Kind).
		Str("status", p.Status).
		Bool("reconciled", p.Reconciled).
		Msg("lifecycle")
}
