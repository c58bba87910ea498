package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host string
	Port int
}

type DB struct {
	// Driver is "mysql" or "sqlite". Sqlite uses Path; mysql uses the rest.
	Driver string
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	Path   string
}

type Redis struct {
	Addr           string
	PresenceTTLSec int
}

type JWT struct {
	Secret string
	Issuer string
	ExpMin int
}

type Admin struct {
	Username string
	Password string
}

type Config struct {
	HTTP  HTTP
	DB    DB
	Redis Redis
	JWT   JWT
	Admin Admin
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 9400)
	v.SetDefault("backend.db.driver", "sqlite")
	v.SetDefault("backend.db.host", "127.0.0.1")
	v.SetDefault("backend.db.port", 3306)
	v.SetDefault("backend.db.user", "root")
	v.SetDefault("backend.db.pass", "")
	v.SetDefault("backend.db.name", "fleetguard")
	v.SetDefault("backend.db.path", "fleetguard.db")
	v.SetDefault("backend.redis.addr", "")
	v.SetDefault("backend.redis.presence_ttl_sec", 300)
	v.SetDefault("backend.admin.username", "admin")
	v.SetDefault("backend.admin.password", "admin123")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("backend.host"), Port: v.GetInt("backend.port")},
		DB: DB{
			Driver: v.GetString("backend.db.driver"),
			Host:   v.GetString("backend.db.host"),
			Port:   v.GetInt("backend.db.port"),
			User:   v.GetString("backend.db.user"),
			Pass:   v.GetString("backend.db.pass"),
			Name:   v.GetString("backend.db.name"),
			Path:   v.GetString("backend.db.path"),
		},
		Redis: Redis{
			Addr:           v.GetString("backend.redis.addr"),
			PresenceTTLSec: v.GetInt("backend.redis.presence_ttl_sec"),
		},
		Admin: Admin{
			Username: v.GetString("backend.admin.username"),
			Password: v.GetString("backend.admin.password"),
		},
	}
	cfg.JWT.Secret = v.GetString("backend.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("backend.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "fleetguard"
	}
	cfg.JWT.ExpMin = v.GetInt("backend.jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	return cfg, nil
}
