package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Schedule struct {
	Enabled   bool
	DailyTime string
}

type AppConfig struct {
	DashboardURL        string
	AgentID             string
	Token               string
	PollIntervalSeconds int
	Schedule            Schedule
	StatePath           string
	LogPath             string
	LogDir              string
	VersionPath         string
	RunCommand          string
	UpdateCommand       string
}

var (
	mu   sync.RWMutex
	cfg  AppConfig
	v    *viper.Viper
	path string
)

func Init(configPath string) AppConfig {
	defaultDir := filepath.Join(os.TempDir(), "fleetguard-agent")

	path = configPath
	v = viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// defaults
	v.SetDefault("agent.dashboard_url", "http://127.0.0.1:9400")
	v.SetDefault("agent.poll_interval_seconds", 60)
	v.SetDefault("agent.schedule.enabled", false)
	v.SetDefault("agent.schedule.daily_time", "03:00")
	v.SetDefault("agent.state_path", filepath.Join(defaultDir, "state.json"))
	v.SetDefault("agent.log_dir", filepath.Join(defaultDir, "logs"))
	v.SetDefault("agent.version_path", filepath.Join(defaultDir, "VERSION"))
	_ = v.ReadInConfig()

	reload()
	return Get()
}

func reload() {
	mu.Lock()
	defer mu.Unlock()
	cfg = AppConfig{
		DashboardURL:        v.GetString("agent.dashboard_url"),
		AgentID:             v.GetString("agent.id"),
		Token:               v.GetString("agent.token"),
		PollIntervalSeconds: v.GetInt("agent.poll_interval_seconds"),
		Schedule: Schedule{
			Enabled:   v.GetBool("agent.schedule.enabled"),
			DailyTime: v.GetString("agent.schedule.daily_time"),
		},
		StatePath:     v.GetString("agent.state_path"),
		LogPath:       v.GetString("agent.log_path"),
		LogDir:        v.GetString("agent.log_dir"),
		VersionPath:   v.GetString("agent.version_path"),
		RunCommand:    v.GetString("agent.run_command"),
		UpdateCommand: v.GetString("agent.update_command"),
	}
}

func Get() AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Reload re-reads the config file; used by the fsnotify watcher so an
// operator edit of the poll interval takes effect without a restart.
func Reload() {
	_ = v.ReadInConfig()
	reload()
}

func Path() string { return path }

// SetSchedule persists the schedule handed down by a SET_SCHEDULE command.
func SetSchedule(enabled bool, dailyTime string) error {
	v.Set("agent.schedule.enabled", enabled)
	v.Set("agent.schedule.daily_time", dailyTime)
	if err := v.WriteConfig(); err != nil {
		return err
	}
	reload()
	return nil
}

// SetPollInterval persists a SET_POLL_INTERVAL command.
func SetPollInterval(seconds int) error {
	v.Set("agent.poll_interval_seconds", seconds)
	if err := v.WriteConfig(); err != nil {
		return err
	}
	reload()
	return nil
}

// Version reads the installed agent version, "0.0.0" when absent.
func Version() string {
	b, err := os.ReadFile(Get().VersionPath)
	if err != nil {
		return "0.0.0"
	}
	return strings.TrimSpace(string(b))
}
