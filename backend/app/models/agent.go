package models

import "time"

// Agent is one managed host. Agents are never dialed; every row mutation
// comes from an admin action or from the agent's own poll/result calls.
type Agent struct {
	ID          uint   `gorm:"primaryKey"`
	AgentID     string `gorm:"uniqueIndex;size:64;not null"`
	Token       string `gorm:"uniqueIndex;size:64;not null"`
	DisplayName string `gorm:"size:255"`

	// Telemetry snapshot, overwritten on every poll. Pointer fields stay
	// NULL when the agent did not report them.
	Hostname            string `gorm:"size:255"`
	IP                  string `gorm:"size:64"`
	AgentVersion        string `gorm:"size:64"`
	LastSeenAt          *time.Time
	LastRunAt           *time.Time
	LastStatus          *string `gorm:"size:32"`
	LastExitCode        *int
	LastDurationSeconds *float64
	UptimeSeconds       *int64
	RebootRequired      *bool

	ScheduleEnabled   bool
	ScheduleDailyTime string `gorm:"size:8"`

	LocalWebEnabled bool
	LocalWebPort    int

	// PendingPollInterval is consumed into a synthesized SET_POLL_INTERVAL
	// command on the next poll, then cleared.
	PendingPollInterval *int

	// Cached system info snapshot from the last successful FETCH_INFO.
	Info          *string `gorm:"type:text"`
	InfoUpdatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
