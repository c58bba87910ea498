package models

import "time"

type CommandStatus string

const (
	StatusQueued     CommandStatus = "QUEUED"
	StatusInProgress CommandStatus = "IN_PROGRESS"
	StatusDone       CommandStatus = "DONE"
	StatusError      CommandStatus = "ERROR"
)

type CommandKind string

const (
	KindRunNow          CommandKind = "RUN_NOW"
	KindSetSchedule     CommandKind = "SET_SCHEDULE"
	KindUpdateAgent     CommandKind = "UPDATE_AGENT"
	KindFetchInfo       CommandKind = "FETCH_INFO"
	KindUninstall       CommandKind = "UNINSTALL"
	KindListLogs        CommandKind = "LIST_LOGS"
	KindFetchLog        CommandKind = "FETCH_LOG"
	KindSetPollInterval CommandKind = "SET_POLL_INTERVAL"
)

func (k CommandKind) Valid() bool {
	switch k {
	case KindRunNow, KindSetSchedule, KindUpdateAgent, KindFetchInfo,
		KindUninstall, KindListLogs, KindFetchLog, KindSetPollInterval:
		return true
	}
	return false
}

// AgentCommand is one unit of work queued for a specific agent.
//
// Lifecycle: QUEUED -> IN_PROGRESS -> DONE|ERROR. A QUEUED command may also
// go straight to ERROR on admin cancel, and an IN_PROGRESS command is closed
// ERROR by reconciliation when its agent re-polls without reporting.
type AgentCommand struct {
	ID        uint        `gorm:"primaryKey"`
	CommandID string      `gorm:"uniqueIndex;size:64;not null"`
	AgentID   string      `gorm:"index;size:64;not null"`
	Kind      CommandKind `gorm:"size:32;not null"`
	// Payload and Result are kind-specific JSON, opaque to the queue.
	Payload   string        `gorm:"type:text"`
	Status    CommandStatus `gorm:"size:16;not null;index"`
	Result    string        `gorm:"type:text"`
	LastError string        `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *AgentCommand) Terminal() bool {
	return c.Status == StatusDone || c.Status == StatusError
}
