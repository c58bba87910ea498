package services

import (
	"context"
	"time"

	"fleetguard/backend/app/models"
	"fleetguard/backend/global"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which agents polled recently, for display only. Command
// state is never cached here; redis going away degrades the online view to
// the last-seen timestamp and nothing else.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func (p *Presence) key(agentID string) string { return "presence:" + agentID }

// Mark records a poll. Failures are logged and ignored: presence is a hint.
func (p *Presence) Mark(ctx context.Context, agentID string) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Set(ctx, p.key(agentID), time.Now().Unix(), p.ttl).Err(); err != nil {
		global.Logger.Warn().Err(err).Str("agent_id", agentID).Msg("presence mark failed")
	}
}

func (p *Presence) Online(ctx context.Context, a *models.Agent) bool {
	if p.rdb != nil {
		n, err := p.rdb.Exists(ctx, p.key(a.AgentID)).Result()
		if err == nil {
			return n > 0
		}
		global.Logger.Warn().Err(err).Str("agent_id", a.AgentID).Msg("presence lookup failed")
	}
	return a.LastSeenAt != nil && time.Since(*a.LastSeenAt) < p.ttl
}
