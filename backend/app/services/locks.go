package services

import "sync"

// AgentLocks serializes every mutating sequence for one agent id: the
// check-then-insert of enqueue and the reconcile-select-transition of a
// poll must each run as one unit. Different agents proceed in parallel.
type AgentLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAgentLocks() *AgentLocks {
	return &AgentLocks{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the mutex for agentID and returns its unlock func.
func (l *AgentLocks) Lock(agentID string) func() {
	l.mu.Lock()
	m, ok := l.locks[agentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[agentID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
