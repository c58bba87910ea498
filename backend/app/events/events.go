// Package events is a small observer registry for fleet lifecycle events.
// The queue engine and the result handler emit after committing state;
// observers run on their own goroutine and can neither block nor veto the
// transition that produced the event.
package events

import "sync"

type Event string

const (
	AgentRegistered   Event = "agent.registered"
	AgentRemoved      Event = "agent.removed"
	CommandEnqueued   Event = "command.enqueued"
	CommandDispatched Event = "command.dispatched"
	CommandCompleted  Event = "command.completed"
	CommandCancelled  Event = "command.cancelled"
)

type Payload struct {
	AgentID   string
	CommandID string
	Kind      string
	Status    string
	// Reconciled marks a completion forced by the agent re-polling, as
	// opposed to a reported result.
	Reconciled bool
}

type Handler func(Event, Payload)

type Hub struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
}

func NewHub() *Hub {
	return &Hub{handlers: map[Event][]Handler{}}
}

func (h *Hub) Subscribe(e Event, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[e] = append(h.handlers[e], fn)
}

func (h *Hub) Emit(e Event, p Payload) {
	h.mu.RLock()
	subs := make([]Handler, len(h.handlers[e]))
	copy(subs, h.handlers[e])
	h.mu.RUnlock()
	for _, fn := range subs {
		go fn(e, p)
	}
}
