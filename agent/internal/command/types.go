package command

import "encoding/json"

// Descriptor is the command handed down in a poll response.
type Descriptor struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outcome is what gets reported back, plus local follow-up actions.
type Outcome struct {
	Status       string
	Result       any
	ErrorMessage string
	// Restart asks the poller to exit so the service manager restarts it
	// with fresh config; Exit terminates without restart (uninstall).
	Restart bool
	Exit    bool
}

// Handler executes one command kind. Result is the kind-specific payload
// reported on success.
type Handler interface {
	Execute(raw json.RawMessage) (result any, restart bool, exit bool, err error)
}

// Registry maps command type to handler.
var registry = map[string]Handler{}

func Register(name string, h Handler) { registry[name] = h }

func Get(name string) (Handler, bool) { h, ok := registry[name]; return h, ok }
