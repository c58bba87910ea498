package services

import "errors"

// Protocol error taxonomy. Controllers map these onto HTTP status codes;
// everything else that bubbles up from the store is an internal error.
var (
	ErrUnauthenticated  = errors.New("unknown agent credential")
	ErrIdentityMismatch = errors.New("agent id does not match credential")
	ErrAlreadyPending   = errors.New("a command is already pending for this agent")
	ErrNoQueuedCommand  = errors.New("no queued command to cancel")
	ErrNotFound         = errors.New("not found")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidKind      = errors.New("unknown command type")
	ErrPortNotAllowed   = errors.New("local web port is not in the allow-list")
)
