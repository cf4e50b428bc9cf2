package transport

import (
	"errors"
	"time"
)

// Transport errors.
var (
	// ErrNotOpen is returned when writing or querying a closed session.
	ErrNotOpen = errors.New("session not open")

	// ErrTimeout is returned when a query receives no reply in time.
	ErrTimeout = errors.New("query timeout")
)

// Session is a bidirectional text channel to one instrument.
//
// Open and Close are idempotent; Close releases the connection but the
// session keeps its identity and can be reopened. Write and Query fail
// when the session is not open. A session is exclusively owned by one
// engine or bank instance; access is strictly serialized.
type Session interface {
	// Open acquires the connection. Calling Open on an open session is a no-op.
	Open() error

	// Close releases the connection. Calling Close on a closed session is a no-op.
	Close() error

	// Write sends a command without waiting for a reply.
	Write(command string) error

	// Query sends a command and blocks for the reply line,
	// using the session timeout.
	Query(command string) (string, error)

	// QueryWithTimeout is Query with a one-shot timeout override.
	QueryWithTimeout(command string, timeout time.Duration) (string, error)

	// Timeout returns the session timeout.
	Timeout() time.Duration

	// SetTimeout sets the session timeout.
	SetTimeout(d time.Duration)

	// Addr returns the instrument address for display and logging.
	Addr() string
}

// Compile-time interface satisfaction checks.
var (
	_ Session = (*TCPSession)(nil)
	_ Session = (*PrologixSession)(nil)
)
