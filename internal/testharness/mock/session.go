// Package mock provides a mock transport session for testing the
// configuration engine without hardware.
package mock

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/transport"
)

// Session is a mock transport.Session. It records every write, and
// serves queries from a FIFO of pending replies. An empty FIFO fails
// the query with an error wrapping transport.ErrTimeout, the same
// failure a silent instrument produces.
//
// With EchoSets enabled the mock behaves like a shared instrument:
// every "PATH VALUE" write stores the value and enqueues it as a
// pending reply, so a second engine on the same session observes the
// first engine's write exactly once.
type Session struct {
	// EchoSets makes set-style writes enqueue their value as a reply.
	EchoSets bool

	// WriteErr, when set, fails every Write with this error.
	WriteErr error

	mu      sync.Mutex
	open    bool
	writes  []string
	pending []string
	state   map[string]string
	timeout time.Duration
}

// NewSession creates a mock session.
func NewSession() *Session {
	return &Session{
		state:   make(map[string]string),
		timeout: time.Second,
	}
}

// Open marks the session open.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	return nil
}

// Close marks the session closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// Write records the command. Set-style commands update mock state.
func (s *Session) Write(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.writes = append(s.writes, command)

	if header, value, ok := strings.Cut(command, " "); ok && !strings.HasSuffix(header, "?") {
		path := strings.Trim(header, ":")
		s.state[path] = value
		if s.EchoSets {
			s.pending = append(s.pending, value)
		}
	}
	return nil
}

// Query records the command and pops the next pending reply.
func (s *Session) Query(command string) (string, error) {
	return s.QueryWithTimeout(command, 0)
}

// QueryWithTimeout records the command and pops the next pending reply.
func (s *Session) QueryWithTimeout(command string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, command)

	if len(s.pending) == 0 {
		return "", fmt.Errorf("%w: %q with no pending reply", transport.ErrTimeout, command)
	}
	reply := s.pending[0]
	s.pending = s.pending[1:]
	return reply, nil
}

// Timeout returns the mock timeout.
func (s *Session) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// SetTimeout sets the mock timeout.
func (s *Session) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Addr identifies the mock in messages.
func (s *Session) Addr() string {
	return "mock"
}

// QueueReply appends replies to the pending FIFO.
func (s *Session) QueueReply(replies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, replies...)
}

// Writes returns a copy of every command sent so far, queries included.
func (s *Session) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// WriteCount returns the number of commands sent so far.
func (s *Session) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// PendingCount returns the number of replies still queued.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// State returns the value last written to path, if any.
func (s *Session) State(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[path]
	return v, ok
}

// Reset clears recorded writes, pending replies and state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
	s.pending = nil
	s.state = make(map[string]string)
}

// Compile-time interface satisfaction check.
var _ transport.Session = (*Session)(nil)
