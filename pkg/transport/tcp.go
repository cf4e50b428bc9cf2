package transport

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Default settings for raw-socket instrument connections.
const (
	// DefaultPort is the conventional SCPI raw-socket port.
	DefaultPort = 5025

	// DefaultTimeout is the default query timeout.
	DefaultTimeout = 2 * time.Second

	// Terminator ends every command and reply line.
	Terminator = "\n"
)

// TCPSession is a raw-socket session to a LAN instrument
// (SCPI-raw / LXI style: newline-terminated commands and replies).
type TCPSession struct {
	addr string

	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// NewTCPSession creates a session for the given "host:port" address.
// The connection is not opened until Open is called.
func NewTCPSession(addr string) *TCPSession {
	return &TCPSession{
		addr:    addr,
		timeout: DefaultTimeout,
	}
}

// Open dials the instrument. Open on an already open session is a no-op.
func (s *TCPSession) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp", s.addr, s.timeout)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.addr, err)
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	return nil
}

// Close releases the connection. Close on a closed session is a no-op.
func (s *TCPSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.reader = nil
	return err
}

// Write sends a command without waiting for a reply.
func (s *TCPSession) Write(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(command)
}

func (s *TCPSession) writeLocked(command string) error {
	if s.conn == nil {
		return fmt.Errorf("%w: write %q to %s", ErrNotOpen, command, s.addr)
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	if _, err := s.conn.Write([]byte(command + Terminator)); err != nil {
		return fmt.Errorf("writing %q to %s: %w", command, s.addr, err)
	}
	return nil
}

// Query sends a command and blocks for the reply line.
func (s *TCPSession) Query(command string) (string, error) {
	return s.QueryWithTimeout(command, 0)
}

// QueryWithTimeout is Query with a one-shot timeout override.
// A zero timeout uses the session timeout.
func (s *TCPSession) QueryWithTimeout(command string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(command); err != nil {
		return "", err
	}
	return s.readLocked(command, timeout)
}

// readLocked reads one reply line. The caller must hold the mutex.
func (s *TCPSession) readLocked(command string, timeout time.Duration) (string, error) {
	if s.conn == nil {
		return "", fmt.Errorf("%w: read for %q from %s", ErrNotOpen, command, s.addr)
	}
	if timeout <= 0 {
		timeout = s.timeout
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return "", fmt.Errorf("%w: %q to %s after %v", ErrTimeout, command, s.addr, timeout)
		}
		return "", fmt.Errorf("reading reply to %q from %s: %w", command, s.addr, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Timeout returns the session timeout.
func (s *TCPSession) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// SetTimeout sets the session timeout.
func (s *TCPSession) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Addr returns the instrument address.
func (s *TCPSession) Addr() string {
	return s.addr
}
