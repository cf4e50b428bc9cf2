package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// Handler processes one command line from a client.
// Implemented by the simulated instrument.
type Handler interface {
	// Handle processes a command. The second return reports whether a
	// reply line must be sent (queries reply, bare commands do not).
	Handle(command string) (reply string, hasReply bool)
}

// ServerConfig configures a line-oriented instrument server.
type ServerConfig struct {
	// Address to listen on (e.g., ":5025" or "127.0.0.1:5025").
	Address string

	// Handler processes incoming commands. Required.
	Handler Handler

	// Logger for transcript logging (optional).
	Logger log.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(connID string)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(connID string)
}

// Server accepts raw-socket connections and feeds command lines to a
// Handler, the host side of the protocol TCPSession speaks.
type Server struct {
	config   ServerConfig
	listener net.Listener

	// Active connections
	conns   map[net.Conn]struct{}
	connsMu sync.Mutex

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new instrument server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("Handler is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	return &Server{
		config: config,
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Start starts the server and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop stops the server and closes all connections.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			continue
		}

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.NewString()
	remote := conn.RemoteAddr().String()

	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  connID,
		Direction:  log.DirectionIn,
		Category:   log.CategoryOpen,
		RemoteAddr: remote,
	})
	if s.config.OnConnect != nil {
		s.config.OnConnect(connID)
	}

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		_ = conn.Close()

		s.config.Logger.Log(log.Event{
			Timestamp:  time.Now(),
			SessionID:  connID,
			Direction:  log.DirectionIn,
			Category:   log.CategoryClose,
			RemoteAddr: remote,
		})
		if s.config.OnDisconnect != nil {
			s.config.OnDisconnect(connID)
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		command := strings.TrimRight(scanner.Text(), "\r")
		if command == "" {
			continue
		}

		s.config.Logger.Log(log.Event{
			Timestamp:  time.Now(),
			SessionID:  connID,
			Direction:  log.DirectionIn,
			Category:   log.CategoryWrite,
			RemoteAddr: remote,
			Command:    command,
		})

		reply, hasReply := s.config.Handler.Handle(command)
		if !hasReply {
			continue
		}

		if _, err := conn.Write([]byte(reply + Terminator)); err != nil {
			return
		}
		s.config.Logger.Log(log.Event{
			Timestamp:  time.Now(),
			SessionID:  connID,
			Direction:  log.DirectionOut,
			Category:   log.CategoryReply,
			RemoteAddr: remote,
			Command:    command,
			Response:   reply,
		})
	}
}
