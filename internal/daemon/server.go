package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
)

const (
	// clientIdleTimeout bounds how long a client may sit on a connection
	// without sending a message.
	clientIdleTimeout = 30 * time.Second
	acceptRetryDelay  = 1 * time.Second
)

// DaemonServer answers client questions on the local daemon port.
type DaemonServer struct {
	address  string
	locator  secondary.SchedulerLocator
	logger   primary.Logger
	listener net.Listener
	stopCh   chan struct{}
	stopOnce sync.Once
	handlers map[comm.MsgType]MessageHandler

	connMu sync.Mutex
	conns  map[string]net.Conn
	wg     sync.WaitGroup
}

// DaemonServerOption configures a DaemonServer
type DaemonServerOption func(*DaemonServer)

// WithAddress sets the server address
func WithAddress(address string) DaemonServerOption {
	return func(s *DaemonServer) {
		s.address = address
	}
}

// NewDaemonServer creates a new daemon server
func NewDaemonServer(locator secondary.SchedulerLocator, logger primary.Logger, options ...DaemonServerOption) *DaemonServer {
	server := &DaemonServer{
		address: fmt.Sprintf("127.0.0.1:%d", comm.DefaultDaemonPort),
		locator: locator,
		logger:  logger,
		stopCh:  make(chan struct{}),
		conns:   make(map[string]net.Conn),
	}

	for _, option := range options {
		option(server)
	}

	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *DaemonServer) setupMessageHandlers() {
	s.handlers = map[comm.MsgType]MessageHandler{
		comm.MsgGetScheduler: &GetSchedulerHandler{Locator: s.locator, Logger: s.logger},
	}
}

// Start starts listening and accepting connections in the background.
func (s *DaemonServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start daemon server: %w", err)
	}

	s.logger.Info("Daemon listening", "address", s.listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the listening address once started.
func (s *DaemonServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and all client connections, then waits for
// the connection goroutines or ctx, whichever comes first. Later calls
// only wait.
func (s *DaemonServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				s.logger.Error("Failed to close listener", "error", err)
			}
		}

		s.closeAllConnections()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeAllConnections closes all client connections
func (s *DaemonServer) closeAllConnections() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	for id, conn := range s.conns {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close connection", "connId", id, "error", err)
		}
	}
}

// acceptConnections accepts incoming connections
func (s *DaemonServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Failed to accept connection", "error", err)
			time.Sleep(acceptRetryDelay) // Avoid tight loop on error
			continue
		}

		id := uuid.NewString()
		s.connMu.Lock()
		s.conns[id] = conn
		s.connMu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(id, conn)
	}
}

// handleConnection serves one client until it hangs up, says End, or a
// handler fails.
func (s *DaemonServer) handleConnection(id string, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, id)
		s.connMu.Unlock()
		conn.Close()
	}()

	s.logger.Debug("Client connected", "connId", id, "remote", conn.RemoteAddr().String())
	ch := comm.NewMsgChannel(conn, clientIdleTimeout, s.logger)
	ctx := context.Background()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		msg, ok := ch.GetMsg()
		if !ok {
			s.logger.Debug("Client disconnected", "connId", id)
			return
		}
		if msg.Type() == comm.MsgEnd {
			return
		}

		handler, exists := s.handlers[msg.Type()]
		if !exists {
			s.logger.Warn("Unknown message type", "connId", id, "type", msg.Type().String())
			sendError(ch, ErrCodeUnknownMessage, fmt.Sprintf("Unknown message type: %s", msg.Type()))
			continue
		}

		if err := handler.HandleMessage(ctx, ch, msg); err != nil {
			s.logger.Warn("Error handling message", "connId", id, "type", msg.Type().String(), "error", err)
			return
		}
	}
}
