package comm

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"gitlab.com/icecc-go.net/internal/core/ports/primary"
)

// Connection is an attempted or established session to one endpoint.
// Channel returns nil when the endpoint was unreachable. Close releases
// the transport and invalidates the channel.
type Connection interface {
	Channel() MessageChannel
	Close() error
}

// Dialer opens Connections. It never fails with an error: an
// unreachable endpoint yields a Connection without a channel.
type Dialer interface {
	Open(ctx context.Context, host string, port int) Connection
}

var _ Connection = (*Service)(nil)

// Service is a TCP Connection.
type Service struct {
	host string
	port int

	mu     sync.Mutex
	conn   net.Conn
	ch     *MsgChannel
	closed bool
}

// Channel returns the message channel, or nil if the endpoint could not
// be reached. Using a closed Service is a programming error.
func (s *Service) Channel() MessageChannel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		panic("comm: Channel called on closed Service " + s.Addr())
	}
	if s.ch == nil {
		return nil
	}
	return s.ch
}

// Close releases the transport. Closing twice is a no-op.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.ch = nil
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Addr returns host:port of the endpoint.
func (s *Service) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// TCPDialer opens Services over TCP.
type TCPDialer struct {
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
	Logger         primary.Logger
}

// NewTCPDialer creates a dialer. A zero connectTimeout falls back to
// DefaultConnectTimeout.
func NewTCPDialer(connectTimeout, ioTimeout time.Duration, logger primary.Logger) *TCPDialer {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &TCPDialer{
		ConnectTimeout: connectTimeout,
		IOTimeout:      ioTimeout,
		Logger:         logger,
	}
}

// Open dials host:port. Refusal, timeouts and bad ports all produce a
// Service whose Channel is nil.
func (d *TCPDialer) Open(ctx context.Context, host string, port int) Connection {
	s := &Service{host: host, port: port}
	if host == "" || port <= 0 || port > 65535 {
		d.Logger.Debug("Refusing to dial invalid endpoint", "addr", s.Addr())
		return s
	}

	dialer := net.Dialer{Timeout: d.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr())
	if err != nil {
		d.Logger.Debug("Failed to connect", "addr", s.Addr(), "error", err)
		return s
	}

	s.conn = conn
	s.ch = NewMsgChannel(conn, d.IOTimeout, d.Logger)
	return s
}
