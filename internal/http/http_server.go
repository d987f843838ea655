package http

// this is entry point of the daemon's status endpoints

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
	"gitlab.com/icecc-go.net/internal/handlers/status"
)

type Server struct {
	router      *mux.Router
	Port        int
	ServiceName string
	locator     secondary.SchedulerLocator
	logger      primary.Logger
	srv         *http.Server
	listener    net.Listener
}

func NewServer(port int, serviceName string, locator secondary.SchedulerLocator, logger primary.Logger) *Server {
	return &Server{
		Port:        port,
		ServiceName: serviceName,
		locator:     locator,
		logger:      logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	status.NewHandler(s.locator, s.logger).RegisterRoutes(r)
	s.router = r
	return nil
}

// Router exposes the routes, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start binds the loopback port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	s.listener = listener

	go func() {
		s.logger.Info("Server listening", "service", s.ServiceName, "addr", listener.Addr().String())
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("Shutting down http server...")
	return s.srv.Shutdown(ctx)
}
