package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/solatis/querykeeper/internal/core/api"
	"go.uber.org/zap"
)

// HTTPServer manages the persistence service's HTTP listener.
type HTTPServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewHTTPServer creates an HTTP server for service's router.
// requestTimeout bounds reading a request and writing its response.
func NewHTTPServer(addr string, service *api.Service, requestTimeout time.Duration, logger *zap.Logger) (*HTTPServer, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           service.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       requestTimeout,
			WriteTimeout:      requestTimeout,
		},
		logger: logger,
	}, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener. A clean Shutdown returns nil.
func (s *HTTPServer) Serve(listener net.Listener) error {
	s.logger.Info("HTTP server listening", zap.String("addr", listener.Addr().String()))
	if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		s.server.Close()
		return fmt.Errorf("graceful shutdown timeout, forced stop: %w", err)
	}
	return nil
}
