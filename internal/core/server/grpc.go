// Package server provides gRPC and HTTP server lifecycle management.
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/solatis/querykeeper/internal/core/api"
	"github.com/solatis/querykeeper/internal/core/auth"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer manages the RuleTreeService gRPC server.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	addr   string
	logger *zap.Logger
}

// NewGRPCServer creates the gRPC server with the signature interceptor,
// RuleTreeService and the standard health service.
// authenticator may be nil or empty to accept unsigned requests.
func NewGRPCServer(addr string, service *api.Service, authenticator *auth.Authenticator, logger *zap.Logger) (*GRPCServer, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if authenticator == nil {
		authenticator = auth.NewAuthenticator(nil)
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(authenticator.UnaryInterceptor()),
	)
	api.RegisterRuleTreeServer(server, api.NewRuleTreeGRPC(service))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.RuleTreeServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		addr:   addr,
		logger: logger,
	}, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", listener.Addr().String()))
	return s.server.Serve(listener)
}

// Shutdown marks the server not serving and stops it gracefully, forcing
// a stop when ctx ends first.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop: %w", ctx.Err())
	}
}
