package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/solatis/querykeeper/internal/core/api"
	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/core/config"
	"github.com/solatis/querykeeper/internal/core/db"
	"github.com/solatis/querykeeper/internal/core/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP persistence API and the gRPC rule-tree service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	c.Flags().String("host", "0.0.0.0", "listen host")
	c.Flags().Int("http-port", 4001, "HTTP port")
	c.Flags().Int("grpc-port", 50051, "gRPC port")
	c.Flags().String("data-dir", "./data", "directory for audit logs")
	return c
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()
	cfg := rt.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	pending, err := db.Pending(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("%d migration(s) not applied - run 'querykeeper migrate' first", pending)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	reg, err := rt.registry()
	if err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	var authenticator *auth.Authenticator
	if len(secrets) > 0 {
		authenticator = auth.NewAuthenticator(secrets)
	} else {
		rt.logger.Warn("no HMAC secrets configured, writes are unauthenticated",
			zap.String("env", config.EnvPrefix+"_HMAC_SECRET"))
	}

	service, err := api.NewService(api.Config{
		Store:         db.NewStore(queries),
		Pinger:        database,
		Registry:      reg,
		Authenticator: authenticator,
		DataDir:       cfg.Server.DataDir,
		Logger:        rt.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	httpServer, err := server.NewHTTPServer(cfg.Server.HTTPAddr(), service, cfg.Server.RequestTimeout, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(cfg.Server.GRPCAddr(), service, authenticator, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	rt.logger.Info("starting querykeeper",
		zap.String("version", Version),
		zap.String("http_addr", cfg.Server.HTTPAddr()),
		zap.String("grpc_addr", cfg.Server.GRPCAddr()),
		zap.Int("fields", len(reg.Fields())))

	errChan := make(chan error, 2)
	go func() { errChan <- httpServer.Start(ctx) }()
	go func() { errChan <- grpcServer.Start(ctx) }()

	var serveErr error
	select {
	case serveErr = <-errChan:
		rt.logger.Error("server stopped", zap.Error(serveErr))
	case <-ctx.Done():
		rt.logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		serveErr,
		httpServer.Shutdown(shutdownCtx),
		grpcServer.Shutdown(shutdownCtx),
	)
}
