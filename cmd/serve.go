package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/paperdex/paperdex/internal/api"
	"github.com/paperdex/paperdex/internal/boot"
	"github.com/paperdex/paperdex/internal/database"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/observability"
	"github.com/paperdex/paperdex/internal/paper"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Minute // ingest trigger can run long
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe initializes and starts the HTTP API server.
func runServe(logger log.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", AppVersion)

	if cfg.TracingEnabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:       cfg.OTLPEndpoint,
			Environment:    cfg.Environment,
			ServiceName:    "paperdex",
			ServiceVersion: AppVersion,
		}, logger)
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("tracing shutdown error", "error", err)
			}
		}()
	}

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Marker file so a later boot can detect this instance.
	webPID, _ := cfg.PIDFiles()
	pidFile := boot.NewPIDFile(webPID)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Warn("pid file cleanup failed", "error", err)
		}
	}()

	store := paper.NewStore(pool, logger)
	pipeline := newPipeline(cfg, pool, logger, false)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Store:      store,
		Pipeline:   pipeline,
		Pool:       pool,
		TrustProxy: cfg.TrustProxy,
		RateBurst:  cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ServeAddr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
