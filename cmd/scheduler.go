package cmd

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/boot"
	"github.com/paperdex/paperdex/internal/config"
	"github.com/paperdex/paperdex/internal/database"
	"github.com/paperdex/paperdex/internal/ingest"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/scheduler"
)

// windowedPipeline narrows every scheduled ingest pass to the configured
// submission window instead of refetching the whole category.
type windowedPipeline struct {
	pipeline *ingest.Pipeline
	days     int
}

func (w *windowedPipeline) Run(ctx context.Context, opts ...arxiv.FetchOption) (*ingest.Stats, error) {
	from, to := ingestWindow(w.days)
	opts = append([]arxiv.FetchOption{arxiv.WithDateRange(from, to)}, opts...)
	return w.pipeline.Run(ctx, opts...)
}

// runScheduler starts the background job daemon: periodic ingest passes and
// service health checks. Runs in the foreground until signalled.
func runScheduler(logger log.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting scheduler daemon", "version", AppVersion)

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	_, schedPID := cfg.PIDFiles()
	pidFile := boot.NewPIDFile(schedPID)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Warn("pid file cleanup failed", "error", err)
		}
	}()

	sched, err := scheduler.New(
		&windowedPipeline{
			pipeline: newPipeline(cfg, pool, logger, false),
			days:     cfg.IngestWindowDays,
		},
		pool,
		scheduler.Config{
			IngestInterval:       cfg.IngestInterval,
			ServiceCheckInterval: cfg.ServiceCheckInterval,
			HealthURL:            healthURL(cfg),
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down scheduler daemon")
	if err := sched.Stop(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	return nil
}

// healthURL derives the web server's API health endpoint from the serve
// address. A wildcard host is probed over loopback.
func healthURL(cfg *config.Config) string {
	host, port, err := net.SplitHostPort(cfg.ServeAddr)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%s/api/v1/health", host, port)
}
