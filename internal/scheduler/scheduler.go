// Package scheduler runs the periodic background jobs: ingest passes and
// service health checks.
package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/ingest"
	"github.com/paperdex/paperdex/internal/log"
)

// Ingester runs one ingest pipeline pass.
type Ingester interface {
	Run(ctx context.Context, opts ...arxiv.FetchOption) (*ingest.Stats, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the scheduler daemon.
type Config struct {
	IngestInterval       time.Duration // 0 disables the ingest job
	ServiceCheckInterval time.Duration // 0 disables the service check job
	HealthURL            string        // web server liveness endpoint
}

// Scheduler wraps a gocron scheduler with the paperdex jobs attached.
type Scheduler struct {
	scheduler gocron.Scheduler
	pipeline  Ingester
	pinger    Pinger
	cfg       Config
	client    *http.Client
	logger    log.Logger
}

// New creates a Scheduler. pipeline and pinger may be nil; the corresponding
// jobs are skipped. logger may be nil.
func New(pipeline Ingester, pinger Pinger, cfg Config, logger log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: gs,
		pipeline:  pipeline,
		pinger:    pinger,
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.With("component", "scheduler"),
	}, nil
}

// Start registers the jobs and begins scheduling. Jobs run until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.pipeline != nil && s.cfg.IngestInterval > 0 {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(s.cfg.IngestInterval),
			gocron.NewTask(s.runIngest, ctx),
			gocron.WithName("ingest"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("schedule ingest job: %w", err)
		}
	}

	if s.cfg.ServiceCheckInterval > 0 {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(s.cfg.ServiceCheckInterval),
			gocron.NewTask(s.runServiceCheck, ctx),
			gocron.WithName("service-check"),
		)
		if err != nil {
			return fmt.Errorf("schedule service check job: %w", err)
		}
	}

	s.logger.Info("scheduler started",
		"ingest_interval", s.cfg.IngestInterval,
		"service_check_interval", s.cfg.ServiceCheckInterval,
	)
	s.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.logger.Info("scheduler stopping")
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

// runIngest executes one scheduled ingest pass.
func (s *Scheduler) runIngest(ctx context.Context) {
	s.logger.Info("scheduled ingest started")

	stats, err := s.pipeline.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled ingest failed", "error", err)
		return
	}

	s.logger.Info("scheduled ingest finished",
		"fetched", stats.PapersFetched,
		"stored", stats.PapersStored,
		"errors", stats.Errors,
		"elapsed", stats.Elapsed,
	)
}

// runServiceCheck probes the web server and the database, logging failures.
// It never restarts anything itself; operators act on the logs.
func (s *Scheduler) runServiceCheck(ctx context.Context) {
	if s.cfg.HealthURL != "" {
		if err := s.checkWeb(ctx); err != nil {
			s.logger.Warn("web server health check failed", "url", s.cfg.HealthURL, "error", err)
		}
	}
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.pinger.Ping(pingCtx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
		}
	}
}

func (s *Scheduler) checkWeb(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.HealthURL, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
