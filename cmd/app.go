package cmd

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/config"
	"github.com/paperdex/paperdex/internal/ingest"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/paper"
	"github.com/paperdex/paperdex/internal/pdf"
)

// loadConfig loads the application configuration. Validation happens inside
// Load, so a returned config is always usable.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newArxivClient builds the arXiv client from config.
func newArxivClient(cfg *config.Config, logger log.Logger) *arxiv.Client {
	return arxiv.NewClient(arxiv.Config{
		BaseURL:    cfg.ArxivBaseURL,
		Category:   cfg.ArxivCategory,
		MaxResults: cfg.ArxivMaxResults,
		RateDelay:  cfg.ArxivRateDelay,
		Timeout:    cfg.ArxivTimeout,
		CacheDir:   cfg.PDFCacheDir,
	}, logger)
}

// newPipeline assembles the ingest pipeline on top of an existing pool.
func newPipeline(cfg *config.Config, pool *pgxpool.Pool, logger log.Logger, force bool) *ingest.Pipeline {
	client := newArxivClient(cfg, logger)
	parser := pdf.NewParser(cfg.PDFMaxPages, cfg.PDFMaxFileSizeMB, logger)
	store := paper.NewStore(pool, logger)

	return ingest.NewPipeline(client, parser, store, ingest.Config{
		MaxResults:    cfg.ArxivMaxResults,
		MaxDownloads:  cfg.MaxConcurrentDownloads,
		MaxParses:     cfg.MaxConcurrentParses,
		ForceDownload: force,
	}, logger)
}

// ingestWindow returns the default submission date range for scheduled and
// one-off ingest passes: the last IngestWindowDays days, inclusive.
func ingestWindow(days int) (from, to string) {
	if days <= 0 {
		days = 1
	}
	now := time.Now().UTC()
	return now.AddDate(0, 0, -days).Format("20060102"), now.Format("20060102")
}
