package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/database"
	"github.com/paperdex/paperdex/internal/log"
)

// runFetch runs one ingest pass from the command line.
func runFetch(logger log.Logger, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	category := fs.String("category", "", "arXiv category (default from config)")
	days := fs.Int("days", cfg.IngestWindowDays, "submission window in days back from today")
	maxResults := fs.Int("max", 0, "maximum number of papers (default from config)")
	force := fs.Bool("force", false, "re-download PDFs even when cached")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing fetch flags: %w", err)
	}

	if *category != "" {
		cfg.ArxivCategory = *category
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	pipeline := newPipeline(cfg, pool, logger, *force)

	var opts []arxiv.FetchOption
	if *days > 0 {
		from, to := ingestWindow(*days)
		opts = append(opts, arxiv.WithDateRange(from, to))
	}
	if *maxResults > 0 {
		opts = append(opts, arxiv.WithMaxResults(*maxResults))
	}

	stats, err := pipeline.Run(ctx, opts...)
	if err != nil {
		return fmt.Errorf("ingest pass: %w", err)
	}

	fmt.Printf("Fetched %d papers: %d PDFs downloaded, %d parsed, %d stored, %d errors (%s)\n",
		stats.PapersFetched, stats.PDFsDownloaded, stats.PDFsParsed,
		stats.PapersStored, stats.Errors, stats.Elapsed.Round(time.Millisecond))
	return nil
}
