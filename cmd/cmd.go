// Package cmd provides the paperdex CLI commands.
//
// Commands:
//   - up: full boot sequence (cleanup, store init, admin account, launch)
//   - serve: HTTP API server
//   - scheduler: background job daemon (periodic ingest, service checks)
//   - migrate: apply database migrations and exit
//   - fetch: one-off ingest pass from the command line
//
// Signal handling and graceful shutdown are implemented for the long-running
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/paperdex/paperdex/internal/log"
)

// Execute is the main entry point for the paperdex CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("PAPERDEX_LOG_JSON") != "",
	})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "up":
		return runUp(logger)
	case "serve":
		return runServe(logger)
	case "scheduler":
		return runScheduler(logger)
	case "migrate":
		return runMigrate(logger)
	case "fetch":
		return runFetch(logger, os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("paperdex - arXiv paper ingestion and search service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  paperdex up               Clean boot: cleanup, init store, launch services")
	fmt.Println("  paperdex serve            Start the HTTP API server")
	fmt.Println("  paperdex scheduler        Start the background job daemon")
	fmt.Println("  paperdex migrate          Apply database migrations and exit")
	fmt.Println("  paperdex fetch [flags]    Run one ingest pass")
	fmt.Println("  paperdex version          Show version information")
	fmt.Println("  paperdex help             Show this help")
	fmt.Println()
	fmt.Println("Fetch flags:")
	fmt.Println("  -category string          arXiv category (default from config)")
	fmt.Println("  -days int                 Submission window in days back from today")
	fmt.Println("  -max int                  Maximum number of papers")
	fmt.Println("  -force                    Re-download PDFs even when cached")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  PAPERDEX_*                Override any config key (e.g. PAPERDEX_POSTGRES_HOST)")
	fmt.Println("  DATABASE_URL              Full PostgreSQL URL (overrides postgres_* keys)")
	fmt.Println("  DEBUG                     Enable debug logging")
	fmt.Println("  PAPERDEX_LOG_JSON         JSON log output")
}
