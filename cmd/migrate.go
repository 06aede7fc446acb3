package cmd

import (
	"fmt"

	"github.com/paperdex/paperdex/db"
	"github.com/paperdex/paperdex/internal/log"
)

// runMigrate applies all pending database migrations and exits.
func runMigrate(logger log.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("applying database migrations",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName,
	)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	logger.Info("migrations applied")
	return nil
}
