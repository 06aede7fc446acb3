package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Server validation
	if c.ServeAddr == "" {
		return fmt.Errorf("%w: serve_addr cannot be empty", ErrInvalidServeAddr)
	}

	// 2. arXiv client validation
	u, err := url.Parse(c.ArxivBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidArxivBaseURL, c.ArxivBaseURL)
	}

	if c.ArxivCategory == "" {
		return fmt.Errorf("%w: arxiv_category cannot be empty", ErrInvalidArxivCategory)
	}

	if c.ArxivMaxResults < 1 || c.ArxivMaxResults > MaxArxivResults {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidMaxResults, MaxArxivResults, c.ArxivMaxResults)
	}

	// arXiv asks for at least 3 seconds between requests; allow shorter delays
	// only for tests but reject zero/negative and absurdly long values.
	if c.ArxivRateDelay <= 0 || c.ArxivRateDelay > time.Minute {
		return fmt.Errorf("%w: must be between 1ns and 1m, got %s", ErrInvalidRateDelay, c.ArxivRateDelay)
	}
	if c.ArxivRateDelay < DefaultArxivRateDelay {
		slog.Warn("arxiv_rate_delay below the 3s the arXiv API asks for",
			"delay", c.ArxivRateDelay)
	}

	// 3. PDF parser validation
	if c.PDFMaxPages < 1 || c.PDFMaxPages > 1000 {
		return fmt.Errorf("%w: pdf_max_pages must be between 1 and 1000, got %d",
			ErrInvalidPDFLimits, c.PDFMaxPages)
	}
	if c.PDFMaxFileSizeMB < 1 || c.PDFMaxFileSizeMB > 500 {
		return fmt.Errorf("%w: pdf_max_file_size_mb must be between 1 and 500, got %d",
			ErrInvalidPDFLimits, c.PDFMaxFileSizeMB)
	}

	// 4. Ingest concurrency validation
	if c.MaxConcurrentDownloads < 1 || c.MaxConcurrentDownloads > 64 {
		return fmt.Errorf("%w: max_concurrent_downloads must be between 1 and 64, got %d",
			ErrInvalidConcurrency, c.MaxConcurrentDownloads)
	}
	if c.MaxConcurrentParses < 1 || c.MaxConcurrentParses > 64 {
		return fmt.Errorf("%w: max_concurrent_parses must be between 1 and 64, got %d",
			ErrInvalidConcurrency, c.MaxConcurrentParses)
	}

	// 5. PostgreSQL validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}

	// Warn on the default dev password but don't block local development.
	if c.PostgresPassword == "paperdex_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 6. Startup sequencer validation
	if c.BootPause < 0 || c.BootPause > time.Minute {
		return fmt.Errorf("%w: must be between 0 and 1m, got %s", ErrInvalidBootPause, c.BootPause)
	}
	if c.AdminUsername == "" {
		return fmt.Errorf("%w: admin_username cannot be empty", ErrInvalidAdminAccount)
	}
	if c.AdminPassword == "" {
		return fmt.Errorf("%w: admin_password cannot be empty", ErrInvalidAdminAccount)
	}
	if c.AdminPassword == "admin" {
		slog.Warn("Using default admin password",
			"warning", "Change admin_password for production deployments")
	}

	return nil
}
