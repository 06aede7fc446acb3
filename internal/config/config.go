// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, PAPERDEX_ prefix)
//  2. Config file (~/.paperdex/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - ArXiv: API endpoint, search category, rate limiting, PDF cache
//   - PDF: parser page and file-size limits
//   - Ingest: pipeline concurrency and fetch window
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: HTTP API listen address and rate limiting
//   - Scheduler: periodic job intervals
//   - Boot: startup sequencer PID files, pause, admin account
//
// Security: the PostgreSQL and admin passwords are never logged; MarshalJSON
// masks them. Validation uses sentinel errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidServeAddr indicates the HTTP listen address is invalid.
	ErrInvalidServeAddr = errors.New("invalid serve address")

	// ErrInvalidArxivBaseURL indicates the arXiv API base URL is invalid.
	ErrInvalidArxivBaseURL = errors.New("invalid arXiv base URL")

	// ErrInvalidArxivCategory indicates the search category is empty.
	ErrInvalidArxivCategory = errors.New("invalid arXiv category")

	// ErrInvalidMaxResults indicates arxiv_max_results is out of range.
	ErrInvalidMaxResults = errors.New("invalid arXiv max results")

	// ErrInvalidRateDelay indicates the arXiv rate-limit delay is out of range.
	ErrInvalidRateDelay = errors.New("invalid arXiv rate delay")

	// ErrInvalidPDFLimits indicates a PDF parser limit is out of range.
	ErrInvalidPDFLimits = errors.New("invalid PDF parser limits")

	// ErrInvalidConcurrency indicates an ingest concurrency bound is out of range.
	ErrInvalidConcurrency = errors.New("invalid ingest concurrency")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidAdminAccount indicates the admin account settings are invalid.
	ErrInvalidAdminAccount = errors.New("invalid admin account")

	// ErrInvalidBootPause indicates the sequencer pause is out of range.
	ErrInvalidBootPause = errors.New("invalid boot pause")
)

// DefaultArxivBaseURL is the arXiv Atom query endpoint.
const DefaultArxivBaseURL = "https://export.arxiv.org/api/query"

// arXiv asks clients to wait at least three seconds between requests.
// https://info.arxiv.org/help/api/user-manual.html
const DefaultArxivRateDelay = 3 * time.Second

// MaxArxivResults is the hard cap the arXiv API places on a single query.
const MaxArxivResults = 2000

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	Environment string `mapstructure:"environment" json:"environment"` // dev, staging, prod

	// HTTP API server
	ServeAddr  string `mapstructure:"serve_addr" json:"serve_addr"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP token bucket burst (0 = default)

	// arXiv client
	ArxivBaseURL    string        `mapstructure:"arxiv_base_url" json:"arxiv_base_url"`
	ArxivCategory   string        `mapstructure:"arxiv_category" json:"arxiv_category"`
	ArxivMaxResults int           `mapstructure:"arxiv_max_results" json:"arxiv_max_results"`
	ArxivRateDelay  time.Duration `mapstructure:"arxiv_rate_delay" json:"arxiv_rate_delay"`
	ArxivTimeout    time.Duration `mapstructure:"arxiv_timeout" json:"arxiv_timeout"`
	PDFCacheDir     string        `mapstructure:"pdf_cache_dir" json:"pdf_cache_dir"`

	// PDF parser
	PDFMaxPages      int `mapstructure:"pdf_max_pages" json:"pdf_max_pages"`
	PDFMaxFileSizeMB int `mapstructure:"pdf_max_file_size_mb" json:"pdf_max_file_size_mb"`

	// Ingest pipeline
	MaxConcurrentDownloads int `mapstructure:"max_concurrent_downloads" json:"max_concurrent_downloads"`
	MaxConcurrentParses    int `mapstructure:"max_concurrent_parses" json:"max_concurrent_parses"`
	IngestWindowDays       int `mapstructure:"ingest_window_days" json:"ingest_window_days"`

	// Scheduler daemon
	IngestInterval       time.Duration `mapstructure:"ingest_interval" json:"ingest_interval"`
	ServiceCheckInterval time.Duration `mapstructure:"service_check_interval" json:"service_check_interval"`

	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Startup sequencer
	RunDir         string        `mapstructure:"run_dir" json:"run_dir"` // PID marker file directory
	BootPause      time.Duration `mapstructure:"boot_pause" json:"boot_pause"`
	AdminUsername  string        `mapstructure:"admin_username" json:"admin_username"`
	AdminPassword  string        `mapstructure:"admin_password" json:"admin_password"` // SENSITIVE: masked in MarshalJSON
	AdminEmail     string        `mapstructure:"admin_email" json:"admin_email"`
	AdminFirstName string        `mapstructure:"admin_first_name" json:"admin_first_name"`
	AdminLastName  string        `mapstructure:"admin_last_name" json:"admin_last_name"`

	// Observability
	TracingEnabled bool   `mapstructure:"tracing_enabled" json:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".paperdex")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Fail fast on invalid configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("environment", "dev")

	// Server defaults (the container image exposes 8000)
	viper.SetDefault("serve_addr", ":8000")
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	// arXiv defaults
	viper.SetDefault("arxiv_base_url", DefaultArxivBaseURL)
	viper.SetDefault("arxiv_category", "cs.AI")
	viper.SetDefault("arxiv_max_results", 100)
	viper.SetDefault("arxiv_rate_delay", DefaultArxivRateDelay)
	viper.SetDefault("arxiv_timeout", 30*time.Second)
	viper.SetDefault("pdf_cache_dir", "./data/arxiv_pdfs")

	// PDF parser defaults
	viper.SetDefault("pdf_max_pages", 30)
	viper.SetDefault("pdf_max_file_size_mb", 20)

	// Ingest defaults
	viper.SetDefault("max_concurrent_downloads", 5)
	viper.SetDefault("max_concurrent_parses", 3)
	viper.SetDefault("ingest_window_days", 7)

	// Scheduler defaults
	viper.SetDefault("ingest_interval", 6*time.Hour)
	viper.SetDefault("service_check_interval", 5*time.Minute)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "paperdex")
	viper.SetDefault("postgres_password", "paperdex_dev_password")
	viper.SetDefault("postgres_db_name", "paperdex")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Startup sequencer defaults
	viper.SetDefault("run_dir", "./run")
	viper.SetDefault("boot_pause", 3*time.Second)
	viper.SetDefault("admin_username", "admin")
	viper.SetDefault("admin_password", "admin")
	viper.SetDefault("admin_email", "admin@example.com")
	viper.SetDefault("admin_first_name", "Admin")
	viper.SetDefault("admin_last_name", "User")

	// Observability defaults
	viper.SetDefault("tracing_enabled", false)
	viper.SetDefault("otlp_endpoint", "localhost:4318")
}

// bindEnvVariables binds environment variables with the PAPERDEX_ prefix.
// Example: PAPERDEX_POSTGRES_HOST overrides postgres_host.
func bindEnvVariables() {
	viper.SetEnvPrefix("PAPERDEX")
	viper.AutomaticEnv()
}

// MarshalJSON masks sensitive fields when the configuration is serialized,
// e.g. for debug dumps.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	if masked.AdminPassword != "" {
		masked.AdminPassword = "***"
	}
	return json.Marshal(masked)
}

// PIDFiles returns the marker file paths for the two managed services.
func (c *Config) PIDFiles() (webserver, scheduler string) {
	return filepath.Join(c.RunDir, "paperdex-webserver.pid"),
		filepath.Join(c.RunDir, "paperdex-scheduler.pid")
}
