// Package arxiv fetches paper metadata and PDFs from the arXiv API.
//
// The client enforces the API's request spacing (one request per
// rate-limit delay, shared by metadata queries and PDF downloads) with
// golang.org/x/time/rate, and caches downloaded PDFs on disk keyed by
// arXiv id. Concurrent downloads of the same paper are serialized with a
// sidecar file lock.
//
// API reference: https://info.arxiv.org/help/api/user-manual.html
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"github.com/paperdex/paperdex/internal/log"
)

const (
	// downloadRetries is how many attempts a PDF download gets before
	// giving up.
	downloadRetries = 3

	// retryBackoffStep is multiplied by the attempt number between retries
	// (5s, 10s, ...).
	retryBackoffStep = 5 * time.Second
)

// Config holds arXiv client settings.
type Config struct {
	BaseURL    string        // Atom query endpoint
	Category   string        // default search category, e.g. "cs.AI"
	MaxResults int           // default page size for FetchPapers
	RateDelay  time.Duration // minimum spacing between API requests
	Timeout    time.Duration // per-request HTTP timeout
	CacheDir   string        // PDF cache directory, created on demand
}

// Client is a rate-limited client for the arXiv Atom API.
// It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// NewClient creates an arXiv client. logger may be nil.
func NewClient(cfg Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.RateDelay <= 0 {
		cfg.RateDelay = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RateDelay), 1),
		logger:  logger.With("component", "arxiv"),
	}
}

// Category returns the configured default search category.
func (c *Client) Category() string {
	return c.cfg.Category
}

// FetchOption configures a fetch request.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	maxResults int
	start      int
	sortBy     string
	sortOrder  string
	dateFrom   string // YYYYMMDD
	dateTo     string // YYYYMMDD
}

// WithMaxResults overrides the configured default page size.
func WithMaxResults(n int) FetchOption {
	return func(fc *fetchConfig) { fc.maxResults = n }
}

// WithStart sets the pagination offset.
func WithStart(start int) FetchOption {
	return func(fc *fetchConfig) { fc.start = start }
}

// WithSort sets the sort field and order.
func WithSort(by, order string) FetchOption {
	return func(fc *fetchConfig) {
		fc.sortBy = by
		fc.sortOrder = order
	}
}

// WithDateRange restricts results to papers submitted between from and to,
// both in YYYYMMDD format.
func WithDateRange(from, to string) FetchOption {
	return func(fc *fetchConfig) {
		fc.dateFrom = from
		fc.dateTo = to
	}
}

// FetchPapers fetches papers for the configured category.
func (c *Client) FetchPapers(ctx context.Context, opts ...FetchOption) ([]Paper, error) {
	fc := c.buildFetchConfig(opts)

	query := "cat:" + c.cfg.Category
	if fc.dateFrom != "" && fc.dateTo != "" {
		query += fmt.Sprintf(" AND submittedDate:[%s0000 TO %s2359]", fc.dateFrom, fc.dateTo)
	}

	return c.fetch(ctx, query, fc)
}

// FetchPapersWithQuery fetches papers matching a custom arXiv search query,
// e.g. "au:LeCun AND cat:cs.AI" or "ti:transformer".
func (c *Client) FetchPapersWithQuery(ctx context.Context, query string, opts ...FetchOption) ([]Paper, error) {
	return c.fetch(ctx, query, c.buildFetchConfig(opts))
}

func (c *Client) buildFetchConfig(opts []FetchOption) *fetchConfig {
	fc := &fetchConfig{
		maxResults: c.cfg.MaxResults,
		sortBy:     SortBySubmittedDate,
		sortOrder:  SortOrderDescending,
	}
	for _, opt := range opts {
		opt(fc)
	}
	if fc.maxResults <= 0 {
		fc.maxResults = c.cfg.MaxResults
	}
	// The API rejects page sizes above 2000.
	if fc.maxResults > 2000 {
		fc.maxResults = 2000
	}
	return fc
}

func (c *Client) fetch(ctx context.Context, query string, fc *fetchConfig) ([]Paper, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", strconv.Itoa(fc.start))
	params.Set("max_results", strconv.Itoa(fc.maxResults))
	params.Set("sortBy", fc.sortBy)
	params.Set("sortOrder", fc.sortOrder)

	reqURL := c.cfg.BaseURL + "?" + decodeQueryChars(params.Encode())

	c.logger.Info("fetching papers from arXiv",
		"query", query,
		"max_results", fc.maxResults,
		"start", fc.start,
	)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	papers, err := ParseFeed(body, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info("arXiv query returned papers", "count", len(papers))
	return papers, nil
}

// get performs a rate-limited GET and returns the response body.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAPIRequest, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAPIRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrAPIRequest, err)
	}
	return body, nil
}

// decodeQueryChars restores the characters arXiv search queries rely on
// (:, +, [, ]) that url.Values.Encode percent-encodes.
func decodeQueryChars(encoded string) string {
	r := strings.NewReplacer("%3A", ":", "%2B", "+", "%5B", "[", "%5D", "]")
	return r.Replace(encoded)
}

// PDFPath returns the cache path a paper's PDF is (or would be) stored at.
func (c *Client) PDFPath(paper Paper) string {
	name := strings.ReplaceAll(paper.ArxivID, "/", "_") + ".pdf"
	return filepath.Join(c.cfg.CacheDir, name)
}

// DownloadPDF downloads a paper's PDF into the local cache and returns its
// path. A cached copy is reused unless force is set. Concurrent downloads of
// the same paper are serialized with a sidecar file lock so only one process
// writes the cache entry.
func (c *Client) DownloadPDF(ctx context.Context, paper Paper, force bool) (string, error) {
	if paper.PDFURL == "" {
		return "", fmt.Errorf("%w: no PDF URL for %s", ErrDownload, paper.ArxivID)
	}

	if err := os.MkdirAll(c.cfg.CacheDir, 0o750); err != nil {
		return "", fmt.Errorf("%w: creating cache dir: %w", ErrDownload, err)
	}

	pdfPath := c.PDFPath(paper)

	lock := flock.New(pdfPath + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("%w: locking cache entry: %w", ErrDownload, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("failed to release cache lock", "path", pdfPath, "error", err)
		}
	}()

	if !force {
		if info, err := os.Stat(pdfPath); err == nil && info.Size() > 0 {
			c.logger.Debug("using cached PDF", "arxiv_id", paper.ArxivID, "path", pdfPath)
			return pdfPath, nil
		}
	}

	if err := c.downloadWithRetry(ctx, paper.PDFURL, pdfPath); err != nil {
		return "", err
	}
	return pdfPath, nil
}

// downloadWithRetry fetches url into path, retrying with linear backoff.
// The body is written to a sidecar temp file and only renamed into place on
// success, so no failure or cancellation can leave a truncated file at path
// that the cache-hit check would later accept.
func (c *Client) downloadWithRetry(ctx context.Context, srcURL, path string) error {
	tmpPath := path + ".partial"
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove partial download", "path", tmpPath, "error", err)
		}
	}()

	var lastErr error

	for attempt := 1; attempt <= downloadRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrDownload, err)
		}

		err := c.downloadOnce(ctx, srcURL, tmpPath)
		if err == nil {
			if err := os.Rename(tmpPath, path); err != nil {
				return fmt.Errorf("%w: committing download: %w", ErrDownload, err)
			}
			c.logger.Info("downloaded PDF", "url", srcURL, "path", path)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}

		if attempt < downloadRetries {
			backoff := retryBackoffStep * time.Duration(attempt)
			c.logger.Warn("PDF download failed, retrying",
				"attempt", attempt,
				"max_attempts", downloadRetries,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
			}
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %w", ErrDownload, srcURL, downloadRetries, lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, srcURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
