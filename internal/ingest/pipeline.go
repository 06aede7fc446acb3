// Package ingest runs the fetch-download-parse-store pipeline for a category.
package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/paper"
	"github.com/paperdex/paperdex/internal/pdf"
)

// Fetcher lists papers from the arXiv API and downloads their PDFs.
type Fetcher interface {
	FetchPapers(ctx context.Context, opts ...arxiv.FetchOption) ([]arxiv.Paper, error)
	DownloadPDF(ctx context.Context, p arxiv.Paper, force bool) (string, error)
}

// Parser extracts text content from a downloaded PDF.
type Parser interface {
	Parse(path string) (*pdf.Content, error)
}

// Storer persists papers.
type Storer interface {
	UpsertPaper(ctx context.Context, p *paper.Paper) error
}

// Config tunes a pipeline run.
type Config struct {
	MaxResults    int
	MaxDownloads  int  // concurrent PDF downloads
	MaxParses     int  // concurrent PDF parses
	ForceDownload bool // bypass the on-disk PDF cache
}

// Stats summarizes one pipeline run. A paper whose PDF could not be
// downloaded or parsed still counts toward PapersStored: it is persisted
// with metadata only rather than dropped.
type Stats struct {
	PapersFetched  int           `json:"papers_fetched"`
	PDFsDownloaded int64         `json:"pdfs_downloaded"`
	PDFsParsed     int64         `json:"pdfs_parsed"`
	PapersStored   int64         `json:"papers_stored"`
	Errors         int64         `json:"errors"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Pipeline wires the arXiv client, the PDF parser and the store together.
type Pipeline struct {
	fetcher Fetcher
	parser  Parser
	store   Storer
	cfg     Config
	logger  log.Logger
}

// NewPipeline creates a Pipeline. logger may be nil.
func NewPipeline(fetcher Fetcher, parser Parser, store Storer, cfg Config, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.MaxDownloads <= 0 {
		cfg.MaxDownloads = 5
	}
	if cfg.MaxParses <= 0 {
		cfg.MaxParses = 3
	}
	return &Pipeline{
		fetcher: fetcher,
		parser:  parser,
		store:   store,
		cfg:     cfg,
		logger:  logger.With("component", "ingest"),
	}
}

// Run fetches the paper listing and processes every entry. Individual paper
// failures are logged and counted; Run only returns an error when the listing
// itself cannot be fetched or the context is cancelled.
func (p *Pipeline) Run(ctx context.Context, opts ...arxiv.FetchOption) (*Stats, error) {
	start := time.Now()

	if p.cfg.MaxResults > 0 {
		opts = append([]arxiv.FetchOption{arxiv.WithMaxResults(p.cfg.MaxResults)}, opts...)
	}
	papers, err := p.fetcher.FetchPapers(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetch paper listing: %w", err)
	}

	stats := &Stats{PapersFetched: len(papers)}
	p.logger.Info("pipeline run started", "papers", len(papers))

	// Downloads are bounded by the group limit; parsing is CPU and memory
	// heavy, so it gets its own tighter semaphore.
	parseSem := make(chan struct{}, p.cfg.MaxParses)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxDownloads)

	for _, entry := range papers {
		g.Go(func() error {
			return p.processOne(gctx, entry, parseSem, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Elapsed = time.Since(start)
	p.logger.Info("pipeline run finished",
		"fetched", stats.PapersFetched,
		"downloaded", stats.PDFsDownloaded,
		"parsed", stats.PDFsParsed,
		"stored", stats.PapersStored,
		"errors", stats.Errors,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// processOne downloads, parses and stores a single paper. Download and parse
// failures degrade the record to metadata-only; only context cancellation
// aborts the run.
func (p *Pipeline) processOne(ctx context.Context, entry arxiv.Paper, parseSem chan struct{}, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := &paper.Paper{
		ArxivID:    entry.ArxivID,
		Title:      entry.Title,
		Authors:    entry.Authors,
		Summary:    entry.Summary,
		Categories: entry.Categories,
		Published:  entry.Published,
		PDFURL:     entry.PDFURL,
	}

	content, err := p.fetchContent(ctx, entry, parseSem, stats)
	switch {
	case err == nil && content != nil:
		record.PDFProcessed = true
		record.RawText = content.RawText
		record.Sections = content.Sections
		record.ParserUsed = content.Parser
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		atomic.AddInt64(&stats.Errors, 1)
		p.logger.Warn("storing metadata only",
			"arxiv_id", entry.ArxivID, "error", err)
	}

	if err := p.store.UpsertPaper(ctx, record); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		atomic.AddInt64(&stats.Errors, 1)
		p.logger.Error("store paper failed", "arxiv_id", entry.ArxivID, "error", err)
		return nil
	}
	atomic.AddInt64(&stats.PapersStored, 1)
	return nil
}

// fetchContent returns the parsed PDF content for entry, or (nil, nil) when
// the entry carries no PDF link.
func (p *Pipeline) fetchContent(ctx context.Context, entry arxiv.Paper, parseSem chan struct{}, stats *Stats) (*pdf.Content, error) {
	if entry.PDFURL == "" {
		return nil, nil
	}

	path, err := p.fetcher.DownloadPDF(ctx, entry, p.cfg.ForceDownload)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	atomic.AddInt64(&stats.PDFsDownloaded, 1)

	select {
	case parseSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-parseSem }()

	content, err := p.parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	atomic.AddInt64(&stats.PDFsParsed, 1)
	return content, nil
}
