package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/paper"
	"github.com/paperdex/paperdex/internal/pdf"
)

type fakeFetcher struct {
	papers      []arxiv.Paper
	fetchErr    error
	downloadErr map[string]error // keyed by arxiv id
}

func (f *fakeFetcher) FetchPapers(_ context.Context, _ ...arxiv.FetchOption) ([]arxiv.Paper, error) {
	return f.papers, f.fetchErr
}

func (f *fakeFetcher) DownloadPDF(_ context.Context, p arxiv.Paper, _ bool) (string, error) {
	if err := f.downloadErr[p.ArxivID]; err != nil {
		return "", err
	}
	return "/cache/" + p.ArxivID + ".pdf", nil
}

type fakeParser struct {
	failPaths map[string]error
}

func (f *fakeParser) Parse(path string) (*pdf.Content, error) {
	if err := f.failPaths[path]; err != nil {
		return nil, err
	}
	return &pdf.Content{
		RawText:  "text of " + path,
		Sections: []pdf.Section{{Title: "Content", Content: "text", Level: 1}},
		Pages:    3,
		Parser:   pdf.ParserPlainText,
	}, nil
}

type fakeStore struct {
	mu     sync.Mutex
	stored map[string]*paper.Paper
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: make(map[string]*paper.Paper)}
}

func (f *fakeStore) UpsertPaper(_ context.Context, p *paper.Paper) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.stored[p.ArxivID] = &cp
	return nil
}

func entry(id string) arxiv.Paper {
	return arxiv.Paper{
		ArxivID: id,
		Title:   "Paper " + id,
		PDFURL:  "https://arxiv.org/pdf/" + id,
	}
}

func TestPipeline_Run(t *testing.T) {
	fetcher := &fakeFetcher{papers: []arxiv.Paper{entry("2301.00001"), entry("2301.00002")}}
	store := newFakeStore()
	p := NewPipeline(fetcher, &fakeParser{}, store, Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PapersFetched)
	assert.EqualValues(t, 2, stats.PDFsDownloaded)
	assert.EqualValues(t, 2, stats.PDFsParsed)
	assert.EqualValues(t, 2, stats.PapersStored)
	assert.EqualValues(t, 0, stats.Errors)

	got := store.stored["2301.00001"]
	require.NotNil(t, got)
	assert.True(t, got.PDFProcessed)
	assert.NotEmpty(t, got.RawText)
}

func TestPipeline_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{fetchErr: arxiv.ErrAPIRequest}
	p := NewPipeline(fetcher, &fakeParser{}, newFakeStore(), Config{}, nil)

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, arxiv.ErrAPIRequest)
}

func TestPipeline_DownloadFailureDegradesToMetadata(t *testing.T) {
	fetcher := &fakeFetcher{
		papers:      []arxiv.Paper{entry("2301.00001"), entry("2301.00002")},
		downloadErr: map[string]error{"2301.00002": arxiv.ErrDownload},
	}
	store := newFakeStore()
	p := NewPipeline(fetcher, &fakeParser{}, store, Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.PDFsDownloaded)
	assert.EqualValues(t, 2, stats.PapersStored)
	assert.EqualValues(t, 1, stats.Errors)

	degraded := store.stored["2301.00002"]
	require.NotNil(t, degraded)
	assert.False(t, degraded.PDFProcessed)
	assert.Empty(t, degraded.RawText)
}

func TestPipeline_ParseFailureDegradesToMetadata(t *testing.T) {
	fetcher := &fakeFetcher{papers: []arxiv.Paper{entry("2301.00001")}}
	parser := &fakeParser{failPaths: map[string]error{
		"/cache/2301.00001.pdf": pdf.ErrTooManyPages,
	}}
	store := newFakeStore()
	p := NewPipeline(fetcher, parser, store, Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.PDFsDownloaded)
	assert.EqualValues(t, 0, stats.PDFsParsed)
	assert.EqualValues(t, 1, stats.PapersStored)
	assert.EqualValues(t, 1, stats.Errors)

	got := store.stored["2301.00001"]
	require.NotNil(t, got)
	assert.False(t, got.PDFProcessed)
}

func TestPipeline_NoPDFURL(t *testing.T) {
	e := entry("2301.00001")
	e.PDFURL = ""
	store := newFakeStore()
	p := NewPipeline(&fakeFetcher{papers: []arxiv.Paper{e}}, &fakeParser{}, store, Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 0, stats.PDFsDownloaded)
	assert.EqualValues(t, 1, stats.PapersStored)
	assert.EqualValues(t, 0, stats.Errors)
}

func TestPipeline_StoreErrorCounted(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	p := NewPipeline(&fakeFetcher{papers: []arxiv.Paper{entry("2301.00001")}},
		&fakeParser{}, store, Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.PapersStored)
	assert.EqualValues(t, 1, stats.Errors)
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&fakeFetcher{papers: []arxiv.Paper{entry("2301.00001")}},
		&fakeParser{}, newFakeStore(), Config{}, nil)

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
