package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdex/paperdex/internal/log"
)

// testClient returns a client pointed at srv with a rate delay short enough
// for tests.
func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:    srv.URL,
		Category:   "cs.AI",
		MaxResults: 100,
		RateDelay:  time.Millisecond,
		Timeout:    5 * time.Second,
		CacheDir:   t.TempDir(),
	}, log.NewNop())
}

func TestFetchPapers_QueryBuilding(t *testing.T) {
	var gotQuery atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := testClient(t, srv)

	papers, err := c.FetchPapers(context.Background(),
		WithMaxResults(25),
		WithDateRange("20240101", "20240131"),
	)
	require.NoError(t, err)
	assert.Len(t, papers, 2)

	raw, _ := gotQuery.Load().(string)
	assert.Contains(t, raw, "search_query=cat:cs.AI")
	assert.Contains(t, raw, "submittedDate:[202401010000+TO+202401312359]")
	assert.Contains(t, raw, "max_results=25")
	assert.Contains(t, raw, "sortBy=submittedDate")
	assert.Contains(t, raw, "sortOrder=descending")
}

func TestFetchPapersWithQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "au:LeCun") {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := testClient(t, srv)

	papers, err := c.FetchPapersWithQuery(context.Background(), "au:LeCun AND cat:cs.AI")
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestFetchPapers_MaxResultsCap(t *testing.T) {
	var gotQuery atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := testClient(t, srv)

	_, err := c.FetchPapers(context.Background(), WithMaxResults(100000))
	require.NoError(t, err)

	raw, _ := gotQuery.Load().(string)
	assert.Contains(t, raw, "max_results=2000")
}

func TestFetchPapers_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv)

	_, err := c.FetchPapers(context.Background())
	assert.ErrorIs(t, err, ErrAPIRequest)
}

func TestDownloadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.5 fake body"))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	paper := Paper{ArxivID: "2401.12345v1", PDFURL: srv.URL + "/pdf/2401.12345v1"}

	path, err := c.DownloadPDF(context.Background(), paper, false)
	require.NoError(t, err)
	assert.Equal(t, c.PDFPath(paper), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestDownloadPDF_CacheHit(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("%PDF-1.5 fake body"))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	paper := Paper{ArxivID: "2401.12345v1", PDFURL: srv.URL}

	_, err := c.DownloadPDF(context.Background(), paper, false)
	require.NoError(t, err)
	_, err = c.DownloadPDF(context.Background(), paper, false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "second download should hit the cache")

	// force re-downloads even with a cached copy
	_, err = c.DownloadPDF(context.Background(), paper, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloadPDF_SlashInID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.5"))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	paper := Paper{ArxivID: "cond-mat/0001001v2", PDFURL: srv.URL}

	path, err := c.DownloadPDF(context.Background(), paper, false)
	require.NoError(t, err)
	assert.Equal(t, "cond-mat_0001001v2.pdf", filepath.Base(path))
}

func TestDownloadPDF_NoURL(t *testing.T) {
	c := NewClient(Config{CacheDir: t.TempDir(), RateDelay: time.Millisecond}, log.NewNop())

	_, err := c.DownloadPDF(context.Background(), Paper{ArxivID: "2401.00001v1"}, false)
	assert.ErrorIs(t, err, ErrDownload)
}

func TestDownloadPDF_TruncatedBodyNotCached(t *testing.T) {
	var hits atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			// Advertise more bytes than we send, then cancel the caller's
			// context so the client gives up mid-download.
			w.Header().Set("Content-Length", "100")
			_, _ = w.Write([]byte("%PDF-1.5 partial"))
			cancel()
			return
		}
		_, _ = w.Write([]byte("%PDF-1.5 complete body"))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	paper := Paper{ArxivID: "2401.00003v1", PDFURL: srv.URL}

	_, err := c.DownloadPDF(ctx, paper, false)
	require.ErrorIs(t, err, ErrDownload)

	// The truncated body must not be left where the cache-hit check
	// would accept it, and no temp file may linger either.
	assert.NoFileExists(t, c.PDFPath(paper))
	assert.NoFileExists(t, c.PDFPath(paper)+".partial")

	// A later download must go back to the server and get the full body.
	path, err := c.DownloadPDF(context.Background(), paper, false)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5 complete body", string(data))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloadPDF_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DownloadPDF(ctx, Paper{ArxivID: "2401.00002v1", PDFURL: srv.URL}, false)
	assert.ErrorIs(t, err, ErrDownload)
}
