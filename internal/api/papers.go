package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/paperdex/paperdex/internal/arxiv"
	"github.com/paperdex/paperdex/internal/ingest"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/paper"
)

const (
	maxListLimit  = 200
	maxListOffset = 10000
)

// PaperStore is the persistence surface the handlers need.
type PaperStore interface {
	GetPaper(ctx context.Context, arxivID string) (*paper.Paper, error)
	ListPapers(ctx context.Context, opts paper.ListOptions) ([]*paper.Paper, error)
	CountPapers(ctx context.Context) (int64, error)
}

// Ingester runs one ingest pipeline pass.
type Ingester interface {
	Run(ctx context.Context, opts ...arxiv.FetchOption) (*ingest.Stats, error)
}

type papersHandler struct {
	store  PaperStore
	logger log.Logger
}

// listPapers handles GET /api/v1/papers with category, limit and offset
// query parameters. PDF text is omitted from listings.
func (h *papersHandler) listPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), 50, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit",
			"limit must be an integer between 1 and 200", h.logger)
		return
	}
	offset, err := queryInt(q.Get("offset"), 0, maxListOffset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_offset",
			"offset must be an integer between 0 and 10000", h.logger)
		return
	}

	papers, err := h.store.ListPapers(r.Context(), paper.ListOptions{
		Category: q.Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.logger.Error("list papers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed",
			"failed to list papers", h.logger)
		return
	}

	total, err := h.store.CountPapers(r.Context())
	if err != nil {
		h.logger.Error("count papers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed",
			"failed to count papers", h.logger)
		return
	}

	items := make([]*paper.Paper, 0, len(papers))
	items = append(items, papers...)
	writeJSON(w, http.StatusOK, map[string]any{
		"papers": items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}, h.logger)
}

// getPaper handles GET /api/v1/papers/{id} where id is an arXiv identifier.
func (h *papersHandler) getPaper(w http.ResponseWriter, r *http.Request) {
	arxivID := r.PathValue("id")
	if arxivID == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "missing paper ID", h.logger)
		return
	}

	p, err := h.store.GetPaper(r.Context(), arxivID)
	if err != nil {
		if errors.Is(err, paper.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "paper not found", h.logger)
			return
		}
		h.logger.Error("get paper failed", "arxiv_id", arxivID, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed",
			"failed to get paper", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, p, h.logger)
}

type ingestHandler struct {
	pipeline Ingester
	running  atomic.Bool
	logger   log.Logger
}

// triggerIngest handles POST /api/v1/ingest. Only one run may be active at a
// time; concurrent triggers get 409.
func (h *ingestHandler) triggerIngest(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "ingest_disabled",
			"ingest pipeline not configured", h.logger)
		return
	}
	if !h.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "ingest_running",
			"an ingest run is already in progress", h.logger)
		return
	}
	defer h.running.Store(false)

	var opts []arxiv.FetchOption
	q := r.URL.Query()
	if from, to := q.Get("from"), q.Get("to"); from != "" && to != "" {
		opts = append(opts, arxiv.WithDateRange(from, to))
	}
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_max_results",
				"max_results must be a positive integer", h.logger)
			return
		}
		opts = append(opts, arxiv.WithMaxResults(n))
	}

	stats, err := h.pipeline.Run(r.Context(), opts...)
	if err != nil {
		h.logger.Error("ingest run failed", "error", err)
		writeError(w, http.StatusBadGateway, "ingest_failed",
			"ingest run failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats, h.logger)
}

// queryInt parses a bounded non-negative integer query parameter.
func queryInt(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > max {
		return 0, errors.New("out of range")
	}
	return n, nil
}
