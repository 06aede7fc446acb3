package arxiv

import "errors"

// Sentinel errors for arXiv operations.
// Check with errors.Is():
//
//	papers, err := client.FetchPapers(ctx)
//	if errors.Is(err, arxiv.ErrAPIRequest) { ... }
var (
	// ErrAPIRequest indicates the arXiv API request failed (network error or
	// non-2xx status).
	ErrAPIRequest = errors.New("arxiv API request failed")

	// ErrParse indicates the Atom feed could not be parsed.
	ErrParse = errors.New("arxiv feed parse failed")

	// ErrDownload indicates a PDF download failed after all retries.
	ErrDownload = errors.New("pdf download failed")
)
