package arxiv

import "time"

// Paper holds the metadata the arXiv Atom API returns for one entry.
type Paper struct {
	ArxivID    string    // e.g. "2401.12345v2" (tail of the Atom id URL)
	Title      string    // newline-cleaned title
	Authors    []string  // author names in feed order
	Summary    string    // newline-cleaned abstract
	Categories []string  // category terms, primary first
	Published  time.Time // submission date
	PDFURL     string    // HTTPS link to the PDF ("" if the entry has none)
}

// SortBy values accepted by the arXiv API.
const (
	SortByRelevance       = "relevance"
	SortByLastUpdatedDate = "lastUpdatedDate"
	SortBySubmittedDate   = "submittedDate"
)

// SortOrder values accepted by the arXiv API.
const (
	SortOrderAscending  = "ascending"
	SortOrderDescending = "descending"
)
