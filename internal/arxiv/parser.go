package arxiv

// parser.go turns the arXiv Atom response into Paper values.
// Feed format: https://info.arxiv.org/help/api/user-manual.html#32-the-api-response

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// atomFeed mirrors the subset of the Atom response we consume.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

// ParseFeed parses an arXiv Atom feed into Paper values.
// Entries without an id are skipped with a warning rather than failing the
// whole feed; a malformed document returns ErrParse.
func ParseFeed(data []byte, logger *slog.Logger) ([]Paper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		id := entryArxivID(entry.ID)
		if id == "" {
			logger.Warn("skipping arXiv entry without id")
			continue
		}

		papers = append(papers, Paper{
			ArxivID:    id,
			Title:      cleanText(entry.Title),
			Authors:    entryAuthors(entry),
			Summary:    cleanText(entry.Summary),
			Categories: entryCategories(entry),
			Published:  parsePublished(entry.Published, logger),
			PDFURL:     entryPDFURL(entry),
		})
	}

	return papers, nil
}

// entryArxivID extracts the arXiv id from the Atom entry id URL,
// e.g. "http://arxiv.org/abs/2401.12345v1" -> "2401.12345v1".
func entryArxivID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func entryAuthors(entry atomEntry) []string {
	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := cleanText(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func entryCategories(entry atomEntry) []string {
	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}
	return categories
}

// entryPDFURL returns the entry's PDF link, upgraded to HTTPS.
func entryPDFURL(entry atomEntry) string {
	for _, link := range entry.Links {
		if link.Type != "application/pdf" {
			continue
		}
		url := link.Href
		if strings.HasPrefix(url, "http://arxiv.org/") {
			url = "https://arxiv.org/" + strings.TrimPrefix(url, "http://arxiv.org/")
		}
		return url
	}
	return ""
}

func parsePublished(s string, logger *slog.Logger) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		logger.Warn("unparseable published date", "value", s, "error", err)
		return time.Time{}
	}
	return t
}

// cleanText trims an Atom text field and collapses the hard-wrapped newlines
// arXiv inserts into titles and abstracts.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
