// Package pdf validates and extracts text from downloaded paper PDFs.
//
// Validation happens before any parsing: existence, non-empty, size cap and
// the %PDF- magic header. The page cap is enforced once the document is open.
// Extraction produces the full plain text plus a heuristic section split;
// paper metadata is not read from the PDF — it comes from the arXiv API.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/paperdex/paperdex/internal/log"
)

// pdfHeader is the magic byte sequence every PDF starts with.
var pdfHeader = []byte("%PDF-")

// Parser validates and extracts text from PDF files.
type Parser struct {
	maxPages    int
	maxFileSize int64
	logger      log.Logger
}

// NewParser creates a Parser. maxFileSizeMB and maxPages guard against
// memory blowups on oversized papers. logger may be nil.
func NewParser(maxPages, maxFileSizeMB int, logger log.Logger) *Parser {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Parser{
		maxPages:    maxPages,
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
		logger:      logger.With("component", "pdf"),
	}
}

// Validate performs the cheap pre-parse checks on path.
// Returns one of the sentinel errors on failure.
func (p *Parser) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}

	if info.Size() > p.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes (limit %d)",
			ErrFileTooLarge, path, info.Size(), p.maxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(pdfHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotPDF, path, err)
	}
	if !bytes.Equal(header, pdfHeader) {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}

	return nil
}

// Parse validates path and extracts its text content.
func (p *Parser) Parse(path string) (*Content, error) {
	if err := p.Validate(path); err != nil {
		return nil, err
	}
	return p.extract(path)
}

// extract opens and reads the document. The reader library panics on some
// malformed inputs, so the recover turns those into ErrExtract.
func (p *Parser) extract(path string) (content *Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = fmt.Errorf("%w: %s: %v", ErrExtract, path, r)
		}
	}()

	f, reader, err := pdfreader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtract, path, err)
	}
	defer f.Close()

	pages := reader.NumPage()
	if pages > p.maxPages {
		return nil, fmt.Errorf("%w: %s has %d pages (limit %d)",
			ErrTooManyPages, path, pages, p.maxPages)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtract, path, err)
	}

	raw, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtract, path, err)
	}

	content = &Content{
		Sections: SplitSections(string(raw)),
		RawText:  string(raw),
		Pages:    pages,
		Parser:   ParserPlainText,
	}

	p.logger.Debug("parsed PDF",
		"path", path,
		"pages", pages,
		"chars", len(content.RawText),
		"sections", len(content.Sections),
	)
	return content, nil
}
