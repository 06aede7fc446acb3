package pdf

// ParserPlainText identifies the built-in plain-text extractor in stored
// paper records, so future parsers (e.g. GROBID) can be told apart.
const ParserPlainText = "plaintext"

// Section is one heuristically detected section of a paper.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Level   int    `json:"level"`
}

// Content is the text extracted from one PDF.
type Content struct {
	Sections []Section `json:"sections"`
	RawText  string    `json:"raw_text"`
	Pages    int       `json:"pages"`
	Parser   string    `json:"parser"`
}
