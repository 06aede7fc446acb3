package paper

import (
	"time"

	"github.com/google/uuid"

	"github.com/paperdex/paperdex/internal/pdf"
)

// Paper is a stored arXiv paper, optionally with parsed PDF content.
type Paper struct {
	ID             uuid.UUID     `json:"id"`
	ArxivID        string        `json:"arxiv_id"`
	Title          string        `json:"title"`
	Authors        []string      `json:"authors"`
	Summary        string        `json:"summary"`
	Categories     []string      `json:"categories"`
	Published      time.Time     `json:"published_date"`
	PDFURL         string        `json:"pdf_url"`
	RawText        string        `json:"-"`
	Sections       []pdf.Section `json:"sections,omitempty"`
	ParserUsed     string        `json:"parser_used,omitempty"`
	PDFProcessed   bool          `json:"pdf_processed"`
	PDFProcessedAt *time.Time    `json:"pdf_processed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// User is an account in the users table. Only the admin account is created
// automatically; the sequencer absorbs the duplicate on re-runs.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleAdmin is the role granted to the bootstrap account.
const RoleAdmin = "admin"

// ListOptions controls paper listing.
type ListOptions struct {
	Category string
	Limit    int
	Offset   int
}
