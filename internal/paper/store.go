// Package paper persists papers and users in PostgreSQL.
package paper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperdex/paperdex/internal/log"
)

// Store provides paper and user persistence on top of a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a Store. logger may be nil.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		pool:   pool,
		logger: logger.With("component", "store"),
	}
}

const upsertPaperSQL = `
INSERT INTO papers (
	id, arxiv_id, title, authors, summary, categories, published_date, pdf_url,
	raw_text, sections, parser_used, pdf_processed, pdf_processed_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, CASE WHEN $12 THEN now() ELSE NULL END
)
ON CONFLICT (arxiv_id) DO UPDATE SET
	title            = EXCLUDED.title,
	authors          = EXCLUDED.authors,
	summary          = EXCLUDED.summary,
	categories       = EXCLUDED.categories,
	published_date   = EXCLUDED.published_date,
	pdf_url          = EXCLUDED.pdf_url,
	raw_text         = COALESCE(EXCLUDED.raw_text, papers.raw_text),
	sections         = COALESCE(EXCLUDED.sections, papers.sections),
	parser_used      = COALESCE(EXCLUDED.parser_used, papers.parser_used),
	pdf_processed    = papers.pdf_processed OR EXCLUDED.pdf_processed,
	pdf_processed_at = COALESCE(papers.pdf_processed_at, EXCLUDED.pdf_processed_at),
	updated_at       = now()
RETURNING id`

// UpsertPaper inserts p or updates the row with the same arxiv_id. Parsed
// content already in the row is never downgraded by a metadata-only upsert.
// The assigned row ID is written back into p.
func (s *Store) UpsertPaper(ctx context.Context, p *Paper) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	var (
		rawText  *string
		sections []byte
		parser   *string
		err      error
	)
	if p.PDFProcessed {
		rawText = &p.RawText
		parser = &p.ParserUsed
		sections, err = json.Marshal(p.Sections)
		if err != nil {
			return fmt.Errorf("marshal sections: %w", err)
		}
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, upsertPaperSQL,
		p.ID, p.ArxivID, p.Title, p.Authors, p.Summary, p.Categories,
		nullableTime(p.Published), p.PDFURL,
		rawText, sections, parser, p.PDFProcessed,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert paper %s: %w", p.ArxivID, err)
	}

	p.ID = id
	return nil
}

const selectPaperSQL = `
SELECT id, arxiv_id, title, authors, summary, categories, published_date,
	pdf_url, COALESCE(raw_text, ''), sections, COALESCE(parser_used, ''),
	pdf_processed, pdf_processed_at, created_at, updated_at
FROM papers`

// GetPaper returns the paper with the given arXiv ID, or ErrNotFound.
func (s *Store) GetPaper(ctx context.Context, arxivID string) (*Paper, error) {
	row := s.pool.QueryRow(ctx, selectPaperSQL+` WHERE arxiv_id = $1`, arxivID)
	p, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: paper %s", ErrNotFound, arxivID)
		}
		return nil, fmt.Errorf("get paper %s: %w", arxivID, err)
	}
	return p, nil
}

// ListPapers returns papers ordered by publication date, newest first.
// An empty opts.Category matches all categories.
func (s *Store) ListPapers(ctx context.Context, opts ListOptions) ([]*Paper, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := selectPaperSQL
	args := []any{opts.Limit, opts.Offset}
	if opts.Category != "" {
		query += ` WHERE $3 = ANY(categories)`
		args = append(args, opts.Category)
	}
	query += ` ORDER BY published_date DESC NULLS LAST, arxiv_id LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var papers []*Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("list papers: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// CountPapers returns the total number of stored papers.
func (s *Store) CountPapers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

const insertUserSQL = `
INSERT INTO users (id, username, first_name, last_name, email, role, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// CreateUser inserts u. Returns ErrDuplicateUser if the username is taken,
// so callers bootstrapping default accounts can treat re-runs as success.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = "viewer"
	}

	_, err := s.pool.Exec(ctx, insertUserSQL,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.Role, u.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, u.Username)
		}
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return nil
}

// GetUser returns the user with the given username, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, email, role, password_hash, created_at
		FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Role,
		&u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, username)
		}
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return u, nil
}

func scanPaper(row pgx.Row) (*Paper, error) {
	p := &Paper{}
	var (
		sections  []byte
		published *time.Time
	)
	err := row.Scan(&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.Summary,
		&p.Categories, &published, &p.PDFURL, &p.RawText, &sections,
		&p.ParserUsed, &p.PDFProcessed, &p.PDFProcessedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if published != nil {
		p.Published = *published
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &p.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	return p, nil
}

// nullableTime maps the zero time to SQL NULL. arXiv entries with an
// unparseable published date carry a zero time.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
