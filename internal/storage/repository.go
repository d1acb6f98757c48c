package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/glabrego/conch/internal/blast"
)

const defaultLimit = 42

// Repository stores blasts in SQLite and serves them as a blast.Source.
type Repository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewRepository(path string, logger *log.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// between the poller and a concurrent post.
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Repository{db: db, logger: logger.WithPrefix("storage")}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS blasts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  author TEXT NOT NULL,
  content TEXT NOT NULL,
  posted_at TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	r.logger.Debug("schema ready")
	return nil
}

// CheckWritable verifies the database file accepts writes.
func (r *Repository) CheckWritable(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS write_check (id INTEGER)`); err != nil {
		return fmt.Errorf("write check: %w", err)
	}
	return nil
}

// Post stores a new blast. Its id is assigned by SQLite and is greater than
// every id handed out before.
func (r *Repository) Post(ctx context.Context, author, content string) (blast.Blast, error) {
	author, content, err := blast.ValidatePost(author, content)
	if err != nil {
		return blast.Blast{}, err
	}
	posted := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO blasts (author, content, posted_at)
VALUES (?, ?, ?)
`, author, content, posted.Format(time.RFC3339Nano))
	if err != nil {
		return blast.Blast{}, fmt.Errorf("save blast: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return blast.Blast{}, fmt.Errorf("read blast id: %w", err)
	}
	r.logger.Debug("posted blast", "id", id, "author", author)
	return blast.Blast{ID: id, Author: author, Content: content, PostedAt: posted}, nil
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]blast.Blast, error) {
	return r.query(ctx, `
SELECT id, author, content, posted_at
FROM blasts
ORDER BY id DESC
LIMIT ?
`, normalizeLimit(limit))
}

func (r *Repository) After(ctx context.Context, id int64, limit int) ([]blast.Blast, error) {
	// Take the oldest blasts past the boundary so a gap larger than limit is
	// filled in order on the next call, then present them newest-first.
	out, err := r.query(ctx, `
SELECT id, author, content, posted_at
FROM blasts
WHERE id > ?
ORDER BY id ASC
LIMIT ?
`, id, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *Repository) Before(ctx context.Context, id int64, limit int) ([]blast.Blast, error) {
	return r.query(ctx, `
SELECT id, author, content, posted_at
FROM blasts
WHERE id < ?
ORDER BY id DESC
LIMIT ?
`, id, normalizeLimit(limit))
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]blast.Blast, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query blasts: %w", err)
	}
	defer rows.Close()

	var out []blast.Blast
	for rows.Next() {
		var b blast.Blast
		var postedAt string
		if err := rows.Scan(&b.ID, &b.Author, &b.Content, &postedAt); err != nil {
			return nil, fmt.Errorf("scan blast: %w", err)
		}
		b.PostedAt, err = time.Parse(time.RFC3339Nano, postedAt)
		if err != nil {
			return nil, fmt.Errorf("parse blast posted_at %q: %w", postedAt, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return defaultLimit
	}
	return limit
}
