// Package blast defines the feed entry type and the contract for fetching it.
package blast

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyAuthor indicates a blast was posted without an author.
	ErrEmptyAuthor = errors.New("blast author cannot be empty")

	// ErrEmptyContent indicates a blast was posted without content.
	ErrEmptyContent = errors.New("blast content cannot be empty")

	// ErrReadOnly indicates the source cannot accept new blasts.
	ErrReadOnly = errors.New("source is read-only")
)

// Blast is a single feed entry. IDs are assigned by the backing store and
// strictly increase with posting order.
type Blast struct {
	ID       int64     `json:"id"`
	Author   string    `json:"author"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at,omitzero"`
}

// Source fetches batches of blasts. Every method returns blasts newest-first
// and only returns blasts strictly beyond the requested boundary id.
type Source interface {
	// Recent returns up to limit of the newest blasts.
	Recent(ctx context.Context, limit int) ([]Blast, error)

	// After returns up to limit blasts with ID > id.
	After(ctx context.Context, id int64, limit int) ([]Blast, error)

	// Before returns up to limit blasts with ID < id.
	Before(ctx context.Context, id int64, limit int) ([]Blast, error)
}

// Poster is implemented by sources that accept new blasts.
type Poster interface {
	Post(ctx context.Context, author, content string) (Blast, error)
}

// ValidatePost normalizes and checks a new blast's author and content.
func ValidatePost(author, content string) (string, string, error) {
	author = strings.TrimSpace(author)
	content = strings.TrimSpace(content)
	if author == "" {
		return "", "", ErrEmptyAuthor
	}
	if content == "" {
		return "", "", ErrEmptyContent
	}
	return author, content, nil
}
