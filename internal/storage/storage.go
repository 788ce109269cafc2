package storage

import (
	"context"

	"foreverclip/pkg/types"
)

// Default result caps applied when a caller passes limit == 0.
const (
	DefaultListLimit   = 1000
	DefaultSearchLimit = 100
)

// Store defines the interface for clipboard history persistence.
// Every operation is a self-contained transaction; error == nil is
// the success signal.
type Store interface {
	// Add persists new clipboard content. Content that already exists
	// (same hash) only gets its timestamp refreshed; the existing
	// entry is returned. Empty or whitespace-only content is rejected
	// with ErrEmptyContent.
	Add(ctx context.Context, content string) (*types.Entry, error)

	// GetAll returns entries newest first, capped at limit. A limit of
	// zero applies DefaultListLimit; a negative limit returns every
	// entry.
	GetAll(ctx context.Context, limit int) ([]*types.Entry, error)

	// Search returns entries whose content or preview contains query
	// as a substring, newest first. A blank query degenerates to
	// GetAll(limit). Limit semantics match GetAll with
	// DefaultSearchLimit as the zero default.
	Search(ctx context.Context, query string, limit int) ([]*types.Entry, error)

	// GetByID returns a single entry or ErrNotFound.
	GetByID(ctx context.Context, id uint) (*types.Entry, error)

	// UpdateContent replaces an entry's content in place, recomputing
	// hash, preview, size and type. The id is preserved. Fails with
	// ErrDuplicateContent when the new hash collides with another row.
	UpdateContent(ctx context.Context, id uint, newContent string) error

	// Delete removes an entry. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id uint) error

	// ClearAll removes every entry.
	ClearAll(ctx context.Context) error

	// Count returns the number of live entries.
	Count(ctx context.Context) (int64, error)

	// TotalSizeMB returns the sum of size_bytes over all live entries
	// in megabytes, zero when empty.
	TotalSizeMB(ctx context.Context) (float64, error)

	// Trim evicts the oldest entries beyond maxEntries and returns
	// how many were removed. maxEntries <= 0 means unlimited.
	Trim(ctx context.Context, maxEntries int) (int64, error)
}

// Config holds storage configuration.
type Config struct {
	DBPath string // Path to the SQLite database file
}
