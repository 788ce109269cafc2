package storage

import "errors"

// Storage errors
var (
	ErrEmptyContent     = errors.New("content is empty or whitespace-only")
	ErrNotFound         = errors.New("entry not found")
	ErrDuplicateContent = errors.New("content already exists under another entry")
)
