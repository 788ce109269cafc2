package types

import "time"

// Content type tags assigned by the classifier.
const (
	TypeURL       = "url"
	TypeFile      = "file"
	TypeMultiline = "multiline"
	TypeText      = "text"
)

// Entry is one recorded clipboard value plus its derived metadata.
type Entry struct {
	ID          uint      `json:"id"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Preview     string    `json:"preview"`
	Timestamp   time.Time `json:"timestamp"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
}
