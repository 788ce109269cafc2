package storage

import (
	"time"

	"foreverclip/pkg/types"
)

// EntryModel is the gorm row for one clipboard entry. No soft delete:
// a deleted entry must free its content_hash for re-insertion.
type EntryModel struct {
	ID          uint      `gorm:"primaryKey"`
	Content     string    `gorm:"type:text;not null"`
	ContentHash string    `gorm:"uniqueIndex:idx_content_hash;not null"`
	Preview     string    `gorm:"not null"`
	Timestamp   time.Time `gorm:"index:idx_timestamp"`
	SizeBytes   int64     `gorm:"not null"`
	ContentType string    `gorm:"index:idx_content_type;default:text"`
}

// TableName keeps the relation name stable across refactors.
func (EntryModel) TableName() string {
	return "clipboard_entries"
}

func (m *EntryModel) ToEntry() *types.Entry {
	return &types.Entry{
		ID:          m.ID,
		Content:     m.Content,
		ContentHash: m.ContentHash,
		Preview:     m.Preview,
		Timestamp:   m.Timestamp,
		SizeBytes:   m.SizeBytes,
		ContentType: m.ContentType,
	}
}
