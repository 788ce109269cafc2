package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foreverclip/internal/classify"
	"foreverclip/internal/storage"
	"foreverclip/pkg/types"
)

const bytesPerMB = 1024 * 1024

// SQLiteStore persists clipboard entries in a single SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// New opens the database and migrates the schema. Migration is
// idempotent and safe to run on every startup.
func New(config storage.Config) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&storage.EntryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// calculateHash generates the SHA-256 hex digest of content.
func calculateHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// Add implements storage.Store. Duplicate content is the dedup
// success path: only the timestamp moves.
func (s *SQLiteStore) Add(ctx context.Context, content string) (*types.Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, storage.ErrEmptyContent
	}

	contentHash := calculateHash(content)
	db := s.db.WithContext(ctx)

	var existing storage.EntryModel
	err := db.Where("content_hash = ?", contentHash).First(&existing).Error
	if err == nil {
		existing.Timestamp = time.Now()
		if err := db.Model(&existing).Update("timestamp", existing.Timestamp).Error; err != nil {
			return nil, fmt.Errorf("failed to refresh existing entry: %w", err)
		}
		return existing.ToEntry(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing content: %w", err)
	}

	model := &storage.EntryModel{
		Content:     content,
		ContentHash: contentHash,
		Preview:     classify.CreatePreview(content, classify.DefaultPreviewLength),
		Timestamp:   time.Now(),
		SizeBytes:   int64(len(content)),
		ContentType: classify.DetectContentType(content),
	}

	if err := db.Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	return model.ToEntry(), nil
}

// GetAll implements storage.Store. A negative limit returns every
// entry; gorm treats it as no LIMIT clause.
func (s *SQLiteStore) GetAll(ctx context.Context, limit int) ([]*types.Entry, error) {
	if limit == 0 {
		limit = storage.DefaultListLimit
	}

	var models []storage.EntryModel
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	return toEntries(models), nil
}

// Search implements storage.Store. Matching is a case-preserving
// substring test against content and preview; instr avoids SQLite's
// case-folding LIKE.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]*types.Entry, error) {
	if limit == 0 {
		limit = storage.DefaultSearchLimit
	}
	if strings.TrimSpace(query) == "" {
		return s.GetAll(ctx, limit)
	}

	var models []storage.EntryModel
	err := s.db.WithContext(ctx).
		Where("instr(content, ?) > 0 OR instr(preview, ?) > 0", query, query).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}

	return toEntries(models), nil
}

// GetByID implements storage.Store.
func (s *SQLiteStore) GetByID(ctx context.Context, id uint) (*types.Entry, error) {
	var model storage.EntryModel
	err := s.db.WithContext(ctx).First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return model.ToEntry(), nil
}

// UpdateContent implements storage.Store. The id and creation
// identity are preserved; derived fields are recomputed together.
func (s *SQLiteStore) UpdateContent(ctx context.Context, id uint, newContent string) error {
	if strings.TrimSpace(newContent) == "" {
		return storage.ErrEmptyContent
	}

	newHash := calculateHash(newContent)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model storage.EntryModel
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to get entry: %w", err)
		}

		// Updating into content another row already holds would break
		// hash uniqueness; reject instead of producing twin rows.
		var collision int64
		if err := tx.Model(&storage.EntryModel{}).
			Where("content_hash = ? AND id <> ?", newHash, id).
			Count(&collision).Error; err != nil {
			return fmt.Errorf("failed to check for hash collision: %w", err)
		}
		if collision > 0 {
			return storage.ErrDuplicateContent
		}

		updates := map[string]interface{}{
			"content":      newContent,
			"content_hash": newHash,
			"preview":      classify.CreatePreview(newContent, classify.DefaultPreviewLength),
			"size_bytes":   int64(len(newContent)),
			"content_type": classify.DetectContentType(newContent),
		}
		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		return nil
	})
}

// Delete implements storage.Store. Deleting an absent id is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&storage.EntryModel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// ClearAll implements storage.Store.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&storage.EntryModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

// Count implements storage.Store.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&storage.EntryModel{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// TotalSizeMB implements storage.Store.
func (s *SQLiteStore) TotalSizeMB(ctx context.Context) (float64, error) {
	var totalBytes int64
	err := s.db.WithContext(ctx).Model(&storage.EntryModel{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&totalBytes).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum entry sizes: %w", err)
	}
	return float64(totalBytes) / bytesPerMB, nil
}

// Trim implements storage.Store: evicts the oldest entries beyond
// maxEntries. The store exposes the mechanism; retention policy
// belongs to the caller.
func (s *SQLiteStore) Trim(ctx context.Context, maxEntries int) (int64, error) {
	if maxEntries <= 0 {
		return 0, nil
	}

	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := count - int64(maxEntries)
	if excess <= 0 {
		return 0, nil
	}

	oldest := s.db.WithContext(ctx).Model(&storage.EntryModel{}).
		Select("id").
		Order("timestamp ASC").
		Limit(int(excess))

	result := s.db.WithContext(ctx).
		Where("id IN (?)", oldest).
		Delete(&storage.EntryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to trim entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func toEntries(models []storage.EntryModel) []*types.Entry {
	entries := make([]*types.Entry, len(models))
	for i := range models {
		entries[i] = models[i].ToEntry()
	}
	return entries
}
