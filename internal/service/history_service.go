package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"foreverclip/internal/clipboard"
	"foreverclip/internal/notify"
	"foreverclip/internal/settings"
	"foreverclip/internal/storage"
	"foreverclip/pkg/types"
)

const bytesPerMB = 1024 * 1024

// HistoryError carries the failed operation alongside the cause.
type HistoryError struct {
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// Stats is the aggregate view over the live history.
type Stats struct {
	Count       int64   `json:"count"`
	TotalSizeMB float64 `json:"total_size_mb"`
}

// HistoryService wires the clipboard monitor into the history store
// and applies the configured policies the store itself does not
// enforce (entry cap, content size cap, notifications).
type HistoryService struct {
	monitor  *clipboard.Monitor
	clip     clipboard.Clipboard
	store    storage.Store
	prefs    *settings.Manager
	notifier *notify.Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	handlers []ChangeHandler
}

// New creates a HistoryService over the given monitor, clipboard and
// store, reading its policies from prefs.
func New(monitor *clipboard.Monitor, clip clipboard.Clipboard, store storage.Store, prefs *settings.Manager) *HistoryService {
	ctx, cancel := context.WithCancel(context.Background())
	return &HistoryService{
		monitor:  monitor,
		clip:     clip,
		store:    store,
		prefs:    prefs,
		notifier: notify.New(prefs.GetBool(settings.KeyEnableNotifications)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterHandler adds a subscriber for persisted clipboard changes.
func (s *HistoryService) RegisterHandler(handler ChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins monitoring and storing clipboard changes. Handling
// runs off the monitor goroutine so a slow write never stalls
// polling.
func (s *HistoryService) Start() error {
	s.monitor.OnChange(func(content string) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			entry, err := s.handleClipboardChange(content)
			if err != nil {
				slog.Error("failed to handle clipboard change", "error", err)
				return
			}
			if entry == nil {
				return
			}

			s.mu.RLock()
			handlers := make([]ChangeHandler, len(s.handlers))
			copy(handlers, s.handlers)
			s.mu.RUnlock()

			for _, handler := range handlers {
				handler.HandleEntryChange(entry)
			}
		}()
	})

	if err := s.monitor.Start(); err != nil {
		return &HistoryError{
			Op:      "Start",
			Message: "failed to start clipboard monitor",
			Err:     err,
		}
	}

	return nil
}

// Stop shuts the service down: monitor first, then any in-flight
// writes run to completion. The service context is released only
// after the last write has finished, so shutdown never aborts a
// capture mid-store.
func (s *HistoryService) Stop() error {
	stopErr := s.monitor.Stop()
	s.wg.Wait()
	s.cancel()

	if stopErr != nil {
		return &HistoryError{
			Op:      "Stop",
			Message: "failed to stop clipboard monitor",
			Err:     stopErr,
		}
	}
	return nil
}

// handleClipboardChange classifies and persists one clipboard value.
// A nil entry with nil error means the value was rejected by policy.
func (s *HistoryService) handleClipboardChange(content string) (*types.Entry, error) {
	if maxMB := s.prefs.GetInt(settings.KeyMaxContentSizeMB); maxMB > 0 && len(content) > maxMB*bytesPerMB {
		slog.Info("clipboard content exceeds size cap, skipping",
			"size_bytes", len(content), "max_mb", maxMB)
		return nil, nil
	}

	entry, err := s.store.Add(s.ctx, content)
	if err != nil {
		return nil, &HistoryError{
			Op:      "handleClipboardChange",
			Message: "failed to store entry",
			Err:     err,
		}
	}

	if max := s.prefs.GetInt(settings.KeyMaxEntries); max > 0 {
		removed, err := s.store.Trim(s.ctx, max)
		if err != nil {
			slog.Error("failed to trim history", "error", err)
		} else if removed > 0 {
			slog.Debug("trimmed history", "removed", removed, "max_entries", max)
		}
	}

	s.notifier.Captured(entry.Preview)
	slog.Debug("stored clipboard entry",
		"id", entry.ID, "type", entry.ContentType, "size_bytes", entry.SizeBytes)

	return entry, nil
}

// CopyEntry writes a stored entry back to the system clipboard. The
// monitor will observe the change and refresh the entry's timestamp
// through the normal dedup path.
func (s *HistoryService) CopyEntry(ctx context.Context, id uint) error {
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return &HistoryError{
			Op:      "CopyEntry",
			Message: fmt.Sprintf("failed to get entry %d", id),
			Err:     err,
		}
	}

	if err := s.clip.Write(entry.Content); err != nil {
		return &HistoryError{
			Op:      "CopyEntry",
			Message: "failed to write clipboard",
			Err:     err,
		}
	}
	return nil
}

// Entries returns the newest entries, capped at limit.
func (s *HistoryService) Entries(ctx context.Context, limit int) ([]*types.Entry, error) {
	entries, err := s.store.GetAll(ctx, limit)
	if err != nil {
		return nil, &HistoryError{Op: "Entries", Message: "failed to list entries", Err: err}
	}
	return entries, nil
}

// SearchEntries returns matching entries and records the term in the
// recent-search list.
func (s *HistoryService) SearchEntries(ctx context.Context, query string, limit int) ([]*types.Entry, error) {
	entries, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, &HistoryError{Op: "SearchEntries", Message: "failed to search entries", Err: err}
	}
	if err := s.prefs.AddRecentSearch(query); err != nil {
		slog.Warn("failed to record recent search", "error", err)
	}
	return entries, nil
}

// Entry returns one entry by id.
func (s *HistoryService) Entry(ctx context.Context, id uint) (*types.Entry, error) {
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, &HistoryError{
			Op:      "Entry",
			Message: fmt.Sprintf("failed to get entry %d", id),
			Err:     err,
		}
	}
	return entry, nil
}

// UpdateEntry replaces an entry's content in place.
func (s *HistoryService) UpdateEntry(ctx context.Context, id uint, newContent string) error {
	if err := s.store.UpdateContent(ctx, id, newContent); err != nil {
		return &HistoryError{
			Op:      "UpdateEntry",
			Message: fmt.Sprintf("failed to update entry %d", id),
			Err:     err,
		}
	}
	return nil
}

// DeleteEntry removes an entry; absent ids are a no-op.
func (s *HistoryService) DeleteEntry(ctx context.Context, id uint) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return &HistoryError{
			Op:      "DeleteEntry",
			Message: fmt.Sprintf("failed to delete entry %d", id),
			Err:     err,
		}
	}
	return nil
}

// ClearEntries removes the whole history.
func (s *HistoryService) ClearEntries(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return &HistoryError{Op: "ClearEntries", Message: "failed to clear entries", Err: err}
	}
	return nil
}

// HistoryStats returns entry count and total payload size.
func (s *HistoryService) HistoryStats(ctx context.Context) (Stats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, &HistoryError{Op: "HistoryStats", Message: "failed to count entries", Err: err}
	}
	size, err := s.store.TotalSizeMB(ctx)
	if err != nil {
		return Stats{}, &HistoryError{Op: "HistoryStats", Message: "failed to sum entry sizes", Err: err}
	}
	return Stats{Count: count, TotalSizeMB: size}, nil
}

// exportRecord is the user-facing backup shape: internal id and hash
// stay out of the dump.
type exportRecord struct {
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
}

// Export writes the full entry set to w as an indented JSON array.
// One-shot, read-only; not a sync protocol.
func (s *HistoryService) Export(ctx context.Context, w io.Writer) error {
	entries, err := s.store.GetAll(ctx, -1)
	if err != nil {
		return &HistoryError{Op: "Export", Message: "failed to list entries", Err: err}
	}

	records := make([]exportRecord, len(entries))
	for i, entry := range entries {
		records[i] = exportRecord{
			Content:     entry.Content,
			Timestamp:   entry.Timestamp,
			ContentType: entry.ContentType,
			SizeBytes:   entry.SizeBytes,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return &HistoryError{Op: "Export", Message: "failed to encode entries", Err: err}
	}
	return nil
}
