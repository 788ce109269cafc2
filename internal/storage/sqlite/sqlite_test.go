package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreverclip/internal/classify"
	"foreverclip/internal/storage"
	"foreverclip/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "foreverclip-test-*")
	require.NoError(t, err, "failed to create temp dir")
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(storage.Config{
		DBPath: filepath.Join(tempDir, "test.db"),
	})
	require.NoError(t, err, "failed to create store")

	return store
}

func TestStore_AddAndGetByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	content := "https://example.com/some/long/path"
	entry, err := store.Add(ctx, content)
	require.NoError(t, err)
	require.NotZero(t, entry.ID)

	got, err := store.GetByID(ctx, entry.ID)
	require.NoError(t, err)

	assert.Equal(t, content, got.Content)
	assert.Equal(t, calculateHash(content), got.ContentHash)
	assert.Equal(t, classify.CreatePreview(content, classify.DefaultPreviewLength), got.Preview)
	assert.Equal(t, types.TypeURL, got.ContentType)
	assert.Equal(t, int64(len(content)), got.SizeBytes)
	assert.WithinDuration(t, time.Now(), got.Timestamp, 5*time.Second)
}

func TestStore_AddRejectsEmptyContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := store.Add(ctx, content)
		assert.ErrorIs(t, err, storage.ErrEmptyContent)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_Deduplication(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	content := "duplicate content"

	first, err := store.Add(ctx, content)
	require.NoError(t, err)

	// Ensure the second write lands on a later timestamp.
	time.Sleep(10 * time.Millisecond)

	second, err := store.Add(ctx, content)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same content must not create a second row")
	assert.True(t, second.Timestamp.After(first.Timestamp), "timestamp must reflect the second call")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStore_GetAllOrderAndLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Add(ctx, fmt.Sprintf("entry %d", i))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	entries, err := store.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp),
			"entries must be ordered newest first")
	}
	assert.Equal(t, "entry 4", entries[0].Content)

	capped, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestStore_Search(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	seeds := []string{
		"alpha needle beta",
		"nothing here",
		"needle at the start",
		"UPPER Needle case",
	}
	for _, s := range seeds {
		_, err := store.Add(ctx, s)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	results, err := store.Search(ctx, "needle", 0)
	require.NoError(t, err)
	require.Len(t, results, 2, "match is case-preserving")

	all, err := store.GetAll(ctx, 0)
	require.NoError(t, err)

	// Results are a subset of GetAll in the same relative order.
	var filtered []string
	for _, e := range all {
		if strings.Contains(e.Content, "needle") || strings.Contains(e.Preview, "needle") {
			filtered = append(filtered, e.Content)
		}
	}
	var got []string
	for _, e := range results {
		got = append(got, e.Content)
	}
	assert.Equal(t, filtered, got)
}

func TestStore_SearchBlankQueryReturnsAll(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "one")
	require.NoError(t, err)
	_, err = store.Add(ctx, "two")
	require.NoError(t, err)

	results, err := store.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStore_SearchMatchesPreview(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Content long enough that the preview is a truncation; the
	// marker only ever exists in the preview column.
	content := strings.Repeat("word ", 30)
	_, err := store.Add(ctx, content)
	require.NoError(t, err)

	results, err := store.Search(ctx, "...", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStore_UpdateContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry, err := store.Add(ctx, "original text")
	require.NoError(t, err)

	newContent := "file:///tmp/replacement"
	require.NoError(t, store.UpdateContent(ctx, entry.ID, newContent))

	got, err := store.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, newContent, got.Content)
	assert.Equal(t, calculateHash(newContent), got.ContentHash)
	assert.Equal(t, types.TypeFile, got.ContentType)
	assert.Equal(t, int64(len(newContent)), got.SizeBytes)
}

func TestStore_UpdateContentFailures(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry, err := store.Add(ctx, "first")
	require.NoError(t, err)
	other, err := store.Add(ctx, "second")
	require.NoError(t, err)

	assert.ErrorIs(t, store.UpdateContent(ctx, entry.ID, "  "), storage.ErrEmptyContent)
	assert.ErrorIs(t, store.UpdateContent(ctx, 99999, "anything"), storage.ErrNotFound)
	assert.ErrorIs(t, store.UpdateContent(ctx, other.ID, "first"), storage.ErrDuplicateContent)

	// Updating an entry to its own content is not a collision.
	assert.NoError(t, store.UpdateContent(ctx, entry.ID, "first"))
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry, err := store.Add(ctx, "to be deleted")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, entry.ID))

	_, err = store.GetByID(ctx, entry.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting an absent id is a no-op success.
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.NoError(t, store.Delete(ctx, entry.ID))
	after, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, after)
}

func TestStore_DeleteFreesHashForReinsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry, err := store.Add(ctx, "recycled content")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, entry.ID))

	again, err := store.Add(ctx, "recycled content")
	require.NoError(t, err)
	assert.NotEqual(t, entry.ID, again.ID, "ids are never reused")
}

func TestStore_ClearAllAndStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "some stored content")
	require.NoError(t, err)
	_, err = store.Add(ctx, "more stored content")
	require.NoError(t, err)

	size, err := store.TotalSizeMB(ctx)
	require.NoError(t, err)
	assert.Greater(t, size, 0.0)

	require.NoError(t, store.ClearAll(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	size, err = store.TotalSizeMB(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, size)
}

func TestStore_TrimEvictsOldest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Add(ctx, fmt.Sprintf("trim entry %d", i))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	removed, err := store.Trim(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	entries, err := store.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "trim entry 5", entries[0].Content)
	assert.Equal(t, "trim entry 2", entries[3].Content)

	// Under the cap: nothing to do. Zero cap: unlimited.
	removed, err = store.Trim(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, removed)
	removed, err = store.Trim(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_TrimHonorsContext(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, fmt.Sprintf("kept entry %d", i))
		require.NoError(t, err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := store.Trim(canceled, 1)
	require.Error(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count, "a canceled trim must not delete anything")
}

func TestStore_GetAllNegativeLimitReturnsEverything(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	total := storage.DefaultListLimit + 1
	for i := 0; i < total; i++ {
		_, err := store.Add(ctx, fmt.Sprintf("bulk entry %d", i))
		require.NoError(t, err)
	}

	capped, err := store.GetAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, capped, storage.DefaultListLimit)

	all, err := store.GetAll(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, total)
}
