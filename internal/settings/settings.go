// Package settings is the flat key-value preference store shared with
// the graphical shell: a JSON file with defaults-merge semantics and
// write-through updates, held in a viper instance.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Recognized keys. The history core never reads the caps itself; the
// service applies them.
const (
	KeyMaxEntries          = "max_entries"
	KeyMaxContentSizeMB    = "max_content_size_mb"
	KeyAutoStart           = "auto_start"
	KeyMinimizeToTray      = "minimize_to_tray"
	KeyCheckIntervalMS     = "check_interval_ms"
	KeyEnableNotifications = "enable_notifications"
	KeyTheme               = "theme"
	KeyFontSize            = "font_size"
	KeyWindowWidth         = "window_width"
	KeyWindowHeight        = "window_height"
	KeySplitterPosition    = "splitter_position"
	KeyRecentSearches      = "recent_searches"
	KeyFavoriteEntries     = "favorite_entries"
)

// maxRecentSearches caps the recent-search list.
const maxRecentSearches = 20

func defaults() map[string]any {
	return map[string]any{
		KeyMaxEntries:          10000,
		KeyMaxContentSizeMB:    100,
		KeyAutoStart:           false,
		KeyMinimizeToTray:      true,
		KeyCheckIntervalMS:     500,
		KeyEnableNotifications: true,
		KeyTheme:               "system",
		KeyFontSize:            12,
		KeyWindowWidth:         1200,
		KeyWindowHeight:        800,
		KeySplitterPosition:    []int{400, 800},
		KeyRecentSearches:      []string{},
		KeyFavoriteEntries:     []int{},
	}
}

// Manager loads, serves and persists preferences.
type Manager struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// New loads settings from path, merging the file over the documented
// defaults. A missing file is created with the defaults; an unreadable
// one is logged and replaced by defaults in memory.
func New(path string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	m := &Manager{v: v, path: path}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			if err := m.save(); err != nil {
				return nil, err
			}
		} else {
			slog.Warn("failed to load settings, using defaults", "path", path, "error", err)
		}
	}

	return m, nil
}

// save persists the merged view (defaults + overrides) back to disk.
func (m *Manager) save() error {
	if err := m.v.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Set stores a value and writes the file through.
func (m *Manager) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
	return m.save()
}

func (m *Manager) GetInt(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.GetInt(key)
}

func (m *Manager) GetBool(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.GetBool(key)
}

func (m *Manager) GetString(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.GetString(key)
}

func (m *Manager) GetStringSlice(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.GetStringSlice(key)
}

func (m *Manager) GetIntSlice(key string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.GetIntSlice(key)
}

// All returns a copy of every current setting.
func (m *Manager) All() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.AllSettings()
}

// ResetToDefaults discards every override and rewrites the file.
func (m *Manager) ResetToDefaults() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := viper.New()
	v.SetConfigFile(m.path)
	v.SetConfigType("json")
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	m.v = v
	return m.save()
}

// AddRecentSearch records a search term: deduplicated, moved to the
// front, capped at 20.
func (m *Manager) AddRecentSearch(term string) error {
	if term == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.v.GetStringSlice(KeyRecentSearches)
	updated := make([]string, 0, len(recent)+1)
	updated = append(updated, term)
	for _, s := range recent {
		if s != term {
			updated = append(updated, s)
		}
	}
	if len(updated) > maxRecentSearches {
		updated = updated[:maxRecentSearches]
	}

	m.v.Set(KeyRecentSearches, updated)
	return m.save()
}

// AddFavorite marks an entry id as a favorite. Already-favorite ids
// are left alone.
func (m *Manager) AddFavorite(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	favorites := m.v.GetIntSlice(KeyFavoriteEntries)
	for _, fav := range favorites {
		if fav == int(id) {
			return nil
		}
	}
	m.v.Set(KeyFavoriteEntries, append(favorites, int(id)))
	return m.save()
}

// RemoveFavorite unmarks an entry id; absent ids are a no-op.
func (m *Manager) RemoveFavorite(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	favorites := m.v.GetIntSlice(KeyFavoriteEntries)
	updated := favorites[:0]
	for _, fav := range favorites {
		if fav != int(id) {
			updated = append(updated, fav)
		}
	}
	if len(updated) == len(favorites) {
		return nil
	}
	m.v.Set(KeyFavoriteEntries, updated)
	return m.save()
}

// IsFavorite reports whether an entry id is marked as favorite.
func (m *Manager) IsFavorite(id uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, fav := range m.v.GetIntSlice(KeyFavoriteEntries) {
		if fav == int(id) {
			return true
		}
	}
	return false
}
