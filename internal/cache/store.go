package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rshade/lcaprommis/internal/logging"
)

const entryExt = ".json"

// Cache errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrExpired    = errors.New("cache entry expired")
	ErrInvalidKey = errors.New("cache key cannot be empty")
	ErrDisabled   = errors.New("cache is disabled")
)

// FileStore keeps one JSON file per entry in a directory. It is safe for
// concurrent use within one process.
type FileStore struct {
	directory  string
	enabled    bool
	ttlSeconds int

	mu sync.RWMutex
}

// NewFileStore creates a store in directory, creating it if needed. A
// disabled store answers every call with ErrDisabled.
func NewFileStore(directory string, enabled bool, ttlSeconds int) (*FileStore, error) {
	if !enabled {
		return &FileStore{}, nil
	}
	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTTLSeconds
	}
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileStore{directory: directory, enabled: true, ttlSeconds: ttlSeconds}, nil
}

// Get returns the entry for key. Expired entries are removed and reported as
// ErrExpired.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	path := s.path(key)
	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	if entry.IsExpired() {
		s.mu.Lock()
		_ = os.Remove(path)
		s.mu.Unlock()
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set writes data under key with the store's TTL. The file is replaced
// atomically.
func (s *FileStore) Set(key string, data json.RawMessage) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	encoded, err := json.MarshalIndent(NewEntry(key, data, s.ttlSeconds), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes key. Missing entries are not an error.
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting cache file: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (s *FileStore) Clear() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.entryNames()
	if err != nil {
		return 0, err
	}
	for i, name := range names {
		if err := os.Remove(filepath.Join(s.directory, name)); err != nil {
			return i, fmt.Errorf("removing cache file %s: %w", name, err)
		}
	}
	return len(names), nil
}

// CleanupExpired removes expired entries and returns how many were removed.
// Unreadable files are skipped.
func (s *FileStore) CleanupExpired() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.entryNames()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		path := filepath.Join(s.directory, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if json.Unmarshal(data, &entry) != nil {
			continue
		}
		if entry.IsExpired() && os.Remove(path) == nil {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of entries, expired ones included.
func (s *FileStore) Count() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names, err := s.entryNames()
	return len(names), err
}

// IsEnabled reports whether the store caches anything.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// Directory returns the cache directory.
func (s *FileStore) Directory() string {
	return s.directory
}

// TTL returns the entry lifetime in seconds.
func (s *FileStore) TTL() int {
	return s.ttlSeconds
}

func (s *FileStore) entryNames() ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == entryExt {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *FileStore) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.directory, safe+entryExt)
}

// Fetch returns the cached value for key, or calls fetch, stores its result
// and returns it. Cache read and write failures are logged and otherwise
// ignored; a nil store always fetches.
func Fetch[T any](ctx context.Context, s *FileStore, key string, fetch func(context.Context) (T, error)) (T, error) {
	log := logging.FromContext(ctx).With().Str("component", "cache").Str("key", key).Logger()

	if s != nil && s.IsEnabled() {
		entry, err := s.Get(key)
		switch {
		case err == nil:
			var v T
			if decErr := entry.Decode(&v); decErr == nil {
				log.Debug().Dur("age", entry.Age()).Msg("cache hit")
				return v, nil
			}
			log.Warn().Msg("discarding undecodable cache entry")
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
			log.Debug().Err(err).Msg("cache miss")
		default:
			log.Warn().Err(err).Msg("cache read failed")
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if s != nil && s.IsEnabled() {
		data, err := json.Marshal(v)
		if err == nil {
			err = s.Set(key, data)
		}
		if err != nil {
			log.Warn().Err(err).Msg("cache write failed")
		}
	}
	return v, nil
}
