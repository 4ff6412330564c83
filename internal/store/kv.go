// Package store persists user data (bookmarks, recent views, the
// preferred voice) in a per-user key-value directory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	gap "github.com/muesli/go-app-paths"
)

// Keys used by the application.
const (
	KeyVoiceName   = "selected-voice-name"
	KeyPassageData = "passage-data"
)

// ErrNotFound is returned by Get for keys that were never written.
var ErrNotFound = errors.New("store: key not found")

var validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// KV is a scoped key-value store that survives restarts.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// FileKV keeps one file per key in a directory.
type FileKV struct {
	dir string
	mu  sync.Mutex
}

// NewFileKV creates the directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// DefaultDir returns the per-user data directory for the application.
func DefaultDir() (string, error) {
	scope := gap.NewScope(gap.User, "readaloud")
	dirs, err := scope.DataDirs()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	if len(dirs) == 0 {
		return "", errors.New("no data directory available")
	}
	return dirs[0], nil
}

// Dir returns the backing directory.
func (f *FileKV) Dir() string {
	return f.dir
}

// Get reads the value stored under key.
func (f *FileKV) Get(key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the value stored under key atomically.
func (f *FileKV) Set(key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

func (f *FileKV) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(f.dir, key), nil
}
