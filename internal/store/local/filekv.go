package local

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileKV stores each key as one JSON file in a directory. This is the
// implementation the external-change watcher pairs with: another process
// editing a collection file shows up as a change notification.
type FileKV struct {
	dir string
}

// NewFileKV creates a FileKV rooted at dir, creating it if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// Dir returns the directory backing this store.
func (f *FileKV) Dir() string {
	return f.dir
}

// GetItem reads the file for key. Any read failure degrades to absence.
func (f *FileKV) GetItem(key string) (string, bool) {
	data, err := os.ReadFile(f.pathFor(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// SetItem writes value to key's file via a temp-file rename so a crashed
// write never leaves a truncated collection behind.
func (f *FileKV) SetItem(key, value string) error {
	path := f.pathFor(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// KeyForPath maps a file path inside the store directory back to its key,
// for the watcher. Returns ok=false for files that are not store entries.
func (f *FileKV) KeyForPath(path string) (string, bool) {
	if filepath.Dir(path) != f.dir {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", false
		}
		absDir, err := filepath.Abs(f.dir)
		if err != nil || filepath.Dir(abs) != absDir {
			return "", false
		}
		path = abs
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

func (f *FileKV) pathFor(key string) string {
	return filepath.Join(f.dir, key+".json")
}
