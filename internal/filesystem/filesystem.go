package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
)

// FileSystem provides the durable file operations used by the file state backend
type FileSystem struct{}

// NewFileSystem creates a new FileSystem
func NewFileSystem() *FileSystem {
	return &FileSystem{}
}

// FileExists checks if a file exists at the given path
func (f *FileSystem) FileExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	// Make sure it's actually a file, not a directory
	return !info.IsDir()
}

// EnsureDir creates dir and its parents when missing
func (f *FileSystem) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ModTime returns the modification time of path. ok is false when the file does not exist.
func (f *FileSystem) ModTime(path string) (modTime time.Time, ok bool, err error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.ModTime(), true, nil
}

// SetModTime sets both access and modification time of path
func (f *FileSystem) SetModTime(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("failed to set times on %s: %w", path, err)
	}
	return nil
}

// AppendLine appends line plus a newline and syncs the file before returning
func (f *FileSystem) AppendLine(path, line string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := file.WriteString(line + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}

	return file.Close()
}

// AtomicWriteFile replaces path with data via a synced temporary file and
// rename. An existing file keeps its permissions, a new one is created 0644.
func (f *FileSystem) AtomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	err := renameio.WriteFile(path, data, 0644, renameio.WithTempDir(dir), renameio.IgnoreUmask())
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return syncDir(dir)
}

// syncDir persists a rename in dir
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory %s: %w", dir, err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
		return fmt.Errorf("failed to sync directory %s: %w", dir, err)
	}
	return nil
}
