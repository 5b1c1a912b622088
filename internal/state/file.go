package state

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hnipps/huntarr/internal/filesystem"
	"github.com/hnipps/huntarr/pkg/models"
)

// FileStore keeps one text file per category with one ID per line. The file's
// modification time is the last write or reset.
type FileStore struct {
	fs   *filesystem.FileSystem
	opts Options
}

// NewFileStore creates the state directory and an empty file for every
// category that has none yet
func NewFileStore(opts Options) (*FileStore, error) {
	s := &FileStore{fs: filesystem.NewFileSystem(), opts: opts}

	if err := s.fs.EnsureDir(opts.Dir); err != nil {
		return nil, err
	}

	for _, category := range models.Categories {
		path := s.path(category)
		if s.fs.FileExists(path) {
			continue
		}
		if err := s.rewrite(category, nil, opts.Clock.Now()); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Path returns the file backing a category
func (s *FileStore) Path(category models.Category) string {
	return s.path(category)
}

func (s *FileStore) path(category models.Category) string {
	return filepath.Join(s.opts.Dir, fmt.Sprintf("processed_%s_ids.txt", category))
}

// Load reads the processed IDs of a category, ignoring malformed lines
func (s *FileStore) Load(category models.Category) (*IDSet, error) {
	ids, _, err := s.read(category)
	if err != nil {
		return NewIDSet(), err
	}
	return NewIDSet(ids...), nil
}

// Mark appends id to the category file
func (s *FileStore) Mark(category models.Category, id int) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	path := s.path(category)
	if err := s.fs.AppendLine(path, strconv.Itoa(id)); err != nil {
		return fmt.Errorf("failed to mark movie %d as processed: %w", id, err)
	}
	return s.fs.SetModTime(path, s.opts.Clock.Now())
}

// MaybeReset empties the category file once it is older than the reset interval
func (s *FileStore) MaybeReset(category models.Category, now time.Time) (bool, error) {
	if s.opts.ResetInterval <= 0 {
		return false, nil
	}

	touched, err := s.LastTouched(category)
	if err != nil {
		return false, err
	}
	if !resetDue(now, touched, s.opts.ResetInterval) {
		return false, nil
	}

	if err := s.Reset(category); err != nil {
		return false, err
	}
	return true, nil
}

// Reset empties the category file
func (s *FileStore) Reset(category models.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	return s.rewrite(category, nil, s.opts.Clock.Now())
}

// Truncate rewrites the category file with its newest entries when it is too
// large. The modification time is carried over so the reset window is unchanged.
func (s *FileStore) Truncate(category models.Category) (bool, error) {
	ids, size, err := s.read(category)
	if err != nil {
		return false, err
	}

	kept, truncated := truncateIDs(ids, size, s.opts.TruncateBytes, s.opts.MaxEntries)
	if !truncated {
		return false, nil
	}

	touched, err := s.LastTouched(category)
	if err != nil {
		return false, err
	}
	if err := s.rewrite(category, kept, touched); err != nil {
		return false, err
	}
	return true, nil
}

// LastTouched returns the modification time of the category file
func (s *FileStore) LastTouched(category models.Category) (time.Time, error) {
	if err := checkCategory(category); err != nil {
		return time.Time{}, err
	}

	modTime, ok, err := s.fs.ModTime(s.path(category))
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return s.opts.Clock.Now(), nil
	}
	return modTime, nil
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}

// read returns the raw IDs in file order and the file size in bytes
func (s *FileStore) read(category models.Category) ([]int, int64, error) {
	if err := checkCategory(category); err != nil {
		return nil, 0, err
	}

	data, err := os.ReadFile(s.path(category))
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read processed %s IDs: %w", category, err)
	}

	var ids []int
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to parse processed %s IDs: %w", category, err)
	}

	return ids, int64(len(data)), nil
}

// rewrite replaces the category file with ids and stamps it with touched
func (s *FileStore) rewrite(category models.Category, ids []int, touched time.Time) error {
	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(strconv.Itoa(id))
		buf.WriteByte('\n')
	}

	path := s.path(category)
	if err := s.fs.AtomicWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to rewrite processed %s IDs: %w", category, err)
	}
	return s.fs.SetModTime(path, touched)
}
