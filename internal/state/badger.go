package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hnipps/huntarr/internal/filesystem"
	"github.com/hnipps/huntarr/pkg/models"
)

// BadgerStore keeps processed IDs in an embedded BadgerDB.
//
// Keys:
//
//	p/<category>/<seq>  movie ID, seq is a big-endian uint64
//	m/<category>/touched  unix nanos of the last write or reset
type BadgerStore struct {
	db   *badger.DB
	opts Options

	mu  sync.Mutex
	seq map[models.Category]uint64
}

// NewBadgerStore opens (or creates) a BadgerDB under <dir>/badger
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	path := filepath.Join(opts.Dir, "badger")
	if err := filesystem.NewFileSystem().EnsureDir(path); err != nil {
		return nil, err
	}

	dbOpts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithLogger(nil) // Disable BadgerDB's internal logging

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{db: db, opts: opts, seq: make(map[models.Category]uint64)}

	now := opts.Clock.Now()
	err = db.Update(func(txn *badger.Txn) error {
		for _, category := range models.Categories {
			last, err := lastSeq(txn, category)
			if err != nil {
				return err
			}
			s.seq[category] = last

			if _, err := txn.Get(touchedKey(category)); errors.Is(err, badger.ErrKeyNotFound) {
				if err := txn.Set(touchedKey(category), encodeTime(now)); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize badger state: %w", err)
	}

	return s, nil
}

// Load returns the processed IDs of a category in insertion order
func (s *BadgerStore) Load(category models.Category) (*IDSet, error) {
	ids, err := s.ids(category)
	if err != nil {
		return NewIDSet(), err
	}
	return NewIDSet(ids...), nil
}

// Mark appends id under the next sequence number
func (s *BadgerStore) Mark(category models.Category, id int) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.seq[category] + 1
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(category, next), []byte(strconv.Itoa(id))); err != nil {
			return err
		}
		return txn.Set(touchedKey(category), encodeTime(s.opts.Clock.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to mark movie %d as processed: %w", id, err)
	}

	s.seq[category] = next
	return nil
}

// MaybeReset deletes the category's entries once its touched time is old enough
func (s *BadgerStore) MaybeReset(category models.Category, now time.Time) (bool, error) {
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

// Reset deletes every entry of the category
func (s *BadgerStore) Reset(category models.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		keys, err := entryKeys(txn, category)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Set(touchedKey(category), encodeTime(s.opts.Clock.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to reset processed %s IDs: %w", category, err)
	}
	return nil
}

// Truncate deletes all but the newest entries when the set is too large
func (s *BadgerStore) Truncate(category models.Category) (bool, error) {
	ids, err := s.ids(category)
	if err != nil {
		return false, err
	}

	if _, truncated := truncateIDs(ids, logSize(ids), s.opts.TruncateBytes, s.opts.MaxEntries); !truncated {
		return false, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		keys, err := entryKeys(txn, category)
		if err != nil {
			return err
		}
		for _, key := range keys[:len(keys)-s.opts.MaxEntries] {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to truncate processed %s IDs: %w", category, err)
	}
	return true, nil
}

// LastTouched returns the category's last write or reset time
func (s *BadgerStore) LastTouched(category models.Category) (time.Time, error) {
	if err := checkCategory(category); err != nil {
		return time.Time{}, err
	}

	var touched time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(touchedKey(category))
		if errors.Is(err, badger.ErrKeyNotFound) {
			touched = s.opts.Clock.Now()
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			touched = decodeTime(val)
			return nil
		})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read %s metadata: %w", category, err)
	}
	return touched, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) ids(category models.Category) ([]int, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	var ids []int
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := entryPrefix(category)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				id, err := strconv.Atoi(string(val))
				if err != nil {
					return nil
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read processed %s IDs: %w", category, err)
	}
	return ids, nil
}

func entryPrefix(category models.Category) []byte {
	return []byte("p/" + string(category) + "/")
}

func entryKey(category models.Category, seq uint64) []byte {
	key := entryPrefix(category)
	return binary.BigEndian.AppendUint64(key, seq)
}

func touchedKey(category models.Category) []byte {
	return []byte("m/" + string(category) + "/touched")
}

// entryKeys returns the category's entry keys in sequence order
func entryKeys(txn *badger.Txn, category models.Category) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	prefix := entryPrefix(category)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

func lastSeq(txn *badger.Txn, category models.Category) (uint64, error) {
	keys, err := entryKeys(txn, category)
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	last := keys[len(keys)-1]
	return binary.BigEndian.Uint64(last[len(last)-8:]), nil
}

func encodeTime(t time.Time) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(t.UnixNano()))
}

func decodeTime(val []byte) time.Time {
	if len(val) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(val)))
}
