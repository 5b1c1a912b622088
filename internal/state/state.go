// Package state persists the IDs of movies already processed per category.
//
// A processed set is skipped by selection until it is reset. Each set
// records when it was last written or reset; once that is older than the
// reset interval the set is cleared. Sets whose line-per-ID representation
// grows past a byte threshold are cut down to their newest entries.
package state

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/pkg/models"
)

// ErrUnknownCategory is returned for a category the store does not track
var ErrUnknownCategory = errors.New("unknown category")

// Store is a durable set of processed movie IDs per category
type Store interface {
	// Load returns the processed IDs of a category in insertion order
	Load(category models.Category) (*IDSet, error)
	// Mark records id as processed; the write is durable when Mark returns
	Mark(category models.Category, id int) error
	// MaybeReset clears the category when its last write is at least the
	// reset interval before now. A non-positive interval never resets.
	MaybeReset(category models.Category, now time.Time) (bool, error)
	// Reset clears the category unconditionally
	Reset(category models.Category) error
	// Truncate keeps only the newest entries once the set grows too large
	Truncate(category models.Category) (bool, error)
	// LastTouched returns the time of the last write or reset
	LastTouched(category models.Category) (time.Time, error)
	Close() error
}

// Options configures every backend
type Options struct {
	Dir           string
	ResetInterval time.Duration
	MaxEntries    int
	TruncateBytes int64
	Clock         clock.Clock
}

// OptionsFromConfig builds Options from the state configuration
func OptionsFromConfig(cfg config.StateConfig, clk clock.Clock) Options {
	return Options{
		Dir:           cfg.Dir,
		ResetInterval: cfg.ResetInterval,
		MaxEntries:    cfg.MaxEntries,
		TruncateBytes: cfg.TruncateBytes,
		Clock:         clk,
	}
}

// Open creates the store for the configured backend
func Open(backend string, opts Options) (Store, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	switch backend {
	case "", "file":
		return NewFileStore(opts)
	case "sqlite":
		return NewSQLiteStore(opts)
	case "badger":
		return NewBadgerStore(opts)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

// IDSet is an insertion-ordered set of movie IDs
type IDSet struct {
	ids  []int
	seen map[int]struct{}
}

// NewIDSet builds a set from ids, keeping the first occurrence of duplicates
func NewIDSet(ids ...int) *IDSet {
	s := &IDSet{seen: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id, reporting whether it was new
func (s *IDSet) Add(id int) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Contains reports whether id is in the set
func (s *IDSet) Contains(id int) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of IDs
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the IDs in insertion order
func (s *IDSet) IDs() []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

func checkCategory(category models.Category) error {
	switch category {
	case models.CategoryMissing, models.CategoryUpgrade:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}

// logSize is the byte size of ids written one decimal per line
func logSize(ids []int) int64 {
	var n int64
	for _, id := range ids {
		n += int64(len(strconv.Itoa(id))) + 1
	}
	return n
}

// truncateIDs returns the newest maxEntries ids when size exceeds maxBytes
// and there are more than maxEntries of them
func truncateIDs(ids []int, size, maxBytes int64, maxEntries int) ([]int, bool) {
	if maxEntries <= 0 || size <= maxBytes || len(ids) <= maxEntries {
		return ids, false
	}
	kept := make([]int, maxEntries)
	copy(kept, ids[len(ids)-maxEntries:])
	return kept, true
}

func resetDue(now, touched time.Time, interval time.Duration) bool {
	return interval > 0 && now.Sub(touched) >= interval
}
