package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/pkg/models"
)

// ErrNotPersisted is returned by Mark while the backend is unavailable. The ID
// is remembered for the life of the process and written once the backend opens.
var ErrNotPersisted = errors.New("state backend unavailable, processed ID kept in memory")

const (
	reconnectInitial = 30 * time.Second
	reconnectMax     = 10 * time.Minute
)

// Logger is the logging surface the state package needs
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ResilientStore wraps a backend that may fail to open. Until it opens,
// processed IDs live in memory and the backend is retried with an
// exponential pause.
type ResilientStore struct {
	backend string
	opts    Options
	logger  Logger

	mu          sync.Mutex
	inner       Store
	closed      bool
	lastErr     error
	retry       *backoff.ExponentialBackOff
	nextAttempt time.Time
	pending     map[models.Category]*IDSet
	resets      map[models.Category]bool
	touched     map[models.Category]time.Time
}

// OpenResilient opens the backend, falling back to memory when that fails
func OpenResilient(backend string, opts Options, logger Logger) *ResilientStore {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = reconnectInitial
	retry.MaxInterval = reconnectMax
	retry.Multiplier = 2
	retry.RandomizationFactor = 0
	retry.Reset()

	s := &ResilientStore{
		backend: backend,
		opts:    opts,
		logger:  logger,
		retry:   retry,
		pending: make(map[models.Category]*IDSet),
		resets:  make(map[models.Category]bool),
		touched: make(map[models.Category]time.Time),
	}

	now := opts.Clock.Now()
	for _, category := range models.Categories {
		s.pending[category] = NewIDSet()
		s.touched[category] = now
	}

	inner, err := Open(backend, opts)
	if err != nil {
		s.degrade(err)
		return s
	}
	s.inner = inner
	return s
}

// Degraded reports whether processed IDs are currently held in memory only
func (s *ResilientStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner == nil
}

// Load returns the backend's IDs, or the in-memory set while degraded
func (s *ResilientStore) Load(category models.Category) (*IDSet, error) {
	if err := checkCategory(category); err != nil {
		return NewIDSet(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inner := s.connect(); inner != nil {
		return inner.Load(category)
	}
	return NewIDSet(s.pending[category].IDs()...), nil
}

// Mark records id, returning ErrNotPersisted while the backend is unavailable
func (s *ResilientStore) Mark(category models.Category, id int) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inner := s.connect(); inner != nil {
		return inner.Mark(category, id)
	}

	s.pending[category].Add(id)
	s.touched[category] = s.opts.Clock.Now()
	return fmt.Errorf("%w: %v", ErrNotPersisted, s.lastErr)
}

// MaybeReset applies the reset interval to the backend or the in-memory set
func (s *ResilientStore) MaybeReset(category models.Category, now time.Time) (bool, error) {
	if err := checkCategory(category); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inner := s.connect(); inner != nil {
		return inner.MaybeReset(category, now)
	}
	if !resetDue(now, s.touched[category], s.opts.ResetInterval) {
		return false, nil
	}
	s.clear(category)
	return true, nil
}

// Reset clears the category. A reset made while degraded is applied to the
// backend before any pending IDs once it opens.
func (s *ResilientStore) Reset(category models.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inner := s.connect(); inner != nil {
		return inner.Reset(category)
	}
	s.clear(category)
	return nil
}

// Truncate is delegated to the backend. The in-memory set is never truncated.
func (s *ResilientStore) Truncate(category models.Category) (bool, error) {
	if err := checkCategory(category); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inner := s.connect(); inner != nil {
		return inner.Truncate(category)
	}
	return false, nil
}

// LastTouched returns the time of the last write or reset
func (s *ResilientStore) LastTouched(category models.Category) (time.Time, error) {
	if err := checkCategory(category); err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inner := s.connect(); inner != nil {
		return inner.LastTouched(category)
	}
	return s.touched[category], nil
}

// Close closes the backend when it is open
func (s *ResilientStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.inner == nil {
		return nil
	}
	err := s.inner.Close()
	s.inner = nil
	return err
}

func (s *ResilientStore) clear(category models.Category) {
	s.pending[category] = NewIDSet()
	s.resets[category] = true
	s.touched[category] = s.opts.Clock.Now()
}

func (s *ResilientStore) degrade(err error) {
	s.lastErr = err
	pause := s.retry.NextBackOff()
	s.nextAttempt = s.opts.Clock.Now().Add(pause)
	s.logger.Error("❌ State store unavailable, keeping processed IDs in memory (retry in %s): %v", pause, err)
}

// connect returns the open backend, retrying it once the pause has passed.
// The caller must hold s.mu.
func (s *ResilientStore) connect() Store {
	if s.inner != nil {
		return s.inner
	}
	if s.closed || s.opts.Clock.Now().Before(s.nextAttempt) {
		return nil
	}

	inner, err := Open(s.backend, s.opts)
	if err != nil {
		s.degrade(err)
		return nil
	}
	if err := s.replay(inner); err != nil {
		inner.Close()
		s.degrade(err)
		return nil
	}

	s.inner = inner
	s.retry.Reset()
	s.logger.Info("✅ State store available again, pending processed IDs written")
	return inner
}

// replay applies resets and marks made while degraded, dropping each
// category from memory once it is written
func (s *ResilientStore) replay(inner Store) error {
	for _, category := range models.Categories {
		if s.resets[category] {
			if err := inner.Reset(category); err != nil {
				return fmt.Errorf("failed to replay %s reset: %w", category, err)
			}
			s.resets[category] = false
		}
		for _, id := range s.pending[category].IDs() {
			if err := inner.Mark(category, id); err != nil {
				return fmt.Errorf("failed to replay processed %s ID %d: %w", category, id, err)
			}
		}
		s.pending[category] = NewIDSet()
	}
	return nil
}
