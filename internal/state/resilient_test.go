package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/pkg/models"
)

type recordingLogger struct {
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, args ...interface{}) {
	l.infos = append(l.infos, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.warns = append(l.warns, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(msg, args...))
}

// blockedDir returns a state directory that cannot be created until the
// returned function removes the regular file in its way
func blockedDir(t *testing.T) (string, func()) {
	t.Helper()
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	return filepath.Join(blocker, "state"), func() {
		require.NoError(t, os.Remove(blocker))
	}
}

func TestResilientStore_OpensHealthyBackend(t *testing.T) {
	logger := &recordingLogger{}
	store := OpenResilient("file", Options{Dir: t.TempDir(), MaxEntries: 10, TruncateBytes: 100, Clock: clock.NewFake(time.Now())}, logger)
	defer store.Close()

	assert.False(t, store.Degraded())
	require.NoError(t, store.Mark(models.CategoryMissing, 3))

	set, err := store.Load(models.CategoryMissing)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, set.IDs())
	assert.Empty(t, logger.errors)
}

func TestResilientStore_FallsBackAndReconnects(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			dir, unblock := blockedDir(t)
			fake := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
			opts := Options{Dir: dir, ResetInterval: 168 * time.Hour, MaxEntries: 500, TruncateBytes: 10000, Clock: fake}
			logger := &recordingLogger{}

			store := OpenResilient(backend, opts, logger)
			defer store.Close()
			require.True(t, store.Degraded())
			require.Len(t, logger.errors, 1)

			err := store.Mark(models.CategoryMissing, 7)
			require.ErrorIs(t, err, ErrNotPersisted)

			set, err := store.Load(models.CategoryMissing)
			require.NoError(t, err)
			assert.True(t, set.Contains(7))

			truncated, err := store.Truncate(models.CategoryMissing)
			require.NoError(t, err)
			assert.False(t, truncated)

			unblock()

			// no attempt before the retry pause has passed
			fake.Advance(10 * time.Second)
			_, err = store.Load(models.CategoryMissing)
			require.NoError(t, err)
			assert.True(t, store.Degraded())

			fake.Advance(time.Minute)
			set, err = store.Load(models.CategoryMissing)
			require.NoError(t, err)
			assert.False(t, store.Degraded())
			assert.Equal(t, []int{7}, set.IDs())
			assert.Len(t, logger.infos, 1)

			require.NoError(t, store.Mark(models.CategoryMissing, 8))
			require.NoError(t, store.Close())

			reopened, err := Open(backend, opts)
			require.NoError(t, err)
			defer reopened.Close()

			set, err = reopened.Load(models.CategoryMissing)
			require.NoError(t, err)
			assert.Equal(t, []int{7, 8}, set.IDs())
		})
	}
}

func TestResilientStore_RetryPauseGrows(t *testing.T) {
	dir, _ := blockedDir(t)
	fake := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := &recordingLogger{}

	store := OpenResilient("file", Options{Dir: dir, Clock: fake}, logger)
	defer store.Close()
	require.Len(t, logger.errors, 1)

	fake.Advance(31 * time.Second)
	_, err := store.LastTouched(models.CategoryMissing)
	require.NoError(t, err)
	require.Len(t, logger.errors, 2, "first retry after 30s")

	fake.Advance(31 * time.Second)
	_, err = store.LastTouched(models.CategoryMissing)
	require.NoError(t, err)
	assert.Len(t, logger.errors, 2, "second retry waits 60s")

	fake.Advance(30 * time.Second)
	_, err = store.LastTouched(models.CategoryMissing)
	require.NoError(t, err)
	assert.Len(t, logger.errors, 3)
}

func TestResilientStore_InMemoryReset(t *testing.T) {
	dir, unblock := blockedDir(t)
	fake := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	opts := Options{Dir: dir, ResetInterval: time.Hour, MaxEntries: 500, TruncateBytes: 10000, Clock: fake}

	store := OpenResilient("file", opts, &recordingLogger{})
	defer store.Close()

	assert.ErrorIs(t, store.Mark(models.CategoryUpgrade, 1), ErrNotPersisted)
	assert.ErrorIs(t, store.Mark(models.CategoryUpgrade, 2), ErrNotPersisted)

	reset, err := store.MaybeReset(models.CategoryUpgrade, fake.Now().Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, reset)

	reset, err = store.MaybeReset(models.CategoryUpgrade, fake.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, reset)
	set, err := store.Load(models.CategoryUpgrade)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())

	assert.ErrorIs(t, store.Mark(models.CategoryUpgrade, 9), ErrNotPersisted)

	unblock()
	fake.Advance(time.Minute)
	set, err = store.Load(models.CategoryUpgrade)
	require.NoError(t, err)
	assert.False(t, store.Degraded())
	assert.Equal(t, []int{9}, set.IDs())
}

func TestResilientStore_UnknownCategory(t *testing.T) {
	dir, _ := blockedDir(t)
	store := OpenResilient("file", Options{Dir: dir, Clock: clock.NewFake(time.Now())}, &recordingLogger{})
	defer store.Close()

	assert.ErrorIs(t, store.Mark(models.Category("series"), 1), ErrUnknownCategory)
}
