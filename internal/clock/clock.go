// Package clock provides the time source and cancellable waits used at every
// suspension point of the hunt loop.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock abstracts wall-clock time and sleeping
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

// Real adapts a clockwork clock to Clock, making every wait cancellable
type Real struct {
	c clockwork.Clock
}

// New returns the real clock
func New() Clock {
	return NewFrom(clockwork.NewRealClock())
}

// NewFrom returns a Clock driven by c
func NewFrom(c clockwork.Clock) *Real {
	return &Real{c: c}
}

// Now returns the current time
func (r *Real) Now() time.Time {
	return r.c.Now()
}

// Sleep waits for d or until the context is cancelled
func (r *Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := r.c.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// Fake is a manual clock for tests. Sleep advances the clock instantly and
// records the requested durations.
type Fake struct {
	fc *clockwork.FakeClock

	mu     sync.Mutex
	sleeps []time.Duration
}

// NewFake creates a Fake clock starting at now
func NewFake(now time.Time) *Fake {
	return &Fake{fc: clockwork.NewFakeClockAt(now)}
}

// Now returns the fake current time
func (f *Fake) Now() time.Time {
	return f.fc.Now()
}

// Sleep records d and advances the clock without blocking
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()

	if d > 0 {
		f.fc.Advance(d)
	}
	return nil
}

// Advance moves the fake clock forward
func (f *Fake) Advance(d time.Duration) {
	f.fc.Advance(d)
}

// Sleeps returns a copy of every duration passed to Sleep
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
