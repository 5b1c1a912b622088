package hunt

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hnipps/huntarr/pkg/models"
)

// RetryPolicy tracks an exponential pause per category after failed listings
type RetryPolicy struct {
	initial time.Duration
	max     time.Duration

	mu       sync.Mutex
	backoffs map[models.Category]*backoff.ExponentialBackOff
}

// NewRetryPolicy creates a policy that starts at initial and never exceeds max
func NewRetryPolicy(initial, max time.Duration) *RetryPolicy {
	if max > 0 && initial > max {
		initial = max
	}
	return &RetryPolicy{
		initial:  initial,
		max:      max,
		backoffs: make(map[models.Category]*backoff.ExponentialBackOff),
	}
}

// Next returns the pause before retrying the category and advances its backoff
func (p *RetryPolicy) Next(category models.Category) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.backoffs[category]
	if !ok {
		b = backoff.NewExponentialBackOff()
		b.InitialInterval = p.initial
		b.MaxInterval = p.max
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.Reset()
		p.backoffs[category] = b
	}

	next := b.NextBackOff()
	if p.max > 0 && next > p.max {
		next = p.max
	}
	return next
}

// Reset returns the category to its initial pause after a successful listing
func (p *RetryPolicy) Reset(category models.Category) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.backoffs[category]; ok {
		b.Reset()
	}
}
