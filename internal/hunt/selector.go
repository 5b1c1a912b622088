package hunt

import (
	"math/rand"
	"time"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/state"
	"github.com/hnipps/huntarr/pkg/models"
)

// SelectorOptions configures candidate filtering and ordering
type SelectorOptions struct {
	MonitoredOnly      bool
	SkipFutureReleases bool
	RandomSelection    bool
}

// Selector filters and orders candidate movies for one category
type Selector struct {
	opts  SelectorOptions
	clock clock.Clock
	rnd   *rand.Rand
}

// NewSelector creates a Selector. A nil rnd is seeded from the clock.
func NewSelector(opts SelectorOptions, clk clock.Clock, rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(clk.Now().UnixNano()))
	}
	return &Selector{opts: opts, clock: clk, rnd: rnd}
}

// Select returns the movies of a category still worth processing, in server
// order or shuffled. Filters run in order: category, monitored, future
// release (missing only), already processed, duplicate ID.
func (s *Selector) Select(items []models.Movie, category models.Category, processed *state.IDSet) []models.Movie {
	today := s.clock.Now()
	seen := make(map[int]struct{}, len(items))

	selected := make([]models.Movie, 0, len(items))
	for _, movie := range items {
		if !inCategory(movie, category) {
			continue
		}
		if s.opts.MonitoredOnly && !movie.Monitored {
			continue
		}
		if category == models.CategoryMissing && s.opts.SkipFutureReleases && isFutureRelease(movie, today) {
			continue
		}
		if processed.Contains(movie.ID) {
			continue
		}
		if _, dup := seen[movie.ID]; dup {
			continue
		}
		seen[movie.ID] = struct{}{}
		selected = append(selected, movie)
	}

	if s.opts.RandomSelection {
		s.rnd.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}

	return selected
}

func inCategory(movie models.Movie, category models.Category) bool {
	switch category {
	case models.CategoryMissing:
		return !movie.HasFile
	case models.CategoryUpgrade:
		return movie.QualityCutoffNotMet
	default:
		return false
	}
}

// isFutureRelease reports whether the movie's release date falls on a UTC
// calendar day after today. Movies without any date are never future.
func isFutureRelease(movie models.Movie, now time.Time) bool {
	release := movie.ReleaseDate()
	if release == nil {
		return false
	}
	return utcDay(*release).After(utcDay(now))
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
