package models

import (
	"fmt"
	"strings"
	"time"
)

// Movie represents a movie in Radarr as seen by the hunter
type Movie struct {
	ID                  int        `json:"id"`
	Title               string     `json:"title"`
	Year                int        `json:"year,omitempty"`
	Monitored           bool       `json:"monitored"`
	HasFile             bool       `json:"hasFile"`
	QualityCutoffNotMet bool       `json:"qualityCutoffNotMet"`
	PhysicalRelease     *time.Time `json:"physicalRelease,omitempty"`
	DigitalRelease      *time.Time `json:"digitalRelease,omitempty"`
	InCinemas           *time.Time `json:"inCinemas,omitempty"`
}

// DisplayName returns "Title (Year)" with placeholders for missing values
func (m Movie) DisplayName() string {
	title := m.Title
	if title == "" {
		title = "Unknown Title"
	}
	if m.Year == 0 {
		return fmt.Sprintf("%s (Unknown Year)", title)
	}
	return fmt.Sprintf("%s (%d)", title, m.Year)
}

// ReleaseDate returns the release date used for future-release filtering.
// Physical wins over digital, digital over cinema. Nil when none is known.
func (m Movie) ReleaseDate() *time.Time {
	switch {
	case m.PhysicalRelease != nil:
		return m.PhysicalRelease
	case m.DigitalRelease != nil:
		return m.DigitalRelease
	default:
		return m.InCinemas
	}
}

// Category is one of the two remediation tracks
type Category string

const (
	CategoryMissing Category = "missing"
	CategoryUpgrade Category = "upgrade"
)

// Categories lists every category in pass order
var Categories = []Category{CategoryMissing, CategoryUpgrade}

// ParseCategory parses a category name (case-insensitive)
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryMissing:
		return CategoryMissing, nil
	case CategoryUpgrade:
		return CategoryUpgrade, nil
	default:
		return "", fmt.Errorf("unknown category %q: use 'missing' or 'upgrade'", s)
	}
}

// Title returns a human readable label for log lines
func (c Category) Title() string {
	switch c {
	case CategoryMissing:
		return "Missing Movies"
	case CategoryUpgrade:
		return "Quality Upgrades (Cutoff Unmet)"
	default:
		return string(c)
	}
}

// HuntMode selects which categories run each cycle
type HuntMode string

const (
	HuntModeMissing HuntMode = "missing"
	HuntModeUpgrade HuntMode = "upgrade"
	HuntModeBoth    HuntMode = "both"
)

// Categories returns the categories a mode runs, or false for an unknown mode
func (m HuntMode) Categories() ([]Category, bool) {
	switch HuntMode(strings.ToLower(string(m))) {
	case HuntModeMissing:
		return []Category{CategoryMissing}, true
	case HuntModeUpgrade:
		return []Category{CategoryUpgrade}, true
	case HuntModeBoth:
		return []Category{CategoryMissing, CategoryUpgrade}, true
	default:
		return nil, false
	}
}

// CommandName is a Radarr command used during remediation
type CommandName string

const (
	CommandRefreshMovie CommandName = "RefreshMovie"
	CommandMoviesSearch CommandName = "MoviesSearch"
	CommandRescanMovie  CommandName = "RescanMovie"
)

// CommandStatus is the terminal outcome of waiting on a command
type CommandStatus int

const (
	CommandCompleted CommandStatus = iota
	CommandTimedOut
	CommandErrored
)

func (s CommandStatus) String() string {
	switch s {
	case CommandCompleted:
		return "completed"
	case CommandTimedOut:
		return "timed_out"
	case CommandErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// RemediationResult is the outcome of one refresh → search → rescan sequence
type RemediationResult int

const (
	RemediationSuccess RemediationResult = iota
	RemediationFailed
)

func (r RemediationResult) String() string {
	if r == RemediationSuccess {
		return "success"
	}
	return "failed"
}

// PassStats tracks one category pass within a cycle
type PassStats struct {
	Category   Category `json:"category"`
	Quota      int      `json:"quota"`
	Candidates int      `json:"candidates"`
	Selected   int      `json:"selected"`
	Processed  int      `json:"processed"`
	Failed     int      `json:"failed"`
	// Unpersisted counts movies remediated but not recorded in the state store
	Unpersisted int  `json:"unpersisted,omitempty"`
	Skipped     bool `json:"skipped,omitempty"`
	// Error is set when the pass could not list its candidates
	Error string `json:"error,omitempty"`
	// ProcessedIDs lists the movies marked processed during the pass
	ProcessedIDs []int `json:"processedIds,omitempty"`
}

// CycleSummary represents the result of one full hunt cycle
type CycleSummary struct {
	ID          string      `json:"id"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
	HuntMode    HuntMode    `json:"huntMode"`
	DryRun      bool        `json:"dryRun"`
	QueueSize   *int        `json:"queueSize,omitempty"`
	SkipReason  string      `json:"skipReason,omitempty"`
	Passes      []PassStats `json:"passes"`
	NextResetIn *string     `json:"nextResetIn,omitempty"`
}

// Completed counts remediated movies, recorded or not, toward the pass quota
func (p PassStats) Completed() int {
	return p.Processed + p.Unpersisted
}

// TotalUnpersisted sums movies whose processed marker could not be saved
func (s *CycleSummary) TotalUnpersisted() int {
	total := 0
	for _, p := range s.Passes {
		total += p.Unpersisted
	}
	return total
}

// TotalProcessed sums processed items across all passes
func (s *CycleSummary) TotalProcessed() int {
	total := 0
	for _, p := range s.Passes {
		total += p.Processed
	}
	return total
}
