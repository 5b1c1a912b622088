// Package hunt runs the hunt cycle: select candidates per category, remediate
// up to the quota, and remember what was processed.
package hunt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/internal/state"
	"github.com/hnipps/huntarr/pkg/models"
)

// Remediator drives one movie through the remediation commands
type Remediator interface {
	Remediate(ctx context.Context, movie models.Movie) models.RemediationResult
}

// Recorder observes cycle outcomes, typically for metrics
type Recorder interface {
	CycleCompleted(summary *models.CycleSummary)
	PassCompleted(stats models.PassStats)
	QueueSize(size int)
	StateReset(category models.Category)
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Client     arr.Client
	Source     Source
	Selector   *Selector
	Remediator Remediator
	Store      state.Store
	Retry      *RetryPolicy
	Clock      clock.Clock
	Progress   arr.ProgressReporter
	Logger     arr.Logger
	Recorder   Recorder
}

// Orchestrator runs hunt cycles
type Orchestrator struct {
	cfg  *config.Config
	deps Deps

	mu   sync.RWMutex
	last *models.CycleSummary
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.Retry == nil {
		deps.Retry = NewRetryPolicy(cfg.ListingRetryDelay, cfg.SleepDuration)
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// LastSummary returns the most recent cycle summary, or nil before the first cycle
func (o *Orchestrator) LastSummary() *models.CycleSummary {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.last == nil {
		return nil
	}
	summary := *o.last
	summary.Passes = append([]models.PassStats(nil), o.last.Passes...)
	return &summary
}

// RunCycle runs one full cycle. The only error returned is context cancellation.
func (o *Orchestrator) RunCycle(ctx context.Context) (*models.CycleSummary, error) {
	logger := o.deps.Logger
	summary := &models.CycleSummary{
		ID:        uuid.NewString(),
		StartedAt: o.deps.Clock.Now(),
		HuntMode:  o.cfg.HuntMode,
		DryRun:    o.cfg.DryRun,
	}
	defer o.finish(summary)

	logger.Info("=== Starting hunt cycle %s ===", summary.ID)

	o.checkReset()

	categories, ok := o.cfg.HuntMode.Categories()
	if !ok {
		logger.Error("❌ Unknown HUNT_MODE %q; valid values are missing, upgrade, both", o.cfg.HuntMode)
		summary.SkipReason = fmt.Sprintf("unknown hunt mode %q", o.cfg.HuntMode)
		return summary, nil
	}

	if skip := o.queueGate(ctx, summary); skip {
		return summary, ctx.Err()
	}

	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		stats := o.runPass(ctx, category)
		summary.Passes = append(summary.Passes, stats)
		o.deps.Recorder.PassCompleted(stats)
	}

	return summary, ctx.Err()
}

// checkReset clears every category whose processed set has aged out
func (o *Orchestrator) checkReset() {
	if o.cfg.State.ResetInterval <= 0 {
		o.deps.Logger.Debug("State reset is disabled. Processed items will be remembered indefinitely.")
		return
	}

	now := o.deps.Clock.Now()
	for _, category := range models.Categories {
		reset, err := o.deps.Store.MaybeReset(category, now)
		if err != nil {
			o.deps.Logger.Error("❌ Failed to check state reset for %s: %v", category, err)
			continue
		}
		if reset {
			o.deps.Logger.Info("🔄 Reset processed %s state (older than %d hours)", category, int(o.cfg.State.ResetInterval/time.Hour))
			o.deps.Recorder.StateReset(category)
		}
	}
}

// queueGate reports whether the download queue is too full to hunt this cycle
func (o *Orchestrator) queueGate(ctx context.Context, summary *models.CycleSummary) bool {
	minimum := o.cfg.MinimumDownloadQueueSize
	if minimum < 0 {
		return false
	}

	size, err := o.deps.Client.GetQueueSize(ctx)
	if err != nil {
		o.deps.Logger.Warn("⚠️  Could not read download queue size, continuing: %v", err)
		return false
	}

	summary.QueueSize = &size
	o.deps.Recorder.QueueSize(size)

	if size >= minimum {
		o.deps.Logger.Info("⏸️  Download queue has %d item(s), at or above MINIMUM_DOWNLOAD_QUEUE_SIZE=%d; skipping this cycle", size, minimum)
		summary.SkipReason = fmt.Sprintf("download queue size %d >= %d", size, minimum)
		return true
	}

	o.deps.Logger.Debug("Download queue has %d item(s), below minimum %d", size, minimum)
	return false
}

func (o *Orchestrator) runPass(ctx context.Context, category models.Category) models.PassStats {
	logger := o.deps.Logger
	quota := o.cfg.Quota(category)
	stats := models.PassStats{Category: category, Quota: quota}

	if quota <= 0 {
		stats.Skipped = true
		o.deps.Progress.FinishPass(stats)
		return stats
	}

	items, err := o.deps.Source.Fetch(ctx, category)
	if err != nil {
		stats.Error = err.Error()
		logger.Error("❌ Failed to list %s: %v", category.Title(), err)
		if ctx.Err() == nil {
			pause := o.deps.Retry.Next(category)
			logger.Warn("Retrying %s next cycle after a %s pause", category, pause)
			o.deps.Clock.Sleep(ctx, pause)
		}
		o.deps.Progress.FinishPass(stats)
		return stats
	}
	o.deps.Retry.Reset(category)

	processed, err := o.deps.Store.Load(category)
	if err != nil {
		logger.Error("❌ Failed to load processed %s IDs, continuing with an empty set: %v", category, err)
		processed = state.NewIDSet()
	}

	selected := o.deps.Selector.Select(items, category, processed)
	stats.Candidates = len(items)
	stats.Selected = len(selected)

	o.deps.Progress.StartPass(category, quota, len(selected))

	total := quota
	if len(selected) < total {
		total = len(selected)
	}

	for _, movie := range selected {
		if stats.Completed() >= quota || ctx.Err() != nil {
			break
		}
		if movie.ID <= 0 {
			logger.Warn("⚠️  Skipping %s without a valid ID", movie.DisplayName())
			continue
		}

		o.deps.Progress.StartMovie(movie, stats.Completed()+1, total)

		if o.cfg.DryRun {
			logger.Info("🧪 Dry run: would refresh, search and rescan %s", movie.DisplayName())
			stats.Processed++
			continue
		}

		if result := o.deps.Remediator.Remediate(ctx, movie); result != models.RemediationSuccess {
			stats.Failed++
			continue
		}

		// The remote work happened, so the item uses up quota even if the marker is lost
		if err := o.deps.Store.Mark(category, movie.ID); err != nil {
			logger.Error("❌ Failed to mark %s as processed: %v", movie.DisplayName(), err)
			stats.Unpersisted++
			continue
		}
		logger.Debug("Marked movie %d as processed (%s)", movie.ID, category)
		stats.Processed++
		stats.ProcessedIDs = append(stats.ProcessedIDs, movie.ID)
	}

	if truncated, err := o.deps.Store.Truncate(category); err != nil {
		logger.Error("❌ Failed to truncate processed %s IDs: %v", category, err)
	} else if truncated {
		logger.Info("Processed %s list is large. Truncated to last %d entries.", category, o.cfg.State.MaxEntries)
	}

	o.deps.Progress.FinishPass(stats)
	return stats
}

func (o *Orchestrator) finish(summary *models.CycleSummary) {
	summary.FinishedAt = o.deps.Clock.Now()
	summary.NextResetIn = o.resetCountdown(summary.FinishedAt)

	if summary.SkipReason == "" {
		o.deps.Logger.Info("Cycle complete: processed %d movie(s)", summary.TotalProcessed())
		if n := summary.TotalUnpersisted(); n > 0 {
			o.deps.Logger.Warn("⚠️  %d remediated movie(s) could not be recorded and may be selected again", n)
		}
	}
	if summary.NextResetIn != nil {
		o.deps.Logger.Info("State reset in: %s", *summary.NextResetIn)
	}

	o.deps.Recorder.CycleCompleted(summary)

	o.mu.Lock()
	o.last = summary
	o.mu.Unlock()
}

// resetCountdown returns the time until the earliest category reset
func (o *Orchestrator) resetCountdown(now time.Time) *string {
	interval := o.cfg.State.ResetInterval
	if interval <= 0 {
		return nil
	}

	var earliest time.Time
	for _, category := range models.Categories {
		touched, err := o.deps.Store.LastTouched(category)
		if err != nil {
			o.deps.Logger.Debug("Could not read last reset of %s: %v", category, err)
			continue
		}
		if earliest.IsZero() || touched.Before(earliest) {
			earliest = touched
		}
	}
	if earliest.IsZero() {
		return nil
	}

	remaining := earliest.Add(interval).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	countdown := formatCountdown(remaining)
	return &countdown
}

func formatCountdown(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

type noopRecorder struct{}

func (noopRecorder) CycleCompleted(*models.CycleSummary) {}
func (noopRecorder) PassCompleted(models.PassStats)      {}
func (noopRecorder) QueueSize(int)                       {}
func (noopRecorder) StateReset(models.Category)          {}
