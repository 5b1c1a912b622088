package arr

import (
	"github.com/hnipps/huntarr/pkg/models"
)

// ConsoleProgressReporter implements the ProgressReporter interface for console output
type ConsoleProgressReporter struct {
	logger Logger
}

// NewConsoleProgressReporter creates a new ConsoleProgressReporter
func NewConsoleProgressReporter(logger Logger) ProgressReporter {
	return &ConsoleProgressReporter{
		logger: logger,
	}
}

// StartPass reports the start of a category pass
func (r *ConsoleProgressReporter) StartPass(category models.Category, quota, candidates int) {
	r.logger.Info("")
	r.logger.Info("=== Checking for %s ===", category.Title())
	r.logger.Info("Found %d candidate(s), processing up to %d", candidates, quota)
}

// StartMovie reports the start of processing a movie
func (r *ConsoleProgressReporter) StartMovie(movie models.Movie, current, total int) {
	r.logger.Info("🎬 [%d/%d] %s (ID: %d)", current, total, movie.DisplayName(), movie.ID)
}

// ReportStep reports a submitted remediation command
func (r *ConsoleProgressReporter) ReportStep(movieID int, command models.CommandName, commandID int) {
	r.logger.Info("    ➡️  %s queued for movie %d (command ID: %d)", command, movieID, commandID)
}

// ReportFailure reports a movie that could not be remediated
func (r *ConsoleProgressReporter) ReportFailure(movie models.Movie, err error) {
	r.logger.Warn("    ❌ %s: %s", movie.DisplayName(), err.Error())
}

// FinishPass reports the statistics of a category pass
func (r *ConsoleProgressReporter) FinishPass(stats models.PassStats) {
	if stats.Skipped {
		r.logger.Info("ℹ️  %s skipped (quota %d)", stats.Category.Title(), stats.Quota)
		return
	}

	r.logger.Info("%s Summary: processed %d of %d selected (%d candidate(s))",
		stats.Category.Title(), stats.Processed, stats.Selected, stats.Candidates)
	if stats.Failed > 0 {
		r.logger.Warn("  Failed remediations: %d", stats.Failed)
	}
	if stats.Unpersisted > 0 {
		r.logger.Warn("  Remediated but not recorded: %d", stats.Unpersisted)
	}
	if stats.Error != "" {
		r.logger.Warn("  Listing error: %s", stats.Error)
	}
	if stats.Completed() == 0 && stats.Error == "" && stats.Failed == 0 {
		r.logger.Info("ℹ️  Nothing to process for %s.", stats.Category.Title())
	}
}
