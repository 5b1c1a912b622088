package arr

import (
	"context"
	"fmt"
	"time"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/pkg/models"
)

// fixedWaitFactor multiplies the settle delay when refresh completion is not polled
const fixedWaitFactor = 5

// CommandObserver receives command outcomes, typically for metrics
type CommandObserver interface {
	CommandSubmitted(name models.CommandName, err error)
	CommandFinished(name models.CommandName, status models.CommandStatus)
}

// RemediatorOptions configures a Remediator
type RemediatorOptions struct {
	// WaitForCommands polls the refresh command instead of pausing a fixed time
	WaitForCommands bool
	SettleDelay     time.Duration
	Observer        CommandObserver
}

// Remediator drives a movie through refresh, search and rescan
type Remediator struct {
	client   Client
	waiter   *CommandWaiter
	clock    clock.Clock
	opts     RemediatorOptions
	progress ProgressReporter
	logger   Logger
}

// NewRemediator creates a new Remediator
func NewRemediator(client Client, waiter *CommandWaiter, clk clock.Clock, opts RemediatorOptions, progress ProgressReporter, logger Logger) *Remediator {
	return &Remediator{
		client:   client,
		waiter:   waiter,
		clock:    clk,
		opts:     opts,
		progress: progress,
		logger:   logger,
	}
}

// Remediate runs refresh, waits for it, then search and a best-effort rescan.
// Success means the search was queued.
func (r *Remediator) Remediate(ctx context.Context, movie models.Movie) models.RemediationResult {
	refreshID, err := r.submit(ctx, models.CommandRefreshMovie, movie.ID)
	if err != nil {
		r.progress.ReportFailure(movie, fmt.Errorf("refresh failed: %w", err))
		return models.RemediationFailed
	}

	if status := r.awaitRefresh(ctx, refreshID); status != models.CommandCompleted {
		r.progress.ReportFailure(movie, fmt.Errorf("refresh command %d %s", refreshID, status))
		return models.RemediationFailed
	}

	if _, err := r.submit(ctx, models.CommandMoviesSearch, movie.ID); err != nil {
		r.progress.ReportFailure(movie, fmt.Errorf("search failed: %w", err))
		return models.RemediationFailed
	}

	if _, err := r.submit(ctx, models.CommandRescanMovie, movie.ID); err != nil {
		r.logger.Warn("⚠️  Rescan failed for %s, continuing: %v", movie.DisplayName(), err)
	}

	return models.RemediationSuccess
}

func (r *Remediator) submit(ctx context.Context, name models.CommandName, movieID int) (int, error) {
	commandID, err := r.client.SubmitCommand(ctx, name, movieID)
	if r.opts.Observer != nil {
		r.opts.Observer.CommandSubmitted(name, err)
	}
	if err != nil {
		return 0, err
	}
	r.progress.ReportStep(movieID, name, commandID)
	return commandID, nil
}

func (r *Remediator) awaitRefresh(ctx context.Context, commandID int) models.CommandStatus {
	var status models.CommandStatus
	if r.opts.WaitForCommands {
		status = r.waiter.Await(ctx, commandID)
	} else if err := r.clock.Sleep(ctx, r.opts.SettleDelay*fixedWaitFactor); err != nil {
		status = models.CommandErrored
	} else {
		status = models.CommandCompleted
	}

	if r.opts.Observer != nil {
		r.opts.Observer.CommandFinished(models.CommandRefreshMovie, status)
	}
	return status
}
