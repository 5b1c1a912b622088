package arr

import (
	"context"
	"strings"
	"time"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/pkg/models"
)

// CommandWaiter polls Radarr until a submitted command finishes
type CommandWaiter struct {
	client   Client
	clock    clock.Clock
	delay    time.Duration
	attempts int
	settle   time.Duration
	logger   Logger
}

// NewCommandWaiter creates a waiter that polls every delay, at most attempts
// times, and pauses for settle after a command completes
func NewCommandWaiter(client Client, clk clock.Clock, delay time.Duration, attempts int, settle time.Duration, logger Logger) *CommandWaiter {
	return &CommandWaiter{
		client:   client,
		clock:    clk,
		delay:    delay,
		attempts: attempts,
		settle:   settle,
		logger:   logger,
	}
}

// Await blocks until the command completes, fails, or the attempt ceiling is reached
func (w *CommandWaiter) Await(ctx context.Context, commandID int) models.CommandStatus {
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if err := w.clock.Sleep(ctx, w.delay); err != nil {
			w.logger.Warn("Stopped waiting for command %d: %v", commandID, err)
			return models.CommandErrored
		}

		status, err := w.client.GetCommandStatus(ctx, commandID)
		if err != nil {
			w.logger.Warn("⚠️  Failed to check status of command %d: %v", commandID, err)
			return models.CommandErrored
		}

		switch strings.ToLower(status) {
		case "completed", "complete":
			w.logger.Debug("Command %d completed after %d poll(s)", commandID, attempt)
			if err := w.clock.Sleep(ctx, w.settle); err != nil {
				return models.CommandErrored
			}
			return models.CommandCompleted
		case "failed", "aborted", "cancelled", "orphaned":
			w.logger.Warn("⚠️  Command %d ended with status %q", commandID, status)
			return models.CommandErrored
		}

		w.logger.Debug("Command %d status %q (attempt %d/%d)", commandID, status, attempt, w.attempts)
	}

	w.logger.Warn("⚠️  Command %d did not complete within %d attempt(s)", commandID, w.attempts)
	return models.CommandTimedOut
}
