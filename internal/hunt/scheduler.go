package hunt

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/pkg/models"
)

// CycleRunner runs a single hunt cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleSummary, error)
}

// ScheduleFromConfig returns the CYCLE_SCHEDULE cron schedule, or a fixed
// SLEEP_DURATION delay when no schedule is set
func ScheduleFromConfig(cfg *config.Config) (cron.Schedule, error) {
	if cfg.CycleSchedule == "" {
		return cron.Every(cfg.SleepDuration), nil
	}

	schedule, err := cron.ParseStandard(cfg.CycleSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid CYCLE_SCHEDULE %q: %w", cfg.CycleSchedule, err)
	}
	return schedule, nil
}

// Scheduler repeats hunt cycles until its context is cancelled
type Scheduler struct {
	runner   CycleRunner
	schedule cron.Schedule
	clock    clock.Clock
	logger   arr.Logger
	onCycle  func(*models.CycleSummary)
}

// NewScheduler creates a Scheduler. onCycle, when set, receives every summary.
func NewScheduler(runner CycleRunner, schedule cron.Schedule, clk clock.Clock, logger arr.Logger, onCycle func(*models.CycleSummary)) *Scheduler {
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		clock:    clk,
		logger:   logger,
		onCycle:  onCycle,
	}
}

// Run runs a cycle, waits for the next slot, and repeats. It returns nil once
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		summary, err := s.runner.RunCycle(ctx)
		if summary != nil && s.onCycle != nil {
			s.onCycle(summary)
		}
		if err != nil || ctx.Err() != nil {
			s.logger.Info("🛑 Hunt loop stopped")
			return nil
		}

		now := s.clock.Now()
		next := s.schedule.Next(now)
		wait := next.Sub(now)
		s.logger.Info("💤 Sleeping %s until next cycle at %s", wait.Round(time.Second), next.Format("2006-01-02 15:04:05"))

		if err := s.clock.Sleep(ctx, wait); err != nil {
			s.logger.Info("🛑 Hunt loop stopped")
			return nil
		}
	}
}
