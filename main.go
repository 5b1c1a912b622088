package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/internal/hunt"
	"github.com/hnipps/huntarr/internal/metrics"
	"github.com/hnipps/huntarr/internal/report"
	"github.com/hnipps/huntarr/internal/state"
)

// Version information - set at build time
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the components of a running hunter
type app struct {
	cfg          *config.Config
	logger       arr.Logger
	clock        clock.Clock
	client       arr.Client
	store        state.Store
	metrics      *metrics.Metrics
	orchestrator *hunt.Orchestrator
	reporter     *report.Generator
}

// newApp wires the Radarr client, state store and hunt loop from configuration
func newApp(cfg *config.Config, logger arr.Logger, clk clock.Clock) (*app, error) {
	// An unavailable backend degrades to memory so cycles keep running
	store := state.OpenResilient(cfg.State.Backend, state.OptionsFromConfig(cfg.State, clk), logger)

	client := arr.NewRadarrClient(&cfg.Radarr, cfg.RequestTimeout, cfg.RequestDelay, logger)

	source, err := hunt.NewSource(cfg.UpgradeSource, client, cfg.MonitoredOnly)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := metrics.New()
	progress := arr.NewConsoleProgressReporter(logger)

	waiter := arr.NewCommandWaiter(client, clk, cfg.CommandWaitDelay, cfg.CommandWaitAttempts, cfg.CommandSettleDelay, logger)
	remediator := arr.NewRemediator(client, waiter, clk, arr.RemediatorOptions{
		WaitForCommands: cfg.WaitForCommands,
		SettleDelay:     cfg.CommandSettleDelay,
		Observer:        m,
	}, progress, logger)

	selector := hunt.NewSelector(hunt.SelectorOptions{
		MonitoredOnly:      cfg.MonitoredOnly,
		SkipFutureReleases: cfg.SkipFutureReleases,
		RandomSelection:    cfg.RandomSelection,
	}, clk, rand.New(rand.NewSource(clk.Now().UnixNano())))

	orchestrator := hunt.NewOrchestrator(cfg, hunt.Deps{
		Client:     client,
		Source:     source,
		Selector:   selector,
		Remediator: remediator,
		Store:      store,
		Clock:      clk,
		Progress:   progress,
		Logger:     logger,
		Recorder:   m,
	})

	return &app{
		cfg:          cfg,
		logger:       logger,
		clock:        clk,
		client:       client,
		store:        store,
		metrics:      m,
		orchestrator: orchestrator,
		reporter:     report.NewGenerator(logger, cfg.ReportDir),
	}, nil
}

// Close releases the state store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("❌ Failed to close state store: %v", err)
	}
}
