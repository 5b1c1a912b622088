package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/internal/hunt"
	"github.com/hnipps/huntarr/internal/server"
	"github.com/hnipps/huntarr/internal/state"
	"github.com/hnipps/huntarr/pkg/models"
)

// rootOptions are the persistent flags shared by every command
type rootOptions struct {
	logLevel   string
	dryRun     bool
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "huntarr",
		Short:   "Huntarr - missing and upgrade hunter for Radarr",
		Version: version,
		Long: `Huntarr periodically asks Radarr for missing movies and movies below their
quality cutoff, and triggers refresh, search and rescan for a few of them
each cycle. Processed movies are remembered until the state reset interval.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHunt(cmd, opts)
		},
	}
	rootCmd.SetVersionTemplate("Huntarr version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Select and log movies without sending commands")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file (overrides HUNTARR_CONFIG)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run hunt cycles until interrupted (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHunt(cmd, opts)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Run a single hunt cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration and test the Radarr connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	})
	rootCmd.AddCommand(newStateCmd(opts))

	return rootCmd
}

func newStateCmd(opts *rootOptions) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset processed movie IDs",
	}

	stateCmd.AddCommand(&cobra.Command{
		Use:   "show [category]",
		Short: "Show processed IDs for missing, upgrade or both",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, args, func(store state.Store, category models.Category) error {
				return showState(cmd.OutOrStdout(), store, category)
			})
		},
	})
	stateCmd.AddCommand(&cobra.Command{
		Use:   "reset [category]",
		Short: "Clear processed IDs for missing, upgrade or both",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, args, func(store state.Store, category models.Category) error {
				if err := store.Reset(category); err != nil {
					return fmt.Errorf("failed to reset %s: %w", category, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "🔄 Reset processed %s IDs\n", category)
				return nil
			})
		},
	})

	return stateCmd
}

// loadConfig loads configuration, applies flag overrides and builds the logger.
// Validation is skipped for commands that never talk to Radarr.
func loadConfig(cmd *cobra.Command, opts *rootOptions, validate bool) (*config.Config, arr.Logger, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("HUNTARR_CONFIG")
	}

	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.logLevel != "" {
		cfg.LogLevel = strings.ToUpper(opts.logLevel)
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	return cfg, arr.NewStandardLoggerTo(cfg.LogLevel, cmd.OutOrStdout()), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runHunt runs the scheduler and, when configured, the status server
func runHunt(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := loadConfig(cmd, opts, true)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Info("Starting Huntarr %s - Radarr hunter", version)
	cfg.LogConfiguration(logger)
	if cfg.DryRun {
		logger.Info("🔍 DRY RUN MODE - No commands will be sent")
	}

	a, err := newApp(cfg, logger, clock.New())
	if err != nil {
		return err
	}
	defer a.Close()

	schedule, err := hunt.ScheduleFromConfig(cfg)
	if err != nil {
		return err
	}
	scheduler := hunt.NewScheduler(a.orchestrator, schedule, a.clock, logger, a.reporter.Observe)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.StatusAddr != "" {
		srv := server.New(cfg.StatusAddr, version, a.orchestrator, a.metrics.Registry(), logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("❌ %v", err)
		return err
	}

	logger.Info("👋 Huntarr stopped")
	return nil
}

// runOnce runs a single cycle and prints its report
func runOnce(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := loadConfig(cmd, opts, true)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Info("Starting Huntarr %s - single cycle", version)
	cfg.LogConfiguration(logger)

	a, err := newApp(cfg, logger, clock.New())
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.orchestrator.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle interrupted: %w", err)
	}

	return a.reporter.GenerateReport(summary, true)
}

// runCheck validates configuration and tests the Radarr connection
func runCheck(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := loadConfig(cmd, opts, true)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	cfg.LogConfiguration(logger)

	client := arr.NewRadarrClient(&cfg.Radarr, cfg.RequestTimeout, cfg.RequestDelay, logger)
	if err := client.TestConnection(ctx); err != nil {
		logger.Error("❌ Failed to connect to Radarr: %v", err)
		return fmt.Errorf("connection check failed: %w", err)
	}

	if size, err := client.GetQueueSize(ctx); err != nil {
		logger.Warn("⚠️  Could not read download queue: %v", err)
	} else {
		logger.Info("📥 Download queue size: %d", size)
	}

	logger.Info("✅ Configuration and connection OK")
	return nil
}

// withStore opens the state store and applies fn to the chosen categories
func withStore(cmd *cobra.Command, opts *rootOptions, args []string, fn func(state.Store, models.Category) error) error {
	categories := models.Categories
	if len(args) == 1 {
		category, err := models.ParseCategory(args[0])
		if err != nil {
			return err
		}
		categories = []models.Category{category}
	}

	cfg, _, err := loadConfig(cmd, opts, false)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.State.Backend, state.OptionsFromConfig(cfg.State, clock.New()))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer store.Close()

	for _, category := range categories {
		if err := fn(store, category); err != nil {
			return err
		}
	}
	return nil
}

func showState(w io.Writer, store state.Store, category models.Category) error {
	ids, err := store.Load(category)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", category, err)
	}
	touched, err := store.LastTouched(category)
	if err != nil {
		return fmt.Errorf("failed to read %s timestamp: %w", category, err)
	}

	fmt.Fprintf(w, "%s: %d processed\n", category.Title(), ids.Len())
	if !touched.IsZero() {
		fmt.Fprintf(w, "  Last updated: %s\n", touched.Format("2006-01-02 15:04:05"))
	}
	if ids.Len() > 0 {
		fmt.Fprintf(w, "  IDs: %v\n", ids.IDs())
	}
	return nil
}
