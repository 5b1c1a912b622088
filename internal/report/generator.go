package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hnipps/huntarr/pkg/models"
)

// Generator handles the output of cycle summaries
type Generator struct {
	logger Logger
	dir    string
}

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NewGenerator creates a new report generator. An empty dir disables JSON reports.
func NewGenerator(logger Logger, dir string) *Generator {
	return &Generator{
		logger: logger,
		dir:    dir,
	}
}

// GenerateReport saves the summary to the report directory when one is
// configured and optionally prints it
func (g *Generator) GenerateReport(summary *models.CycleSummary, printToTerminal bool) error {
	if summary == nil {
		return fmt.Errorf("summary is nil")
	}

	if g.dir != "" {
		if err := g.saveReportToDisk(summary); err != nil {
			return fmt.Errorf("failed to save report to disk: %w", err)
		}
	}

	if printToTerminal {
		g.printReportToTerminal(summary)
	}

	return nil
}

// Observe reports a summary and logs, rather than returns, any failure
func (g *Generator) Observe(summary *models.CycleSummary) {
	if err := g.GenerateReport(summary, false); err != nil {
		g.logger.Error("❌ %v", err)
	}
}

// saveReportToDisk saves the summary as JSON to the report directory
func (g *Generator) saveReportToDisk(summary *models.CycleSummary) error {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	timestamp := summary.StartedAt.Format("20060102-150405")
	filename := fmt.Sprintf("radarr-hunt-cycle-%s.json", timestamp)
	if summary.DryRun {
		filename = fmt.Sprintf("radarr-hunt-cycle-dryrun-%s.json", timestamp)
	}

	path := filepath.Join(g.dir, filename)

	// Marshal report to JSON with pretty printing
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	g.logger.Info("📄 Report saved to: %s", path)
	return nil
}

// printReportToTerminal prints the summary in human-readable format
func (g *Generator) printReportToTerminal(summary *models.CycleSummary) {
	g.logger.Info("")
	g.logger.Info("📊 HUNT CYCLE REPORT")
	g.logger.Info("==========================================")
	g.logger.Info("Cycle: %s", summary.ID)
	g.logger.Info("Started: %s", summary.StartedAt.Format("2006-01-02 15:04:05"))
	g.logger.Info("Duration: %s", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	g.logger.Info("Hunt Mode: %s", summary.HuntMode)
	if summary.DryRun {
		g.logger.Info("Run Type: dry-run")
	}
	if summary.QueueSize != nil {
		g.logger.Info("Download Queue: %d", *summary.QueueSize)
	}
	g.logger.Info("")

	if summary.SkipReason != "" {
		g.logger.Info("⏸️  Skipped: %s", summary.SkipReason)
		g.logger.Info("==========================================")
		return
	}

	for _, pass := range summary.Passes {
		g.logger.Info("%s", pass.Category.Title())
		if pass.Skipped {
			g.logger.Info("   Skipped (quota %d)", pass.Quota)
			continue
		}
		g.logger.Info("   Candidates: %d, Selected: %d, Quota: %d", pass.Candidates, pass.Selected, pass.Quota)
		g.logger.Info("   Processed: %d, Failed: %d", pass.Processed, pass.Failed)
		if pass.Unpersisted > 0 {
			g.logger.Warn("   Not recorded: %d", pass.Unpersisted)
		}
		if len(pass.ProcessedIDs) > 0 {
			g.logger.Info("   Movie IDs: %v", pass.ProcessedIDs)
		}
		if pass.Error != "" {
			g.logger.Warn("   Error: %s", pass.Error)
		}
	}

	if summary.TotalProcessed()+summary.TotalUnpersisted() == 0 {
		g.logger.Info("")
		g.logger.Info("ℹ️  Nothing was processed this cycle.")
	}
	if summary.NextResetIn != nil {
		g.logger.Info("State reset in: %s", *summary.NextResetIn)
	}

	g.logger.Info("==========================================")
}
