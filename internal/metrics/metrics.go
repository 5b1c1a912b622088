// Package metrics exposes Prometheus collectors for hunt cycles, category
// passes and Radarr commands.
//
// All collectors live on a private registry so tests and the status server
// never touch the global default registry. A nil *Metrics is a valid no-op
// recorder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hnipps/huntarr/pkg/models"
)

const namespace = "huntarr"

// Metrics holds the collectors updated by the hunt loop
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal        *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
	lastCycleTimestamp prometheus.Gauge
	moviesProcessed    *prometheus.CounterVec
	moviesFailed       *prometheus.CounterVec
	moviesUnpersisted  *prometheus.CounterVec
	candidates         *prometheus.GaugeVec
	listingErrors      *prometheus.CounterVec
	queueSize          prometheus.Gauge
	stateResets        *prometheus.CounterVec
	commandsSubmitted  *prometheus.CounterVec
	commandsFinished   *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Hunt cycles completed, by outcome",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a hunt cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900, 1800},
		}),
		lastCycleTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last hunt cycle finished",
		}),
		moviesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movies_processed_total",
			Help:      "Movies processed, by category",
		}, []string{"category"}),
		moviesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movies_failed_total",
			Help:      "Movies whose remediation failed, by category",
		}, []string{"category"}),
		moviesUnpersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movies_unpersisted_total",
			Help:      "Remediated movies whose processed marker could not be saved, by category",
		}, []string{"category"}),
		candidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidates",
			Help:      "Eligible candidates seen by the last pass, by category",
		}, []string{"category"}),
		listingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_errors_total",
			Help:      "Failed candidate listings, by category",
		}, []string{"category"}),
		queueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "download_queue_size",
			Help:      "Last observed Radarr download queue size",
		}),
		stateResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_resets_total",
			Help:      "Processed-ID state resets, by category",
		}, []string{"category"}),
		commandsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_submitted_total",
			Help:      "Radarr commands submitted, by command and result",
		}, []string{"command", "result"}),
		commandsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_finished_total",
			Help:      "Awaited Radarr commands, by command and final status",
		}, []string{"command", "status"}),
	}

	m.registry.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.lastCycleTimestamp,
		m.moviesProcessed,
		m.moviesFailed,
		m.moviesUnpersisted,
		m.candidates,
		m.listingErrors,
		m.queueSize,
		m.stateResets,
		m.commandsSubmitted,
		m.commandsFinished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CycleCompleted records the outcome and duration of a cycle
func (m *Metrics) CycleCompleted(summary *models.CycleSummary) {
	if m == nil || summary == nil {
		return
	}

	outcome := "completed"
	switch {
	case summary.SkipReason != "":
		outcome = "skipped"
	case summary.DryRun:
		outcome = "dry_run"
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()

	if !summary.FinishedAt.IsZero() {
		m.cycleDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
		m.lastCycleTimestamp.Set(float64(summary.FinishedAt.Unix()))
	}
}

// PassCompleted records per-category counts of one pass
func (m *Metrics) PassCompleted(stats models.PassStats) {
	if m == nil || stats.Skipped {
		return
	}

	category := string(stats.Category)
	if stats.Error != "" {
		m.listingErrors.WithLabelValues(category).Inc()
		return
	}
	m.candidates.WithLabelValues(category).Set(float64(stats.Candidates))
	m.moviesProcessed.WithLabelValues(category).Add(float64(stats.Processed))
	m.moviesFailed.WithLabelValues(category).Add(float64(stats.Failed))
	m.moviesUnpersisted.WithLabelValues(category).Add(float64(stats.Unpersisted))
}

// QueueSize records the last observed download queue size
func (m *Metrics) QueueSize(size int) {
	if m == nil {
		return
	}
	m.queueSize.Set(float64(size))
}

// StateReset counts a processed-ID reset
func (m *Metrics) StateReset(category models.Category) {
	if m == nil {
		return
	}
	m.stateResets.WithLabelValues(string(category)).Inc()
}

// CommandSubmitted counts a command submission attempt
func (m *Metrics) CommandSubmitted(name models.CommandName, err error) {
	if m == nil {
		return
	}
	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	m.commandsSubmitted.WithLabelValues(string(name), result).Inc()
}

// CommandFinished counts the final status of an awaited command
func (m *Metrics) CommandFinished(name models.CommandName, status models.CommandStatus) {
	if m == nil {
		return
	}
	m.commandsFinished.WithLabelValues(string(name), status.String()).Inc()
}
