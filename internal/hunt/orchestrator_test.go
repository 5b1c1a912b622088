package hunt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/state"
	"github.com/hnipps/huntarr/pkg/models"
)

func TestOrchestrator_MonitoredMovieIsRemediatedAndMarked(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)

	store, err := state.Open("file", state.Options{
		Dir: t.TempDir(), Clock: clk, ResetInterval: cfg.State.ResetInterval,
		MaxEntries: cfg.State.MaxEntries, TruncateBytes: cfg.State.TruncateBytes,
	})
	require.NoError(t, err)
	defer store.Close()

	client := &fakeRadarr{movies: []models.Movie{
		{ID: 1, HasFile: false, Monitored: true},
		{ID: 2, HasFile: false, Monitored: false},
	}}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"list", "RefreshMovie:1", "MoviesSearch:1", "RescanMovie:1"}, client.calls)
	for _, call := range client.calls {
		assert.False(t, strings.HasSuffix(call, ":2"), "movie 2 is never contacted")
	}

	processed, err := store.Load(models.CategoryMissing)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, processed.IDs())

	require.Len(t, summary.Passes, 1)
	assert.Equal(t, 1, summary.Passes[0].Processed)
	assert.Equal(t, []int{1}, summary.Passes[0].ProcessedIDs)
	assert.Equal(t, 1, summary.TotalProcessed())
}

func TestOrchestrator_RefreshFailureLeavesMovieEligible(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)

	client := &fakeRadarr{
		movies:      []models.Movie{{ID: 7, Monitored: true}},
		refreshFail: map[int]bool{7: true},
	}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passes[0].Failed)
	assert.Equal(t, 0, summary.Passes[0].Processed)
	assert.Empty(t, store.marks)

	// Next cycle the movie is picked again
	client.calls = nil
	_, err = h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "RefreshMovie:7"}, client.calls)
	assert.Empty(t, store.marks)
}

func TestOrchestrator_QuotaLaw(t *testing.T) {
	tests := []struct {
		name      string
		quota     int
		wantMarks int
	}{
		{"zero quota", 0, 0},
		{"negative quota", -3, 0},
		{"quota below candidates", 2, 2},
		{"quota above candidates", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.HuntMode = models.HuntModeMissing
			cfg.HuntMissingMovies = tt.quota
			clk := clock.NewFake(testNow)
			store := newMemStore(clk, cfg.State.ResetInterval)
			client := &fakeRadarr{movies: missingMovies(5)}
			h := newHarness(cfg, client, store, clk)

			summary, err := h.orch.RunCycle(context.Background())
			require.NoError(t, err)

			assert.Len(t, store.marks, tt.wantMarks)
			assert.LessOrEqual(t, summary.Passes[0].Processed, max(tt.quota, 0))
			if tt.quota <= 0 {
				assert.Empty(t, client.calls, "no remote calls for a zero quota")
				assert.True(t, summary.Passes[0].Skipped)
			}
		})
	}
}

func TestOrchestrator_BothModesRunMissingThenUpgrade(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMissingMovies = 1
	cfg.HuntUpgradeMovies = 1
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{
		movies: []models.Movie{{ID: 1, Monitored: true}},
		cutoff: []models.Movie{{ID: 9, HasFile: true, Monitored: true}},
	}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Passes, 2)
	assert.Equal(t, models.CategoryMissing, summary.Passes[0].Category)
	assert.Equal(t, models.CategoryUpgrade, summary.Passes[1].Category)
	assert.Equal(t, []string{"missing:1", "upgrade:9"}, store.marks)
	assert.Len(t, h.recorder.passes, 2)
	assert.Equal(t, 1, h.recorder.cycles)
}

func TestOrchestrator_ClientSourceFiltersUpgrades(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeUpgrade
	cfg.UpgradeSource = "client"
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{movies: []models.Movie{
		{ID: 1, HasFile: true, QualityCutoffNotMet: false, Monitored: true},
		{ID: 2, HasFile: true, QualityCutoffNotMet: true, Monitored: true},
		{ID: 3, HasFile: false, Monitored: true},
	}}
	h := newHarness(cfg, client, store, clk)

	_, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "list", client.calls[0])
	assert.Equal(t, []string{"upgrade:2"}, store.marks)
}

func TestOrchestrator_QueueGate(t *testing.T) {
	tests := []struct {
		name      string
		minimum   int
		size      int
		queueErr  error
		wantSkip  bool
		wantQueue bool
	}{
		{"disabled", -1, 100, nil, false, false},
		{"below minimum", 3, 2, nil, false, true},
		{"at minimum", 3, 3, nil, true, true},
		{"above minimum", 3, 8, nil, true, true},
		{"zero minimum skips always", 0, 0, nil, true, true},
		{"query failure proceeds", 3, 0, errors.New("timeout"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.HuntMode = models.HuntModeMissing
			cfg.MinimumDownloadQueueSize = tt.minimum
			clk := clock.NewFake(testNow)
			store := newMemStore(clk, cfg.State.ResetInterval)
			client := &fakeRadarr{movies: missingMovies(1), queueSize: tt.size, queueErr: tt.queueErr}
			h := newHarness(cfg, client, store, clk)

			summary, err := h.orch.RunCycle(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantQueue, len(client.calls) > 0 && client.calls[0] == "queue")
			if tt.wantSkip {
				assert.NotEmpty(t, summary.SkipReason)
				assert.Empty(t, summary.Passes)
				assert.Empty(t, store.marks)
			} else {
				assert.Empty(t, summary.SkipReason)
				assert.Len(t, store.marks, 1)
			}
			if tt.queueErr != nil {
				assert.NotEmpty(t, h.logger.warnMessages)
			}
		})
	}
}

func TestOrchestrator_UnknownHuntMode(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = "sideways"
	clk := clock.NewFake(testNow)
	client := &fakeRadarr{movies: missingMovies(3)}
	h := newHarness(cfg, client, newMemStore(clk, cfg.State.ResetInterval), clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, client.calls)
	assert.Empty(t, summary.Passes)
	assert.Contains(t, summary.SkipReason, "sideways")
	require.Len(t, h.logger.errorMessages, 1)
	assert.Contains(t, h.logger.errorMessages[0], "HUNT_MODE")
}

func TestOrchestrator_ListingFailureBacksOff(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{movies: missingMovies(1), failLists: 2}
	h := newHarness(cfg, client, store, clk)

	for i := 0; i < 2; i++ {
		summary, err := h.orch.RunCycle(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, summary.Passes[0].Error)
	}
	assert.Equal(t, []time.Duration{time.Minute, 2 * time.Minute}, clk.Sleeps())
	assert.Empty(t, store.marks)

	_, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"missing:1"}, store.marks)
}

func TestOrchestrator_LoadFailureUsesEmptySet(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	store.loadErr = errors.New("permission denied")
	client := &fakeRadarr{movies: missingMovies(1)}
	h := newHarness(cfg, client, store, clk)

	_, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"missing:1"}, store.marks)
	assert.NotEmpty(t, h.logger.errorMessages)
}

func TestOrchestrator_MarkFailureIsReportedSeparately(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	cfg.HuntMissingMovies = 2
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	store.markErr = errors.New("disk full")
	client := &fakeRadarr{movies: missingMovies(3)}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	// unrecorded movies still use up the quota
	pass := summary.Passes[0]
	assert.Equal(t, 0, pass.Processed)
	assert.Equal(t, 2, pass.Unpersisted)
	assert.Empty(t, pass.ProcessedIDs)
	assert.Len(t, store.marks, 2)
	assert.Len(t, h.logger.errorMessages, 2)
	assert.Equal(t, 0, summary.TotalProcessed())
	assert.Equal(t, 2, summary.TotalUnpersisted())
	assert.Contains(t, strings.Join(h.logger.warnMessages, "\n"), "2 remediated movie(s) could not be recorded")
	require.Len(t, h.recorder.passes, 1)
	assert.Equal(t, 2, h.recorder.passes[0].Unpersisted)
}

func TestOrchestrator_PartialMarkFailure(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	cfg.HuntMissingMovies = 2
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	store.markErrFor = map[int]error{1: errors.New("disk full")}
	client := &fakeRadarr{movies: missingMovies(3)}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	pass := summary.Passes[0]
	assert.Equal(t, 1, pass.Processed)
	assert.Equal(t, 1, pass.Unpersisted)
	assert.Equal(t, []int{2}, pass.ProcessedIDs)
	assert.Equal(t, []string{"missing:1", "missing:2"}, store.marks)
}

func TestOrchestrator_SkipsInvalidIDs(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{movies: []models.Movie{
		{ID: 0, Title: "Broken", Monitored: true},
		{ID: 4, Monitored: true},
	}}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"missing:4"}, store.marks)
	assert.Equal(t, 1, summary.Passes[0].Processed)
}

func TestOrchestrator_DryRun(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	cfg.DryRun = true
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{movies: missingMovies(2)}
	h := newHarness(cfg, client, store, clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"list"}, client.calls)
	assert.Empty(t, store.marks)
	assert.Equal(t, 1, summary.Passes[0].Processed)
	assert.True(t, summary.DryRun)
}

func TestOrchestrator_ResetClearsProcessedIDs(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{movies: missingMovies(1)}
	h := newHarness(cfg, client, store, clk)

	_, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"missing:1"}, store.marks)

	// Within the window the processed movie is skipped
	_, err = h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.marks, 1)

	clk.Advance(cfg.State.ResetInterval)
	_, err = h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"missing:1", "missing:1"}, store.marks)
	assert.Contains(t, h.recorder.resets, models.CategoryMissing)
}

func TestOrchestrator_SummaryAndCountdown(t *testing.T) {
	cfg := testConfig()
	cfg.HuntMode = models.HuntModeMissing
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	h := newHarness(cfg, &fakeRadarr{}, store, clk)

	assert.Nil(t, h.orch.LastSummary())

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)

	last := h.orch.LastSummary()
	require.NotNil(t, last)
	assert.Equal(t, summary.ID, last.ID)
	require.NotNil(t, last.NextResetIn)
	assert.Equal(t, "168h 0m", *last.NextResetIn)
}

func TestOrchestrator_CountdownDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.State.ResetInterval = 0
	clk := clock.NewFake(testNow)
	h := newHarness(cfg, &fakeRadarr{}, newMemStore(clk, 0), clk)

	summary, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, summary.NextResetIn)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	cfg := testConfig()
	clk := clock.NewFake(testNow)
	store := newMemStore(clk, cfg.State.ResetInterval)
	client := &fakeRadarr{movies: missingMovies(2)}
	h := newHarness(cfg, client, store, clk)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.marks)
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "0h 0m", formatCountdown(0))
	assert.Equal(t, "1h 30m", formatCountdown(90*time.Minute))
	assert.Equal(t, "167h 59m", formatCountdown(168*time.Hour-time.Minute))
}
