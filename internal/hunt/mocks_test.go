package hunt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/internal/clock"
	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/internal/state"
	"github.com/hnipps/huntarr/pkg/models"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

type mockLogger struct {
	debugMessages []string
	infoMessages  []string
	warnMessages  []string
	errorMessages []string
}

func (m *mockLogger) Debug(msg string, args ...interface{}) {
	m.debugMessages = append(m.debugMessages, fmt.Sprintf(msg, args...))
}

func (m *mockLogger) Info(msg string, args ...interface{}) {
	m.infoMessages = append(m.infoMessages, fmt.Sprintf(msg, args...))
}

func (m *mockLogger) Warn(msg string, args ...interface{}) {
	m.warnMessages = append(m.warnMessages, fmt.Sprintf(msg, args...))
}

func (m *mockLogger) Error(msg string, args ...interface{}) {
	m.errorMessages = append(m.errorMessages, fmt.Sprintf(msg, args...))
}

// fakeRadarr records every remote call except status polls
type fakeRadarr struct {
	movies      []models.Movie
	cutoff      []models.Movie
	failLists   int
	queueSize   int
	queueErr    error
	refreshFail map[int]bool

	calls  []string
	polls  int
	nextID int
}

func (f *fakeRadarr) GetName() string                          { return "fake" }
func (f *fakeRadarr) TestConnection(ctx context.Context) error { return nil }

func (f *fakeRadarr) ListMovies(ctx context.Context) ([]models.Movie, error) {
	f.calls = append(f.calls, "list")
	if f.failLists > 0 {
		f.failLists--
		return nil, errors.New("connection refused")
	}
	return append([]models.Movie(nil), f.movies...), nil
}

func (f *fakeRadarr) ListCutoffUnmet(ctx context.Context, monitoredOnly bool) ([]models.Movie, error) {
	f.calls = append(f.calls, "cutoff")
	movies := make([]models.Movie, 0, len(f.cutoff))
	for _, m := range f.cutoff {
		m.QualityCutoffNotMet = true
		movies = append(movies, m)
	}
	return movies, nil
}

func (f *fakeRadarr) SubmitCommand(ctx context.Context, name models.CommandName, movieID int) (int, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s:%d", name, movieID))
	if name == models.CommandRefreshMovie && f.refreshFail[movieID] {
		return 0, errors.New("command rejected")
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeRadarr) GetCommandStatus(ctx context.Context, commandID int) (string, error) {
	f.polls++
	return "completed", nil
}

func (f *fakeRadarr) GetQueueSize(ctx context.Context) (int, error) {
	f.calls = append(f.calls, "queue")
	return f.queueSize, f.queueErr
}

// memStore is an in-memory state.Store that records marks and can fail on demand
type memStore struct {
	clock    clock.Clock
	interval time.Duration
	sets     map[models.Category][]int
	touched  map[models.Category]time.Time

	loadErr    error
	markErr    error
	markErrFor map[int]error

	marks []string
}

func newMemStore(clk clock.Clock, interval time.Duration) *memStore {
	s := &memStore{
		clock:    clk,
		interval: interval,
		sets:     map[models.Category][]int{},
		touched:  map[models.Category]time.Time{},
	}
	for _, c := range models.Categories {
		s.touched[c] = clk.Now()
	}
	return s
}

func (s *memStore) Load(category models.Category) (*state.IDSet, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return state.NewIDSet(s.sets[category]...), nil
}

func (s *memStore) Mark(category models.Category, id int) error {
	s.marks = append(s.marks, fmt.Sprintf("%s:%d", category, id))
	if s.markErr != nil {
		return s.markErr
	}
	if err := s.markErrFor[id]; err != nil {
		return err
	}
	s.sets[category] = append(s.sets[category], id)
	s.touched[category] = s.clock.Now()
	return nil
}

func (s *memStore) MaybeReset(category models.Category, now time.Time) (bool, error) {
	if s.interval <= 0 || now.Sub(s.touched[category]) < s.interval {
		return false, nil
	}
	return true, s.Reset(category)
}

func (s *memStore) Reset(category models.Category) error {
	s.sets[category] = nil
	s.touched[category] = s.clock.Now()
	return nil
}

func (s *memStore) Truncate(category models.Category) (bool, error) { return false, nil }

func (s *memStore) LastTouched(category models.Category) (time.Time, error) {
	return s.touched[category], nil
}

func (s *memStore) Close() error { return nil }

type recordingRecorder struct {
	cycles int
	passes []models.PassStats
	queue  []int
	resets []models.Category
}

func (r *recordingRecorder) CycleCompleted(*models.CycleSummary)  { r.cycles++ }
func (r *recordingRecorder) PassCompleted(stats models.PassStats) { r.passes = append(r.passes, stats) }
func (r *recordingRecorder) QueueSize(size int)                   { r.queue = append(r.queue, size) }
func (r *recordingRecorder) StateReset(category models.Category) {
	r.resets = append(r.resets, category)
}

func testConfig() *config.Config {
	return &config.Config{
		HuntMissingMovies:        1,
		HuntUpgradeMovies:        5,
		SleepDuration:            15 * time.Minute,
		ListingRetryDelay:        time.Minute,
		WaitForCommands:          true,
		CommandWaitDelay:         time.Second,
		CommandWaitAttempts:      5,
		CommandSettleDelay:       time.Second,
		MinimumDownloadQueueSize: -1,
		MonitoredOnly:            true,
		RandomSelection:          false,
		SkipFutureReleases:       true,
		HuntMode:                 models.HuntModeBoth,
		UpgradeSource:            "server",
		State: config.StateConfig{
			ResetInterval: 168 * time.Hour,
			MaxEntries:    500,
			TruncateBytes: 10000,
		},
	}
}

type harness struct {
	orch     *Orchestrator
	client   *fakeRadarr
	store    state.Store
	clock    *clock.Fake
	logger   *mockLogger
	recorder *recordingRecorder
}

func newHarness(cfg *config.Config, client *fakeRadarr, store state.Store, clk *clock.Fake) *harness {
	logger := &mockLogger{}
	progress := arr.NewConsoleProgressReporter(logger)
	waiter := arr.NewCommandWaiter(client, clk, cfg.CommandWaitDelay, cfg.CommandWaitAttempts, cfg.CommandSettleDelay, logger)
	remediator := arr.NewRemediator(client, waiter, clk, arr.RemediatorOptions{
		WaitForCommands: cfg.WaitForCommands,
		SettleDelay:     cfg.CommandSettleDelay,
	}, progress, logger)
	source, _ := NewSource(cfg.UpgradeSource, client, cfg.MonitoredOnly)
	recorder := &recordingRecorder{}

	orch := NewOrchestrator(cfg, Deps{
		Client: client,
		Source: source,
		Selector: NewSelector(SelectorOptions{
			MonitoredOnly:      cfg.MonitoredOnly,
			SkipFutureReleases: cfg.SkipFutureReleases,
			RandomSelection:    cfg.RandomSelection,
		}, clk, nil),
		Remediator: remediator,
		Store:      store,
		Clock:      clk,
		Progress:   progress,
		Logger:     logger,
		Recorder:   recorder,
	})

	return &harness{orch: orch, client: client, store: store, clock: clk, logger: logger, recorder: recorder}
}
