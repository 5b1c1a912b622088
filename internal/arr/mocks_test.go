package arr

import (
	"context"
	"fmt"

	"github.com/hnipps/huntarr/pkg/models"
)

type mockLogger struct {
	debugMessages []string
	infoMessages  []string
	warnMessages  []string
	errorMessages []string
}

func (m *mockLogger) Debug(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	m.debugMessages = append(m.debugMessages, msg)
}

func (m *mockLogger) Info(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	m.infoMessages = append(m.infoMessages, msg)
}

func (m *mockLogger) Warn(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	m.warnMessages = append(m.warnMessages, msg)
}

func (m *mockLogger) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	m.errorMessages = append(m.errorMessages, msg)
}

type mockProgressReporter struct {
	moviesStarted []int
	steps         []models.CommandName
	failures      []error
	passes        []models.PassStats
}

func (m *mockProgressReporter) StartPass(category models.Category, quota, candidates int) {}

func (m *mockProgressReporter) StartMovie(movie models.Movie, current, total int) {
	m.moviesStarted = append(m.moviesStarted, movie.ID)
}

func (m *mockProgressReporter) ReportStep(movieID int, command models.CommandName, commandID int) {
	m.steps = append(m.steps, command)
}

func (m *mockProgressReporter) ReportFailure(movie models.Movie, err error) {
	m.failures = append(m.failures, err)
}

func (m *mockProgressReporter) FinishPass(stats models.PassStats) {
	m.passes = append(m.passes, stats)
}

// mockClient scripts command submission and status polling
type mockClient struct {
	submitErr map[models.CommandName]error
	statuses  []string
	statusErr error

	submitted []models.CommandName
	polls     int
	nextID    int
}

func (m *mockClient) GetName() string                          { return "mock" }
func (m *mockClient) TestConnection(ctx context.Context) error { return nil }
func (m *mockClient) ListMovies(ctx context.Context) ([]models.Movie, error) {
	return nil, nil
}
func (m *mockClient) ListCutoffUnmet(ctx context.Context, monitoredOnly bool) ([]models.Movie, error) {
	return nil, nil
}
func (m *mockClient) GetQueueSize(ctx context.Context) (int, error) { return 0, nil }

func (m *mockClient) SubmitCommand(ctx context.Context, name models.CommandName, movieID int) (int, error) {
	m.submitted = append(m.submitted, name)
	if err := m.submitErr[name]; err != nil {
		return 0, err
	}
	m.nextID++
	return m.nextID, nil
}

func (m *mockClient) GetCommandStatus(ctx context.Context, commandID int) (string, error) {
	m.polls++
	if m.statusErr != nil {
		return "", m.statusErr
	}
	if len(m.statuses) == 0 {
		return "started", nil
	}
	status := m.statuses[0]
	if len(m.statuses) > 1 {
		m.statuses = m.statuses[1:]
	}
	return status, nil
}

type mockObserver struct {
	submitted []models.CommandName
	finished  []models.CommandStatus
}

func (m *mockObserver) CommandSubmitted(name models.CommandName, err error) {
	m.submitted = append(m.submitted, name)
}

func (m *mockObserver) CommandFinished(name models.CommandName, status models.CommandStatus) {
	m.finished = append(m.finished, status)
}
