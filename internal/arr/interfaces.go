package arr

import (
	"context"

	"github.com/hnipps/huntarr/pkg/models"
)

// Client defines the interface for the Radarr API client
type Client interface {
	// GetName returns the name of the service
	GetName() string

	// TestConnection verifies the connection to the Radarr instance
	TestConnection(ctx context.Context) error

	// ListMovies returns every movie in the library
	ListMovies(ctx context.Context) ([]models.Movie, error)

	// ListCutoffUnmet returns movies whose file is below the quality cutoff,
	// filtered by the server
	ListCutoffUnmet(ctx context.Context, monitoredOnly bool) ([]models.Movie, error)

	// SubmitCommand queues a command for a single movie and returns its command ID
	SubmitCommand(ctx context.Context, name models.CommandName, movieID int) (int, error)

	// GetCommandStatus returns the raw status string of a command
	GetCommandStatus(ctx context.Context, commandID int) (string, error)

	// GetQueueSize returns the number of items currently downloading
	GetQueueSize(ctx context.Context) (int, error)
}

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ProgressReporter defines the interface for progress reporting
type ProgressReporter interface {
	StartPass(category models.Category, quota, candidates int)
	StartMovie(movie models.Movie, current, total int)
	ReportStep(movieID int, command models.CommandName, commandID int)
	ReportFailure(movie models.Movie, err error)
	FinishPass(stats models.PassStats)
}
