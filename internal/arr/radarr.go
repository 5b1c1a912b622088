package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"golift.io/starr/radarr"

	"github.com/hnipps/huntarr/internal/config"
	"github.com/hnipps/huntarr/pkg/models"
)

// ErrNoCommandID is returned when Radarr accepts a command without returning its ID
var ErrNoCommandID = errors.New("command response did not include an id")

// RadarrClient implements the Client interface for Radarr API
type RadarrClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     Logger
}

// NewRadarrClient creates a new Radarr client. A positive requestDelay spaces
// requests at least that far apart.
func NewRadarrClient(cfg *config.RadarrConfig, timeout, requestDelay time.Duration, logger Logger) Client {
	var limiter *rate.Limiter
	if requestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(requestDelay), 1)
	}

	return &RadarrClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// GetName returns the service name
func (c *RadarrClient) GetName() string {
	return "radarr"
}

// TestConnection verifies the connection to Radarr
func (c *RadarrClient) TestConnection(ctx context.Context) error {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/api/v3/system/status", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Radarr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Radarr returned status %d", resp.StatusCode)
	}

	c.logger.Info("✅ Successfully connected to Radarr")
	return nil
}

// ListMovies returns all movies from Radarr
func (c *RadarrClient) ListMovies(ctx context.Context) ([]models.Movie, error) {
	movies, err := c.fetchMovies(ctx, "/api/v3/movie")
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched %d movies from Radarr", len(movies))
	return movies, nil
}

// ListCutoffUnmet asks Radarr for movies below their quality cutoff. Every
// returned movie is flagged as cutoff-unmet since the server did the filtering.
func (c *RadarrClient) ListCutoffUnmet(ctx context.Context, monitoredOnly bool) ([]models.Movie, error) {
	path := "/api/v3/movie?qualityCutoffNotMet=true"
	if monitoredOnly {
		path += "&monitored=true"
	}

	movies, err := c.fetchMovies(ctx, path)
	if err != nil {
		return nil, err
	}

	for i := range movies {
		movies[i].QualityCutoffNotMet = true
	}

	c.logger.Debug("Fetched %d cutoff-unmet movies from Radarr", len(movies))
	return movies, nil
}

// SubmitCommand posts a command for one movie and returns the command ID
func (c *RadarrClient) SubmitCommand(ctx context.Context, name models.CommandName, movieID int) (int, error) {
	command := radarr.CommandRequest{
		Name:     string(name),
		MovieIDs: []int64{int64(movieID)},
	}

	jsonData, err := json.Marshal(command)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s command: %w", name, err)
	}

	resp, err := c.makeRequest(ctx, http.MethodPost, "/api/v3/command", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to submit %s for movie %d: %w", name, movieID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to submit %s for movie %d, status: %d", name, movieID, resp.StatusCode)
	}

	var response radarr.CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode %s response: %w", name, err)
	}

	if response.ID <= 0 {
		return 0, fmt.Errorf("%s for movie %d: %w", name, movieID, ErrNoCommandID)
	}

	c.logger.Debug("Submitted %s for movie %d (command ID: %d)", name, movieID, response.ID)
	return int(response.ID), nil
}

// GetCommandStatus returns the status string reported for a command
func (c *RadarrClient) GetCommandStatus(ctx context.Context, commandID int) (string, error) {
	path := fmt.Sprintf("/api/v3/command/%d", commandID)
	resp, err := c.makeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch command %d: %w", commandID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("command %d not found", commandID)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch command %d, status: %d", commandID, resp.StatusCode)
	}

	var response radarr.CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode command %d response: %w", commandID, err)
	}

	return response.Status, nil
}

// GetQueueSize returns the number of downloading queue records
func (c *RadarrClient) GetQueueSize(ctx context.Context) (int, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/api/v3/queue?status=downloading", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch queue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to fetch queue, status: %d", resp.StatusCode)
	}

	var queue radarr.Queue
	if err := json.NewDecoder(resp.Body).Decode(&queue); err != nil {
		return 0, fmt.Errorf("failed to decode queue response: %w", err)
	}

	return int(queue.TotalRecords), nil
}

func (c *RadarrClient) fetchMovies(ctx context.Context, path string) ([]models.Movie, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movies: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch movies, status: %d", resp.StatusCode)
	}

	var movies []*radarr.Movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		return nil, fmt.Errorf("failed to decode movies response: %w", err)
	}

	return mapRadarrMoviesToModelsList(movies), nil
}

// makeRequest makes an HTTP request to the Radarr API
func (c *RadarrClient) makeRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing interrupted: %w", err)
		}
	}

	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add API key header
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Making %s request to %s", method, url)

	return c.httpClient.Do(req)
}
