package hunt

import (
	"context"
	"fmt"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/pkg/models"
)

// Source fetches the candidate movies of a category
type Source interface {
	Fetch(ctx context.Context, category models.Category) ([]models.Movie, error)
	Name() string
}

// NewSource returns the source named by UPGRADE_SOURCE
func NewSource(kind string, client arr.Client, monitoredOnly bool) (Source, error) {
	switch kind {
	case "", "server":
		return &ServerSource{client: client, monitoredOnly: monitoredOnly}, nil
	case "client":
		return &ClientSource{client: client}, nil
	default:
		return nil, fmt.Errorf("unknown upgrade source %q", kind)
	}
}

// ServerSource lets Radarr filter cutoff-unmet movies
type ServerSource struct {
	client        arr.Client
	monitoredOnly bool
}

// Name returns "server"
func (s *ServerSource) Name() string { return "server" }

// Fetch lists all movies for Missing and the server-filtered list for Upgrade
func (s *ServerSource) Fetch(ctx context.Context, category models.Category) ([]models.Movie, error) {
	if category == models.CategoryUpgrade {
		return s.client.ListCutoffUnmet(ctx, s.monitoredOnly)
	}
	return s.client.ListMovies(ctx)
}

// ClientSource filters the full movie list locally
type ClientSource struct {
	client arr.Client
}

// Name returns "client"
func (s *ClientSource) Name() string { return "client" }

// Fetch lists all movies; cutoff flags come from each movie's file
func (s *ClientSource) Fetch(ctx context.Context, category models.Category) ([]models.Movie, error) {
	return s.client.ListMovies(ctx)
}
