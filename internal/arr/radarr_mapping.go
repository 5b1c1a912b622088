package arr

import (
	"time"

	"golift.io/starr/radarr"

	"github.com/hnipps/huntarr/pkg/models"
)

// mapRadarrMovieToModels converts a starr Movie to our models.Movie
func mapRadarrMovieToModels(m *radarr.Movie) models.Movie {
	if m == nil {
		return models.Movie{}
	}

	movie := models.Movie{
		ID:              int(m.ID),
		Title:           m.Title,
		Year:            m.Year,
		Monitored:       m.Monitored,
		HasFile:         m.HasFile,
		PhysicalRelease: optionalTime(m.PhysicalRelease),
		DigitalRelease:  optionalTime(m.DigitalRelease),
		InCinemas:       optionalTime(m.InCinemas),
	}

	// A file below cutoff is only meaningful when the movie has one
	if m.HasFile && m.MovieFile != nil {
		movie.QualityCutoffNotMet = m.MovieFile.QualityCutoffNotMet
	}

	return movie
}

// mapRadarrMoviesToModelsList converts a slice of starr Movies to models.Movie
func mapRadarrMoviesToModelsList(movies []*radarr.Movie) []models.Movie {
	result := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if m == nil {
			continue
		}
		result = append(result, mapRadarrMovieToModels(m))
	}
	return result
}

// optionalTime maps the zero time used by starr for absent dates to nil
func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
