package catalog

import (
	"context"
	"errors"

	"github.com/flicklist/backend/internal/models"
)

var (
	// ErrProviderUnavailable indicates no catalog provider is configured.
	ErrProviderUnavailable = errors.New("catalog provider unavailable")
	// ErrNotFound indicates the catalog has no record for the requested media.
	ErrNotFound = errors.New("catalog entry not found")
)

// Metadata is the display information attached to a list entry.
type Metadata struct {
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	PosterPath  string  `json:"posterPath,omitempty"`
	PosterURL   string  `json:"posterUrl,omitempty"`
	VoteAverage float64 `json:"voteAverage,omitempty"`
}

// Provider resolves metadata for a single media item.
type Provider interface {
	Lookup(ctx context.Context, mediaType models.MediaType, mediaID int64) (Metadata, error)
}
