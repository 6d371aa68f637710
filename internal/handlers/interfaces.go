package handlers

import (
	"context"

	"github.com/flicklist/backend/internal/catalog"
	"github.com/flicklist/backend/internal/medialists"
	"github.com/flicklist/backend/internal/models"
)

// MediaLists captures the list operations exposed over HTTP.
type MediaLists interface {
	CreateUser(ctx context.Context, email, username string) (models.User, error)
	LikeMedia(ctx context.Context, email string, mediaID int64, mediaType models.MediaType) (medialists.Status, error)
	UnlikeMedia(ctx context.Context, email string, mediaID int64) ([]models.LikedEntry, error)
	GetLiked(ctx context.Context, email string) ([]medialists.MediaRef, error)
	ShareToWatch(ctx context.Context, email string, mediaID int64, mediaType models.MediaType, username string) (medialists.Status, error)
	UnshareToWatch(ctx context.Context, email string, mediaID int64) (models.SharedList, error)
	GetAllShared(ctx context.Context) ([]models.SharedList, error)
}

// CatalogEnricher attaches catalog metadata to list entries.
type CatalogEnricher interface {
	Enrich(ctx context.Context, items []catalog.Item) ([]catalog.Detailed, error)
}
