package repositories

import (
	"context"

	"github.com/flicklist/backend/internal/models"
)

// UserRepository defines the data access contract for user documents and
// their media lists. Append operations must be atomic: a concurrent append of
// the same media id for the same user stores exactly one entry.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	SetUsername(ctx context.Context, email, username string) error
	List(ctx context.Context) ([]models.User, error)

	AppendLiked(ctx context.Context, email string, entry models.LikedEntry) (bool, error)
	RemoveLiked(ctx context.Context, email string, mediaID int64) ([]models.LikedEntry, error)

	AppendShared(ctx context.Context, email string, entry models.SharedEntry) (bool, error)
	RemoveShared(ctx context.Context, email string, mediaID int64) (models.User, error)
}
