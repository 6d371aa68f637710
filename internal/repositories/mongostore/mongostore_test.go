package mongostore

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
)

// newTestRepository connects to the server named by FLICKLIST_TEST_MONGO_URI
// and returns a repository over a throwaway database.
func newTestRepository(t *testing.T) *UserRepository {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv("FLICKLIST_TEST_MONGO_URI"))
	if uri == "" {
		t.Skip("FLICKLIST_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)

	database := client.Database("flicklist_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = database.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	repo := NewUserRepository(database)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func testUser(email, username string) models.User {
	return models.NewUser(uuid.NewString(), email, username, time.Now())
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("alice@example.com", "alice")))
	require.ErrorIs(t, repo.Create(ctx, testUser("alice@example.com", "other")), repositories.ErrConflict)
	require.ErrorIs(t, repo.Create(ctx, testUser("else@example.com", "alice")), repositories.ErrConflict)
	require.NoError(t, repo.Create(ctx, testUser("anon1@example.com", "")))
	require.NoError(t, repo.Create(ctx, testUser("anon2@example.com", "")))

	user, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Empty(t, user.LikedMedia)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.SetUsername(ctx, "anon1@example.com", "anon"))
	require.ErrorIs(t, repo.SetUsername(ctx, "anon2@example.com", "anon"), repositories.ErrConflict)
	require.ErrorIs(t, repo.SetUsername(ctx, "alice@example.com", "alicia"), repositories.ErrConflict)
}

func TestUserRepositoryLikedMedia(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testUser("alice@example.com", "alice")))

	for _, id := range []int64{10, 20, 30} {
		added, err := repo.AppendLiked(ctx, "alice@example.com", models.LikedEntry{MediaID: id, MediaType: models.MediaTypeMovie, AddedAt: time.Now()})
		require.NoError(t, err)
		require.True(t, added)
	}

	added, err := repo.AppendLiked(ctx, "alice@example.com", models.LikedEntry{MediaID: 20, MediaType: models.MediaTypeMovie})
	require.NoError(t, err)
	require.False(t, added)

	_, err = repo.AppendLiked(ctx, "missing@example.com", models.LikedEntry{MediaID: 1})
	require.ErrorIs(t, err, repositories.ErrNotFound)

	remaining, err := repo.RemoveLiked(ctx, "alice@example.com", 20)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.Equal(t, int64(10), remaining[0].MediaID)
	require.Equal(t, int64(30), remaining[1].MediaID)

	_, err = repo.RemoveLiked(ctx, "alice@example.com", 20)
	require.ErrorIs(t, err, repositories.ErrEntryNotFound)
	_, err = repo.RemoveLiked(ctx, "missing@example.com", 20)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUserRepositorySharedMedia(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testUser("alice@example.com", "alice")))
	require.NoError(t, repo.Create(ctx, testUser("bob@example.com", "bob")))

	added, err := repo.AppendShared(ctx, "alice@example.com", models.SharedEntry{MediaID: 7, MediaType: models.MediaTypeTV, MarkedBy: "alice"})
	require.NoError(t, err)
	require.True(t, added)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Len(t, users[0].WantToWatch, 1)
	require.Empty(t, users[1].WantToWatch)

	user, err := repo.RemoveShared(ctx, "alice@example.com", 7)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Empty(t, user.WantToWatch)

	_, err = repo.RemoveShared(ctx, "missing@example.com", 7)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUserRepositoryConcurrentAppend(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testUser("alice@example.com", "alice")))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AppendLiked(ctx, "alice@example.com", models.LikedEntry{MediaID: 42, MediaType: models.MediaTypeMovie}); err != nil {
				t.Errorf("append liked: %v", err)
			}
		}()
	}
	wg.Wait()

	user, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, user.LikedMedia, 1)
}
