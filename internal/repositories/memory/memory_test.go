package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
)

func newUser(email, username string) models.User {
	return models.NewUser(email+"-id", email, username, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
}

func TestRepositoryCreateConflicts(t *testing.T) {
	ctx := context.Background()
	repo := New()

	require.NoError(t, repo.Create(ctx, newUser("a@x.com", "alice")))
	require.ErrorIs(t, repo.Create(ctx, newUser("a@x.com", "other")), repositories.ErrConflict)
	require.ErrorIs(t, repo.Create(ctx, newUser("b@x.com", "alice")), repositories.ErrConflict)

	// Accounts without a username never collide with each other.
	require.NoError(t, repo.Create(ctx, newUser("c@x.com", "")))
	require.NoError(t, repo.Create(ctx, newUser("d@x.com", "")))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, "a@x.com", users[0].Email)
}

func TestRepositoryLikedLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New()
	require.NoError(t, repo.Create(ctx, newUser("a@x.com", "alice")))

	_, err := repo.AppendLiked(ctx, "missing@x.com", models.LikedEntry{MediaID: 1})
	require.ErrorIs(t, err, repositories.ErrNotFound)

	for _, id := range []int64{1, 2, 3} {
		added, err := repo.AppendLiked(ctx, "a@x.com", models.LikedEntry{MediaID: id, MediaType: models.MediaTypeMovie})
		require.NoError(t, err)
		require.True(t, added)
	}

	added, err := repo.AppendLiked(ctx, "a@x.com", models.LikedEntry{MediaID: 2, MediaType: models.MediaTypeMovie})
	require.NoError(t, err)
	require.False(t, added)

	remaining, err := repo.RemoveLiked(ctx, "a@x.com", 2)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.Equal(t, int64(1), remaining[0].MediaID)
	require.Equal(t, int64(3), remaining[1].MediaID)

	_, err = repo.RemoveLiked(ctx, "a@x.com", 2)
	require.ErrorIs(t, err, repositories.ErrEntryNotFound)

	_, err = repo.RemoveLiked(ctx, "missing@x.com", 1)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestRepositorySharedLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New()
	require.NoError(t, repo.Create(ctx, newUser("a@x.com", "alice")))

	added, err := repo.AppendShared(ctx, "a@x.com", models.SharedEntry{MediaID: 7, MediaType: models.MediaTypeTV, MarkedBy: "alice"})
	require.NoError(t, err)
	require.True(t, added)

	added, err = repo.AppendShared(ctx, "a@x.com", models.SharedEntry{MediaID: 7, MediaType: models.MediaTypeTV, MarkedBy: "alice"})
	require.NoError(t, err)
	require.False(t, added)

	user, err := repo.RemoveShared(ctx, "a@x.com", 7)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Empty(t, user.WantToWatch)

	user, err = repo.RemoveShared(ctx, "a@x.com", 99)
	require.NoError(t, err)
	require.Empty(t, user.WantToWatch)

	_, err = repo.RemoveShared(ctx, "missing@x.com", 7)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestRepositorySetUsername(t *testing.T) {
	ctx := context.Background()
	repo := New()
	require.NoError(t, repo.Create(ctx, newUser("a@x.com", "alice")))
	require.NoError(t, repo.Create(ctx, newUser("b@x.com", "")))

	require.ErrorIs(t, repo.SetUsername(ctx, "b@x.com", "alice"), repositories.ErrConflict)
	require.NoError(t, repo.SetUsername(ctx, "b@x.com", "bob"))
	require.ErrorIs(t, repo.SetUsername(ctx, "b@x.com", "robert"), repositories.ErrConflict)
	require.ErrorIs(t, repo.SetUsername(ctx, "missing@x.com", "carol"), repositories.ErrNotFound)

	user, err := repo.FindByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	require.Equal(t, "bob", user.Username)
}

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := New()
	require.NoError(t, repo.Create(ctx, newUser("a@x.com", "alice")))
	_, err := repo.AppendLiked(ctx, "a@x.com", models.LikedEntry{MediaID: 1})
	require.NoError(t, err)

	user, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	user.LikedMedia[0].MediaID = 99

	stored, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.LikedMedia[0].MediaID)
}

func TestRepositoryConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	repo := New()
	require.NoError(t, repo.Create(ctx, newUser("a@x.com", "alice")))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AppendLiked(ctx, "a@x.com", models.LikedEntry{MediaID: 42, MediaType: models.MediaTypeMovie})
			if err != nil {
				t.Errorf("append: %v", err)
				return
			}
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, added)
	user, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, user.LikedMedia, 1)
}
