package memory

import (
	"context"
	"sync"

	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
)

// Repository is an in-memory user store for tests and local development.
// All mutations happen under a single lock, so check-and-append is atomic.
type Repository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	order []string
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{users: make(map[string]*models.User)}
}

// Create stores a new user document.
func (r *Repository) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Email]; exists {
		return repositories.ErrConflict
	}
	if user.Username != "" && r.usernameTakenLocked(user.Username) {
		return repositories.ErrConflict
	}

	stored := clone(user)
	r.users[user.Email] = &stored
	r.order = append(r.order, user.Email)
	return nil
}

// FindByEmail returns a copy of the stored user.
func (r *Repository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[email]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return clone(*user), nil
}

// SetUsername assigns a username to an account that has none.
func (r *Repository) SetUsername(_ context.Context, email, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return repositories.ErrNotFound
	}
	if user.Username != "" || r.usernameTakenLocked(username) {
		return repositories.ErrConflict
	}
	user.Username = username
	return nil
}

// List returns every user in insertion order.
func (r *Repository) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.order))
	for _, email := range r.order {
		users = append(users, clone(*r.users[email]))
	}
	return users, nil
}

// AppendLiked adds entry unless its media id is already liked.
func (r *Repository) AppendLiked(_ context.Context, email string, entry models.LikedEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if user.HasLiked(entry.MediaID) {
		return false, nil
	}
	user.LikedMedia = append(user.LikedMedia, entry)
	return true, nil
}

// RemoveLiked drops the entry for mediaID and returns the remaining list.
func (r *Repository) RemoveLiked(_ context.Context, email string, mediaID int64) ([]models.LikedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	idx := -1
	for i, entry := range user.LikedMedia {
		if entry.MediaID == mediaID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, repositories.ErrEntryNotFound
	}

	user.LikedMedia = append(user.LikedMedia[:idx], user.LikedMedia[idx+1:]...)
	return append([]models.LikedEntry{}, user.LikedMedia...), nil
}

// AppendShared adds entry unless its media id is already in the list.
func (r *Repository) AppendShared(_ context.Context, email string, entry models.SharedEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if user.HasShared(entry.MediaID) {
		return false, nil
	}
	user.WantToWatch = append(user.WantToWatch, entry)
	return true, nil
}

// RemoveShared filters out every entry for mediaID.
func (r *Repository) RemoveShared(_ context.Context, email string, mediaID int64) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}

	kept := user.WantToWatch[:0]
	for _, entry := range user.WantToWatch {
		if entry.MediaID != mediaID {
			kept = append(kept, entry)
		}
	}
	user.WantToWatch = kept
	return clone(*user), nil
}

func (r *Repository) usernameTakenLocked(username string) bool {
	for _, user := range r.users {
		if user.Username == username {
			return true
		}
	}
	return false
}

func clone(user models.User) models.User {
	user.LikedMedia = append([]models.LikedEntry{}, user.LikedMedia...)
	user.WantToWatch = append([]models.SharedEntry{}, user.WantToWatch...)
	return user
}

var _ repositories.UserRepository = (*Repository)(nil)
