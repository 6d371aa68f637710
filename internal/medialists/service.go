package medialists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
)

// Status reports the outcome of an add operation.
type Status string

const (
	StatusAdded         Status = "added"
	StatusAlreadyLiked  Status = "already_liked"
	StatusAlreadyShared Status = "already_shared"
	StatusUserCreated   Status = "user_created"
)

// MediaRef is the (mediaId, mediaType) projection of a list entry.
type MediaRef struct {
	MediaID   int64
	MediaType models.MediaType
}

// Service mutates and queries the liked and want-to-watch lists of users.
// Every call reads from the store; nothing is cached between calls.
type Service struct {
	Users   repositories.UserRepository
	NowFunc func() time.Time
	IDFunc  func() string
}

// NewService constructs a Service over the provided user store.
func NewService(users repositories.UserRepository) *Service {
	return &Service{Users: users}
}

// CreateUser registers a new account with empty lists.
func (s *Service) CreateUser(ctx context.Context, email, username string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.CreateUser")
	defer span.End()

	email = models.NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return models.User{}, invalidInput("email and username are required")
	}

	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		return models.User{}, fmt.Errorf("%w: user already exists with this email", ErrConflict)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, storageError("find user", err)
	}

	user := models.NewUser(s.newID(), email, username, s.now())
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, fmt.Errorf("%w: email or username already registered", ErrConflict)
		}
		return models.User{}, storageError("create user", err)
	}

	logging.FromContext(ctx).Info("user created", "email", email, "username", username)
	return user, nil
}

// LikeMedia adds a media item to the user's liked list, creating the user
// when the email is unknown.
func (s *Service) LikeMedia(ctx context.Context, email string, mediaID int64, mediaType models.MediaType) (Status, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.LikeMedia")
	defer span.End()

	email = models.NormalizeEmail(email)
	if err := validateMedia(email, mediaID, mediaType); err != nil {
		return "", err
	}

	entry := models.LikedEntry{MediaID: mediaID, MediaType: mediaType, AddedAt: s.now()}

	status, err := s.appendLiked(ctx, email, entry)
	if !errors.Is(err, ErrUserNotFound) {
		return status, err
	}

	user := models.NewUser(s.newID(), email, "", entry.AddedAt)
	user.LikedMedia = []models.LikedEntry{entry}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// Another request created the account first.
			return s.appendLiked(ctx, email, entry)
		}
		return "", storageError("create user", err)
	}

	logging.FromContext(ctx).Info("user created from like", "email", email, "mediaId", mediaID)
	return StatusUserCreated, nil
}

func (s *Service) appendLiked(ctx context.Context, email string, entry models.LikedEntry) (Status, error) {
	added, err := s.Users.AppendLiked(ctx, email, entry)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", storageError("append liked media", err)
	}
	if !added {
		return StatusAlreadyLiked, nil
	}
	return StatusAdded, nil
}

// UnlikeMedia removes mediaID from the liked list and returns what remains.
func (s *Service) UnlikeMedia(ctx context.Context, email string, mediaID int64) ([]models.LikedEntry, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.UnlikeMedia")
	defer span.End()

	email = models.NormalizeEmail(email)
	if email == "" || mediaID <= 0 {
		return nil, invalidInput("email and mediaId are required")
	}

	remaining, err := s.Users.RemoveLiked(ctx, email, mediaID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrEntryNotFound):
			return nil, ErrEntryNotFound
		default:
			return nil, storageError("remove liked media", err)
		}
	}
	return remaining, nil
}

// GetLiked returns the user's liked list in storage order.
func (s *Service) GetLiked(ctx context.Context, email string) ([]MediaRef, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.GetLiked")
	defer span.End()

	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, invalidInput("email is required")
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("find user", err)
	}

	refs := make([]MediaRef, 0, len(user.LikedMedia))
	for _, entry := range user.LikedMedia {
		refs = append(refs, MediaRef{MediaID: entry.MediaID, MediaType: entry.MediaType})
	}
	return refs, nil
}

// ShareToWatch adds a media item to the user's want-to-watch list, stamped
// with the user's username. A username must either be stored on the account
// already or be supplied; a supplied username is claimed for accounts that
// have none, and is required to create a new account.
func (s *Service) ShareToWatch(ctx context.Context, email string, mediaID int64, mediaType models.MediaType, username string) (Status, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.ShareToWatch")
	defer span.End()

	email = models.NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if err := validateMedia(email, mediaID, mediaType); err != nil {
		return "", err
	}

	now := s.now()
	for attempt := 0; attempt < 2; attempt++ {
		user, err := s.Users.FindByEmail(ctx, email)
		if err == nil {
			return s.appendShared(ctx, user, mediaID, mediaType, username, now)
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return "", storageError("find user", err)
		}

		if username == "" {
			return "", invalidInput("username is required to share from a new account")
		}

		created := models.NewUser(s.newID(), email, username, now)
		created.WantToWatch = []models.SharedEntry{{
			MediaID:   mediaID,
			MediaType: mediaType,
			MarkedBy:  created.Username,
			AddedAt:   now,
		}}
		err = s.Users.Create(ctx, created)
		if err == nil {
			logging.FromContext(ctx).Info("user created from share", "email", email, "username", username, "mediaId", mediaID)
			return StatusUserCreated, nil
		}
		if !errors.Is(err, repositories.ErrConflict) {
			return "", storageError("create user", err)
		}
		// Either the email was registered concurrently, which the next lookup
		// picks up, or the username belongs to someone else.
	}

	return "", fmt.Errorf("%w: username %q is already taken", ErrConflict, username)
}

func (s *Service) appendShared(ctx context.Context, user models.User, mediaID int64, mediaType models.MediaType, username string, now time.Time) (Status, error) {
	markedBy := user.Username
	if markedBy == "" {
		if username == "" {
			return "", invalidInput("username is required before sharing")
		}
		if err := s.Users.SetUsername(ctx, user.Email, username); err != nil {
			switch {
			case errors.Is(err, repositories.ErrConflict):
				return "", fmt.Errorf("%w: username %q is already taken", ErrConflict, username)
			case errors.Is(err, repositories.ErrNotFound):
				return "", ErrUserNotFound
			default:
				return "", storageError("set username", err)
			}
		}
		markedBy = username
	}

	added, err := s.Users.AppendShared(ctx, user.Email, models.SharedEntry{
		MediaID:   mediaID,
		MediaType: mediaType,
		MarkedBy:  markedBy,
		AddedAt:   now,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", storageError("append want to watch", err)
	}
	if !added {
		return StatusAlreadyShared, nil
	}
	return StatusAdded, nil
}

// UnshareToWatch drops every want-to-watch entry for mediaID. Removing an id
// that is not on the list is not an error.
func (s *Service) UnshareToWatch(ctx context.Context, email string, mediaID int64) (models.SharedList, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.UnshareToWatch")
	defer span.End()

	email = models.NormalizeEmail(email)
	if email == "" || mediaID <= 0 {
		return models.SharedList{}, invalidInput("email and mediaId are required")
	}

	user, err := s.Users.RemoveShared(ctx, email, mediaID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SharedList{}, ErrUserNotFound
		}
		return models.SharedList{}, storageError("remove want to watch", err)
	}

	return models.SharedList{Username: user.Username, Media: nonNilShared(user.WantToWatch)}, nil
}

// GetAllShared returns the want-to-watch list of every user, including users
// whose list is empty.
func (s *Service) GetAllShared(ctx context.Context) ([]models.SharedList, error) {
	ctx, span := logging.StartSpan(ctx, "medialists.GetAllShared")
	defer span.End()

	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}

	lists := make([]models.SharedList, 0, len(users))
	for _, user := range users {
		lists = append(lists, models.SharedList{Username: user.Username, Media: nonNilShared(user.WantToWatch)})
	}
	return lists, nil
}

func validateMedia(email string, mediaID int64, mediaType models.MediaType) error {
	switch {
	case email == "":
		return invalidInput("email is required")
	case mediaID <= 0:
		return invalidInput("mediaId must be a positive integer")
	case !mediaType.Valid():
		return invalidInput(`mediaType must be "movie" or "tv"`)
	}
	return nil
}

func nonNilShared(entries []models.SharedEntry) []models.SharedEntry {
	if entries == nil {
		return []models.SharedEntry{}
	}
	return entries
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.IDFunc != nil {
		return s.IDFunc()
	}
	return uuid.NewString()
}
