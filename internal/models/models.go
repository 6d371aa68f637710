package models

import (
	"strings"
	"time"
)

// MediaType identifies which catalog a media id belongs to.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether t is one of the supported catalog types.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// User is the root document holding both media lists for an account.
type User struct {
	ID          string        `json:"id" bson:"_id"`
	Email       string        `json:"email" bson:"email"`
	Username    string        `json:"username,omitempty" bson:"username,omitempty"`
	LikedMedia  []LikedEntry  `json:"likedMedia" bson:"likedMedia"`
	WantToWatch []SharedEntry `json:"wantToWatch" bson:"wantToWatch"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
}

// LikedEntry is one item in a user's personal liked list.
type LikedEntry struct {
	MediaID   int64     `json:"mediaId" bson:"mediaId"`
	MediaType MediaType `json:"mediaType" bson:"mediaType"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"`
}

// SharedEntry is one item in a user's family want-to-watch list.
type SharedEntry struct {
	MediaID   int64     `json:"mediaId" bson:"mediaId"`
	MediaType MediaType `json:"mediaType" bson:"mediaType"`
	MarkedBy  string    `json:"markedBy" bson:"markedBy"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"`
}

// SharedList is the projection of one user's want-to-watch list used by the
// family view.
type SharedList struct {
	Username string        `json:"username"`
	Media    []SharedEntry `json:"media"`
}

// NewUser assembles a user document with empty lists. Every creation path
// goes through here so required fields are filled the same way.
func NewUser(id, email, username string, now time.Time) User {
	return User{
		ID:          id,
		Email:       NormalizeEmail(email),
		Username:    strings.TrimSpace(username),
		LikedMedia:  []LikedEntry{},
		WantToWatch: []SharedEntry{},
		CreatedAt:   now.UTC(),
	}
}

// NormalizeEmail returns the canonical lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasLiked reports whether mediaID is already in the liked list.
func (u User) HasLiked(mediaID int64) bool {
	for _, entry := range u.LikedMedia {
		if entry.MediaID == mediaID {
			return true
		}
	}
	return false
}

// HasShared reports whether mediaID is already in the want-to-watch list.
func (u User) HasShared(mediaID int64) bool {
	for _, entry := range u.WantToWatch {
		if entry.MediaID == mediaID {
			return true
		}
	}
	return false
}
