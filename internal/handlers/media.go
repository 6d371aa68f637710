package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/medialists"
	"github.com/flicklist/backend/internal/models"
)

// MediaHandler serves account creation and the liked list.
type MediaHandler struct {
	Lists MediaLists
}

type createUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type createUserResponse struct {
	Msg  string      `json:"msg"`
	User models.User `json:"user"`
}

type addMediaRequest struct {
	Email     string `json:"email"`
	MediaID   int64  `json:"mediaId"`
	MediaType string `json:"mediaType"`
	Username  string `json:"username,omitempty"`
}

type statusResponse struct {
	Msg    string            `json:"msg"`
	Status medialists.Status `json:"status"`
}

type likedResponse struct {
	Msg   string  `json:"msg"`
	Media [][]any `json:"media"`
}

type removeLikedRequest struct {
	Email   string `json:"email"`
	MovieID int64  `json:"movieId"`
	MediaID int64  `json:"mediaId"`
}

type removeLikedResponse struct {
	Msg   string              `json:"msg"`
	Media []models.LikedEntry `json:"media"`
}

// Create handles POST /api/user/create.
func (h MediaHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid create user payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "invalid request body"})
		return
	}

	user, err := h.Lists.CreateUser(ctx, req.Email, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, medialists.ErrInvalidInput):
			respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "Email and username are required"})
		case errors.Is(err, medialists.ErrConflict):
			// Existing clients expect 400 for a taken email.
			respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "User already exists with this email"})
		default:
			respondServiceError(ctx, w, err, "Error creating user")
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, createUserResponse{Msg: "User created successfully", User: user})
}

// Add handles POST /api/user/add.
func (h MediaHandler) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req addMediaRequest
	if err := decodeBody(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid add media payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "invalid request body"})
		return
	}

	status, err := h.Lists.LikeMedia(ctx, req.Email, req.MediaID, models.MediaType(req.MediaType))
	if err != nil {
		respondServiceError(ctx, w, err, "Error adding movie")
		return
	}

	var msg string
	switch status {
	case medialists.StatusAlreadyLiked:
		msg = "Movie is already in the liked list!"
	case medialists.StatusUserCreated:
		msg = "Movie added and user created successfully!"
	default:
		msg = "Movie added successfully!"
	}
	respondJSON(ctx, w, http.StatusOK, statusResponse{Msg: msg, Status: status})
}

// Liked handles GET /api/user/liked/{email}.
func (h MediaHandler) Liked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	refs, err := h.Lists.GetLiked(ctx, mux.Vars(r)["email"])
	if err != nil {
		if errors.Is(err, medialists.ErrUserNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorResponse{Msg: "User with given email not found"})
			return
		}
		respondServiceError(ctx, w, err, "Error fetching liked media")
		return
	}

	pairs := make([][]any, 0, len(refs))
	for _, ref := range refs {
		pairs = append(pairs, []any{ref.MediaID, ref.MediaType})
	}
	respondJSON(ctx, w, http.StatusOK, likedResponse{Msg: "Liked media fetched successfully", Media: pairs})
}

// Remove handles PUT /api/user/remove. The media id may be sent as movieId
// or mediaId.
func (h MediaHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req removeLikedRequest
	if err := decodeBody(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid remove media payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "invalid request body"})
		return
	}

	mediaID := req.MediaID
	if mediaID == 0 {
		mediaID = req.MovieID
	}

	remaining, err := h.Lists.UnlikeMedia(ctx, req.Email, mediaID)
	if err != nil {
		respondServiceError(ctx, w, err, "Error removing media")
		return
	}

	respondJSON(ctx, w, http.StatusOK, removeLikedResponse{Msg: "Media removed successfully", Media: remaining})
}
