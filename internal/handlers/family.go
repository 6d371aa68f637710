package handlers

import (
	"net/http"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/medialists"
	"github.com/flicklist/backend/internal/models"
)

// FamilyHandler serves the shared want-to-watch lists.
type FamilyHandler struct {
	Lists MediaLists
}

type sharedResponse struct {
	Msg   string              `json:"msg"`
	Media []models.SharedList `json:"media"`
}

type removeSharedRequest struct {
	Email   string `json:"email"`
	MediaID int64  `json:"mediaId"`
}

type removeSharedResponse struct {
	Msg         string            `json:"msg"`
	WantToWatch models.SharedList `json:"wantToWatch"`
}

// Add handles POST /api/user/addToFamily.
func (h FamilyHandler) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req addMediaRequest
	if err := decodeBody(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid share payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "invalid request body"})
		return
	}

	status, err := h.Lists.ShareToWatch(ctx, req.Email, req.MediaID, models.MediaType(req.MediaType), req.Username)
	if err != nil {
		respondServiceError(ctx, w, err, "Error adding media for family shared list")
		return
	}

	var msg string
	switch status {
	case medialists.StatusAlreadyShared:
		msg = "Media is already in the shared list!"
	case medialists.StatusUserCreated:
		msg = "Media added and user created successfully!"
	default:
		msg = "Media added successfully!"
	}
	respondJSON(ctx, w, http.StatusOK, statusResponse{Msg: msg, Status: status})
}

// Shared handles GET /api/user/shared/{email}. Every user's list is returned
// regardless of the email in the path.
func (h FamilyHandler) Shared(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	lists, err := h.Lists.GetAllShared(ctx)
	if err != nil {
		respondServiceError(ctx, w, err, "Error fetching media")
		return
	}

	respondJSON(ctx, w, http.StatusOK, sharedResponse{Msg: "Want-to-watch media fetched successfully", Media: lists})
}

// Remove handles PUT /api/user/removeFromWantToWatch.
func (h FamilyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req removeSharedRequest
	if err := decodeBody(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid unshare payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Msg: "invalid request body"})
		return
	}

	list, err := h.Lists.UnshareToWatch(ctx, req.Email, req.MediaID)
	if err != nil {
		respondServiceError(ctx, w, err, "Error removing media")
		return
	}

	respondJSON(ctx, w, http.StatusOK, removeSharedResponse{
		Msg:         "Media removed successfully from wantToWatch list",
		WantToWatch: list,
	})
}
