package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/medialists"
)

type errorResponse struct {
	Msg   string `json:"msg"`
	Error string `json:"error,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondServiceError maps a service error onto a status and body. Storage
// failures use fallback as the message and expose the diagnostic.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	status := statusForError(err)
	body := errorResponse{Msg: err.Error()}

	switch {
	case status >= http.StatusInternalServerError:
		body = errorResponse{Msg: fallback, Error: err.Error()}
	case errors.Is(err, medialists.ErrUserNotFound):
		body.Msg = "User not found"
	case errors.Is(err, medialists.ErrEntryNotFound):
		body.Msg = "Media not found in liked list"
	}

	respondJSON(ctx, w, status, body)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, medialists.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, medialists.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, medialists.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, medialists.ErrEntryNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
