package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flicklist/backend/internal/catalog"
	"github.com/flicklist/backend/internal/medialists"
	"github.com/flicklist/backend/internal/models"
)

// DetailsHandler serves list views enriched with catalog metadata.
type DetailsHandler struct {
	Lists   MediaLists
	Catalog CatalogEnricher
}

type detailedGroup struct {
	Username string             `json:"username"`
	Media    []catalog.Detailed `json:"media"`
}

// Liked handles GET /api/user/liked/{email}/details.
func (h DetailsHandler) Liked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Catalog == nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Msg: "Catalog details are not configured"})
		return
	}

	refs, err := h.Lists.GetLiked(ctx, mux.Vars(r)["email"])
	if err != nil {
		respondServiceError(ctx, w, err, "Error fetching liked media")
		return
	}

	items := make([]catalog.Item, 0, len(refs))
	for _, ref := range refs {
		items = append(items, catalog.Item{MediaID: ref.MediaID, MediaType: ref.MediaType})
	}

	detailed, err := h.Catalog.Enrich(ctx, items)
	if err != nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Msg: "Catalog details are unavailable", Error: err.Error()})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"msg":   "Liked media fetched successfully",
		"media": detailed,
	})
}

// Shared handles GET /api/user/shared/{email}/details.
func (h DetailsHandler) Shared(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Catalog == nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Msg: "Catalog details are not configured"})
		return
	}

	lists, err := h.Lists.GetAllShared(ctx)
	if err != nil {
		respondServiceError(ctx, w, err, "Error fetching media")
		return
	}

	groups := make([]detailedGroup, 0, len(lists))
	for _, list := range lists {
		detailed, err := h.Catalog.Enrich(ctx, sharedItems(list.Media))
		if err != nil {
			respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Msg: "Catalog details are unavailable", Error: err.Error()})
			return
		}
		groups = append(groups, detailedGroup{Username: list.Username, Media: detailed})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"msg":   "Want-to-watch media fetched successfully",
		"media": groups,
	})
}

func sharedItems(entries []models.SharedEntry) []catalog.Item {
	items := make([]catalog.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, catalog.Item{MediaID: entry.MediaID, MediaType: entry.MediaType, MarkedBy: entry.MarkedBy})
	}
	return items
}

var _ MediaLists = (*medialists.Service)(nil)
