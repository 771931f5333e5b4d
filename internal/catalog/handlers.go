package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mossline/pos-engine/internal/common"
)

// Handler exposes the register-facing catalog endpoints.
type Handler struct {
	Service *Service
	StoreID string
}

// List handles GET /api/v1/catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	items, err := h.Service.List(r.Context(), h.StoreID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load catalog", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Get handles GET /api/v1/catalog/{itemId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil || h.Service.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	itemID := chi.URLParam(r, "itemId")
	item, err := h.Service.Source.Get(r.Context(), h.StoreID, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load item", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}
