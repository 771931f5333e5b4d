package shipping

import (
	"context"
	"net/http"

	"github.com/mossline/pos-engine/internal/common"
)

// Lister abstracts the method source for the HTTP layer.
type Lister interface {
	List(ctx context.Context, storeID string) ([]Method, error)
}

// Handler serves the shipping method picker shown on ship checkouts.
type Handler struct {
	Methods Lister
	StoreID string
}

// List handles GET /api/v1/shipping/methods.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Methods == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipping not configured", nil)
		return
	}
	methods, err := h.Methods.List(r.Context(), h.StoreID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not load shipping methods", nil)
		return
	}
	if methods == nil {
		methods = []Method{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": methods})
}
