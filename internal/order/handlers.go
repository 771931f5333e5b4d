package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mossline/pos-engine/internal/common"
)

// Handler serves the staff-facing order endpoints.
type Handler struct {
	Repo    *Repo
	StoreID string
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	orders, err := h.Repo.List(r.Context(), h.StoreID, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		response = append(response, map[string]any{
			"id":            o.ID,
			"flow":          o.Flow,
			"status":        o.Status,
			"customerName":  o.CustomerName,
			"subtotal":      o.Pricing.Subtotal,
			"discount":      o.Pricing.Discount,
			"tax":           o.Pricing.Tax,
			"shipping":      o.Pricing.Shipping,
			"tip":           o.Pricing.Tip,
			"total":         o.Pricing.Total,
			"currency":      o.Currency,
			"receiptNumber": o.ReceiptNumber,
			"createdAt":     o.CreatedAt,
		})
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(response)))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:    page,
			PerPage: perPage,
		},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	orderID := chi.URLParam(r, "orderId")
	o, err := h.Repo.Get(r.Context(), h.StoreID, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// UpdateStatus moves an order between capture and fulfillment states.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	switch body.Status {
	case StatusFulfilled, StatusRefunded:
	default:
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "unsupported status transition", nil)
		return
	}
	orderID := chi.URLParam(r, "orderId")
	if err := h.Repo.UpdateStatus(r.Context(), h.StoreID, orderID, body.Status); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": body.Status}})
}
