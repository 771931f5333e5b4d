package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mossline/pos-engine/internal/common"
	"github.com/mossline/pos-engine/internal/order"
)

// OrderSource loads the order backing a receipt when the cached PDF has
// expired.
type OrderSource interface {
	Get(ctx context.Context, storeID, orderID string) (order.Order, error)
}

// Handler serves rendered receipt PDFs.
type Handler struct {
	Receipts  *Store
	Orders    OrderSource
	StoreName string
	StoreID   string
}

// Download handles GET /api/v1/orders/{orderId}/receipt. The worker renders
// receipts ahead of time; if the cached copy has expired the PDF is rendered
// inline from the stored order.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Receipts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receipt store not configured", nil)
		return
	}
	orderID := chi.URLParam(r, "orderId")
	pdf, err := h.Receipts.Load(r.Context(), h.StoreID, orderID)
	if errors.Is(err, ErrNotFound) {
		pdf, err = h.rerender(r.Context(), orderID)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "receipt not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "load receipt", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt-"+orderID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) rerender(ctx context.Context, orderID string) ([]byte, error) {
	if h.Orders == nil {
		return nil, ErrNotFound
	}
	o, err := h.Orders.Get(ctx, h.StoreID, orderID)
	if err != nil {
		return nil, err
	}
	pdf, err := Render(h.StoreName, o)
	if err != nil {
		return nil, err
	}
	if err := h.Receipts.Save(ctx, h.StoreID, orderID, pdf); err != nil {
		return nil, err
	}
	return pdf, nil
}
