package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mossline/pos-engine/internal/common"
	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/pricerule"
)

// LineResolver builds a cart line at catalog prices. Implemented by the
// catalog service; clients never send prices.
type LineResolver interface {
	Resolve(ctx context.Context, storeID, itemID, variationID string, modifierIDs []string, quantity int, weight *float64) (LineItem, error)
}

// RuleSource loads the store's pricing rules in evaluation order.
type RuleSource interface {
	List(ctx context.Context, storeID string) ([]pricerule.Rule, error)
}

// Handler wires the cart store to HTTP for the register UI.
type Handler struct {
	Store    *Store
	Resolver LineResolver
	Rules    RuleSource
	StoreID  string
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return false
	}
	return true
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload struct {
		OrderType string `json:"orderType"`
		TableID   string `json:"tableId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	c := New(h.Store.TaxBps)
	if payload.OrderType != "" {
		c = c.WithOrderType(OrderType(payload.OrderType))
	}
	c.TableID = strings.TrimSpace(payload.TableID)

	cartID := uuid.NewString()
	if err := h.Store.Save(r.Context(), h.StoreID, cartID, c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create cart", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.view(cartID, c)})
}

// Get handles GET /api/v1/carts/{cartId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID := chi.URLParam(r, "cartId")
	c, err := h.Store.Load(r.Context(), h.StoreID, cartID)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(cartID, c)})
}

// AddItem handles POST /api/v1/carts/{cartId}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if h.Resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog resolver not configured", nil)
		return
	}
	var payload struct {
		ItemID      string   `json:"itemId"`
		VariationID string   `json:"variationId"`
		ModifierIDs []string `json:"modifierIds"`
		Quantity    int      `json:"quantity"`
		Weight      *float64 `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(payload.ItemID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "itemId is required", nil)
		return
	}

	cartID := chi.URLParam(r, "cartId")
	c, err := h.Store.Load(r.Context(), h.StoreID, cartID)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}

	line, err := h.Resolver.Resolve(r.Context(), h.StoreID, payload.ItemID, payload.VariationID, payload.ModifierIDs, payload.Quantity, payload.Weight)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "UNPROCESSABLE", "item could not be resolved", nil)
		return
	}
	line = h.applyRules(r.Context(), line)

	c = c.AddItem(line)
	if err := h.Store.Save(r.Context(), h.StoreID, cartID, c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(cartID, c)})
}

// applyRules evaluates pricing rules against the resolved base price.
// First match wins; an unmatched line keeps its catalog price.
func (h *Handler) applyRules(ctx context.Context, line LineItem) LineItem {
	if h.Rules == nil {
		return line
	}
	rules, err := h.Rules.List(ctx, h.StoreID)
	if err != nil || len(rules) == 0 {
		return line
	}
	res := pricerule.Evaluate(line.UnitPrice, line.ItemID, line.CategoryID, rules, h.now())
	line.UnitPrice = res.Price
	line.AppliedRuleID = res.AppliedRuleID
	return line
}

// UpdateItem handles PATCH /api/v1/carts/{cartId}/items/{itemId}. A zero
// or negative quantity removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload struct {
		VariationID    string       `json:"variationId"`
		Quantity       *int         `json:"quantity"`
		Weight         *float64     `json:"weight"`
		Discount       *money.Money `json:"discount"`
		PriceOverride  *money.Money `json:"priceOverride"`
		OverrideReason string       `json:"overrideReason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	cartID := chi.URLParam(r, "cartId")
	itemID := chi.URLParam(r, "itemId")
	c, err := h.Store.Load(r.Context(), h.StoreID, cartID)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	if _, ok := c.FindLine(itemID, payload.VariationID); !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "line not found", nil)
		return
	}

	if payload.Quantity != nil {
		c = c.UpdateQuantity(itemID, payload.VariationID, *payload.Quantity)
	}
	if payload.Weight != nil {
		c = c.SetWeight(itemID, payload.VariationID, *payload.Weight)
	}
	if payload.Discount != nil {
		c = c.ApplyLineDiscount(itemID, payload.VariationID, *payload.Discount)
	}
	if payload.PriceOverride != nil {
		c = c.OverridePrice(itemID, payload.VariationID, *payload.PriceOverride, payload.OverrideReason)
	}

	if err := h.Store.Save(r.Context(), h.StoreID, cartID, c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(cartID, c)})
}

// RemoveItem handles DELETE /api/v1/carts/{cartId}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID := chi.URLParam(r, "cartId")
	itemID := chi.URLParam(r, "itemId")
	variationID := r.URL.Query().Get("variationId")

	c, err := h.Store.Load(r.Context(), h.StoreID, cartID)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	c = c.RemoveItem(itemID, variationID)
	if err := h.Store.Save(r.Context(), h.StoreID, cartID, c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(cartID, c)})
}

// Clear handles DELETE /api/v1/carts/{cartId}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID := chi.URLParam(r, "cartId")
	if err := h.Store.Delete(r.Context(), h.StoreID, cartID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to clear cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cleared": true}})
}

// SetOrderType handles PATCH /api/v1/carts/{cartId}.
func (h *Handler) SetOrderType(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload struct {
		OrderType string `json:"orderType"`
		TableID   string `json:"tableId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	cartID := chi.URLParam(r, "cartId")
	c, err := h.Store.Load(r.Context(), h.StoreID, cartID)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	if payload.OrderType != "" {
		c = c.WithOrderType(OrderType(payload.OrderType))
	}
	if payload.TableID != "" {
		c.TableID = strings.TrimSpace(payload.TableID)
	}
	if err := h.Store.Save(r.Context(), h.StoreID, cartID, c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(cartID, c)})
}

func (h *Handler) view(cartID string, c Cart) map[string]any {
	return map[string]any{
		"id":        cartID,
		"cart":      c,
		"itemCount": c.ItemCount(),
		"subtotal":  c.Subtotal(),
	}
}

func (h *Handler) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load cart", nil)
}
