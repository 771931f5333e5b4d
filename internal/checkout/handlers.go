package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/common"
	"github.com/mossline/pos-engine/internal/money"
)

// Handler exposes the staff-facing checkout endpoints.
type Handler struct {
	Svc          *Service
	StoreID      string
	GuestBaseURL string
	Validate     *validator.Validate
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil || h.Svc.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return false
	}
	return true
}

// Create handles POST /api/v1/checkout/sessions. Flow is retail or
// register; guest sessions are minted through CreateGuestLink.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload struct {
		Flow   string `json:"flow"`
		CartID string `json:"cartId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(payload.CartID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required", nil)
		return
	}

	id := uuid.NewString()
	var sess Session
	switch Flow(payload.Flow) {
	case FlowRegister:
		sess = NewRegister(id, h.StoreID, payload.CartID, h.Svc.Tips)
	case FlowRetail, "":
		sess = NewRetail(id, h.StoreID, payload.CartID, h.Svc.Tips)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown flow", nil)
		return
	}
	if err := h.Svc.Sessions.Save(r.Context(), sess); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create session", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sess})
}

// CreateGuestLink handles POST /api/v1/checkout/guest-links: it mints a
// guest scan-to-pay session for an open check and returns the pay URL.
func (h *Handler) CreateGuestLink(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload struct {
		CartID string `json:"cartId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(payload.CartID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required", nil)
		return
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	sess := NewGuest(uuid.NewString(), h.StoreID, payload.CartID, token, h.Svc.Tips)
	if err := h.Svc.Sessions.Save(r.Context(), sess); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create guest session", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"sessionId": sess.ID,
		"token":     token,
		"payUrl":    h.payURL(token),
	}})
}

func (h *Handler) payURL(token string) string {
	base := strings.TrimRight(h.GuestBaseURL, "/")
	return base + "/pay/" + token
}

// QR handles GET /api/v1/checkout/sessions/{sessionId}/qr and renders the
// guest pay URL as a PNG for table tents and printed checks.
func (h *Handler) QR(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	if sess.Flow != FlowGuest || sess.GuestToken == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "session has no guest link", nil)
		return
	}
	png, err := qrcode.Encode(h.payURL(sess.GuestToken), qrcode.Medium, 256)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to render qr", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Get handles GET /api/v1/checkout/sessions/{sessionId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// Totals handles GET /api/v1/checkout/sessions/{sessionId}/totals.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	summary, err := h.Svc.Totals(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute totals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// Advance handles POST /api/v1/checkout/sessions/{sessionId}/advance:
// the retail cart -> details -> confirm progression.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.loadCart(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load cart", nil)
		return
	}

	var d Decision
	switch sess.Step {
	case StepCart:
		sess, d = sess.ToDetails(c)
	case StepDetails:
		sess, d = sess.ToConfirm()
	default:
		d = deny("nothing to advance")
	}
	h.finishTransition(w, r, sess, d)
}

// SetDetails handles POST /api/v1/checkout/sessions/{sessionId}/details.
func (h *Handler) SetDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload struct {
		CustomerID  string   `json:"customerId"`
		Name        string   `json:"name" validate:"max=120"`
		Contact     string   `json:"contact" validate:"omitempty,email"`
		Fulfillment string   `json:"fulfillment" validate:"omitempty,oneof=dine_in takeout delivery ship pickup"`
		MethodID    string   `json:"shippingMethodId"`
		Address     *Address `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid checkout details", map[string]any{"error": err.Error()})
			return
		}
	}

	sess = sess.SetCustomer(payload.Name, payload.Contact)
	sess.CustomerID = strings.TrimSpace(payload.CustomerID)
	if payload.Fulfillment != "" {
		sess = sess.SetFulfillment(cart.OrderType(payload.Fulfillment))
	}
	if payload.MethodID != "" {
		sess = sess.SetShippingMethod(payload.MethodID)
	}
	if payload.Address != nil {
		sess = sess.SetAddress(*payload.Address)
	}
	h.finishTransition(w, r, sess, allow())
}

// SelectDiningOption handles POST .../dining-option for register sessions.
func (h *Handler) SelectDiningOption(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload struct {
		OrderType string `json:"orderType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	sess, d := sess.SelectDiningOption(cart.OrderType(payload.OrderType))
	h.finishTransition(w, r, sess, d)
}

// SelectTable handles POST .../table for register sessions.
func (h *Handler) SelectTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload struct {
		TableID string `json:"tableId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	sess, d := sess.SelectTable(payload.TableID)
	h.finishTransition(w, r, sess, d)
}

// SetTip handles POST .../tip.
func (h *Handler) SetTip(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	sess, ok = h.applyTip(w, r, sess)
	if !ok {
		return
	}
	h.finishTransition(w, r, sess, allow())
}

func (h *Handler) applyTip(w http.ResponseWriter, r *http.Request, sess Session) (Session, bool) {
	var payload struct {
		Percent *int         `json:"percent"`
		Custom  *money.Money `json:"custom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return sess, false
	}
	switch {
	case payload.Custom != nil:
		if !h.Svc.Tips.AllowCustom {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "custom tips are disabled", nil)
			return sess, false
		}
		sess = sess.EnterCustomTip(*payload.Custom)
	case payload.Percent != nil:
		sess = sess.SelectTipPreset(*payload.Percent)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "percent or custom is required", nil)
		return sess, false
	}
	return sess, true
}

// Submit handles POST .../submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload struct {
		PaymentNonce string `json:"paymentNonce"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	res, d, err := h.Svc.Submit(r.Context(), sess, payload.PaymentNonce)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission failed", nil)
		return
	}
	if !d.OK {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", d.Reason, nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// Retry handles POST .../retry after a failed payment.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	sess, d, err := h.Svc.Retry(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "retry failed", nil)
		return
	}
	if !d.OK {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", d.Reason, nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// Cancel handles DELETE /api/v1/checkout/sessions/{sessionId}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	d, err := h.Svc.Cancel(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cancel failed", nil)
		return
	}
	if !d.OK {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", d.Reason, nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cancelled": true}})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Session, bool) {
	if !h.ready(w) {
		return Session{}, false
	}
	sessionID := chi.URLParam(r, "sessionId")
	sess, err := h.Svc.Sessions.Load(r.Context(), h.StoreID, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
			return Session{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load session", nil)
		return Session{}, false
	}
	return sess, true
}

func (h *Handler) finishTransition(w http.ResponseWriter, r *http.Request, sess Session, d Decision) {
	if !d.OK {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", d.Reason, nil)
		return
	}
	if err := h.Svc.Sessions.Save(r.Context(), sess); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save session", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}
