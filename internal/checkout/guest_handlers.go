package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mossline/pos-engine/internal/common"
)

// GuestHandler exposes the unauthenticated scan-to-pay endpoints. Sessions
// are addressed by the opaque token embedded in the QR code; the routes sit
// behind the guest rate limiter.
type GuestHandler struct {
	Svc     *Service
	StoreID string
}

func (h *GuestHandler) load(w http.ResponseWriter, r *http.Request) (Session, bool) {
	if h == nil || h.Svc == nil || h.Svc.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return Session{}, false
	}
	token := chi.URLParam(r, "token")
	sess, err := h.Svc.Sessions.LoadByToken(r.Context(), h.StoreID, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "check not found or expired", nil)
			return Session{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load check", nil)
		return Session{}, false
	}
	return sess, true
}

// Check handles GET /pay/{token}: the open check plus the session state.
func (h *GuestHandler) Check(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.loadCart(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load check", nil)
		return
	}
	summary, err := h.Svc.Totals(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute totals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"session":    sess,
		"lines":      c.Lines,
		"summary":    summary,
		"tipPresets": h.Svc.Tips.Presets,
	}})
}

// SelectLines handles POST /pay/{token}/lines: the guest picks which lines
// to pay for.
func (h *GuestHandler) SelectLines(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload struct {
		Lines []LineRef `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	c, err := h.Svc.loadCart(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load check", nil)
		return
	}
	sess, d := sess.SelectLines(c, payload.Lines)
	if !d.OK {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", d.Reason, nil)
		return
	}
	if err := h.Svc.Sessions.Save(r.Context(), sess); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save session", nil)
		return
	}
	summary, err := h.Svc.Totals(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute totals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"session": sess, "summary": summary}})
}

// SetTip handles POST /pay/{token}/tip.
func (h *GuestHandler) SetTip(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	staff := Handler{Svc: h.Svc, StoreID: h.StoreID}
	sess, ok = staff.applyTip(w, r, sess)
	if !ok {
		return
	}
	if err := h.Svc.Sessions.Save(r.Context(), sess); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save session", nil)
		return
	}
	summary, err := h.Svc.Totals(r.Context(), sess)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute totals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"session": sess, "summary": summary}})
}

// Submit handles POST /pay/{token}/submit.
func (h *GuestHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

// Retry handles POST /pay/{token}/retry after a declined payment.
func (h *GuestHandler) Retry(w http.ResponseWriter, r *http.Request) {
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
