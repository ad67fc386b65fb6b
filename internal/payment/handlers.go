package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"k8s.io/klog/v2"
)

// maxWebhookBytes bounds the size of a webhook body.
const maxWebhookBytes = 1 << 16

// Handler serves the payment HTTP API.
//
// confirm-payment and claim-powerups return the powerups to the caller without granting them
// to any game session: they are for clients that keep their own powerups. Game sessions claim
// through the WebSocket instead, and a purchase claimed here can't be claimed there again.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/packages", h.packages)
	r.Post("/create-payment-intent", h.createIntent)
	r.Post("/confirm-payment", h.confirm)
	r.Post("/webhook", h.webhook)
	r.Get("/pending-powerups/{email}", h.pending)
	r.Post("/claim-powerups", h.claim)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("Failed to write response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the service errors to status codes.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUnknownPackage), errors.Is(err, ErrPaymentIncomplete):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrAlreadyClaimed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrPaymentsDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		klog.Errorf("%s: %v", fallback, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fallback})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) packages(w http.ResponseWriter, r *http.Request) {
	byID := make(map[string]Package, len(Packages))
	for _, p := range Packages {
		byID[p.ID] = p
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": byID})
}

func (h *Handler) createIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageID     string `json:"packageId"`
		CustomerEmail string `json:"customerEmail"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.svc.CreateIntent(r.Context(), req.PackageID, req.CustomerEmail)
	if err != nil {
		writeError(w, err, "Payment processing failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PaymentIntentID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "paymentIntentId required"})
		return
	}
	resp, err := h.svc.Confirm(r.Context(), req.PaymentIntentID)
	if err != nil {
		writeError(w, err, "Payment confirmation failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}
	err = h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, ErrPaymentsDisabled) {
		writeError(w, err, "")
		return
	}
	if err != nil {
		klog.Warningf("Webhook rejected: %v", err)
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	grants, err := h.svc.Pending(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err, "Failed to list pending powerups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": grants})
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	powerups, ok, err := h.svc.Claim(r.Context(), req.Email)
	if err != nil {
		writeError(w, err, "Failed to claim powerups")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"powerups": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"powerups": powerups})
}
