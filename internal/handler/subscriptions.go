package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/service"
)

// SubscriptionsHandler handles the member-facing subscription endpoints.
type SubscriptionsHandler struct {
	subs *service.SubscriptionService
}

// NewSubscriptionsHandler creates a new SubscriptionsHandler.
func NewSubscriptionsHandler(subs *service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{subs: subs}
}

// List handles GET /api/subscriptions.
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.ListMine(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", subs)
}

// Subscribe handles POST /api/subscriptions.
func (h *SubscriptionsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	sub, err := h.subs.Subscribe(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusCreated, "Subscribed", sub)
}

// Unsubscribe handles DELETE /api/subscriptions/{planId}.
func (h *SubscriptionsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.subs.Unsubscribe(r.Context(), chi.URLParam(r, "planId")); err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Unsubscribed", nil)
}
