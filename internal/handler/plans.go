package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/service"
)

// PlansHandler handles plan and billing plan endpoints.
type PlansHandler struct {
	plans *service.PlanService
}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler(plans *service.PlanService) *PlansHandler {
	return &PlansHandler{plans: plans}
}

// List handles GET /api/plans.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", plans)
}

// Get handles GET /api/plans/{id}.
func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", plan)
}

// Create handles POST /api/plans.
func (h *PlansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	plan, err := h.plans.Create(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusCreated, "", plan)
}

// Update handles PUT /api/plans/{id}.
func (h *PlansHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	plan, err := h.plans.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Plan updated", plan)
}

// Delete handles DELETE /api/plans/{id}.
func (h *PlansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Plan deleted", nil)
}

// AddBillingPlan handles POST /api/plans/{id}/billing-plans.
func (h *PlansHandler) AddBillingPlan(w http.ResponseWriter, r *http.Request) {
	var draft domain.BillingPlanDraft
	if err := DecodeJSON(r, &draft); err != nil {
		Error(w, err)
		return
	}

	bp, err := h.plans.AddBillingPlan(r.Context(), chi.URLParam(r, "id"), &draft)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Billing plan added", bp)
}

// UpdateBillingPlan handles PUT /api/plans/{id}/billing-plans/{billingPlanId}.
func (h *PlansHandler) UpdateBillingPlan(w http.ResponseWriter, r *http.Request) {
	var draft domain.BillingPlanDraft
	if err := DecodeJSON(r, &draft); err != nil {
		Error(w, err)
		return
	}

	bp, err := h.plans.UpdateBillingPlan(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "billingPlanId"), &draft)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Billing plan updated", bp)
}

// RemoveBillingPlan handles DELETE /api/plans/{id}/billing-plans/{billingPlanId}.
func (h *PlansHandler) RemoveBillingPlan(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.RemoveBillingPlan(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "billingPlanId")); err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Billing plan deleted successfully", nil)
}
