package handler

import (
	"net/http"

	"github.com/memberbeat/admin/internal/service"
)

// PublishHandler pushes plans and tokens to the ledger.
type PublishHandler struct {
	publish *service.PublishService
}

// NewPublishHandler creates a new PublishHandler.
func NewPublishHandler(publish *service.PublishService) *PublishHandler {
	return &PublishHandler{publish: publish}
}

// Owner handles GET /api/publish/owner.
func (h *PublishHandler) Owner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.publish.IsOwner(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", map[string]bool{"owner": owner})
}

// Plans handles POST /api/publish/plans.
func (h *PublishHandler) Plans(w http.ResponseWriter, r *http.Request) {
	report, err := h.publish.PublishPlans(r.Context(), nil)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, service.MsgPlansPublished, report)
}

// Tokens handles POST /api/publish/tokens.
func (h *PublishHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	report, err := h.publish.PublishTokens(r.Context(), nil)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, service.MsgTokensPublished, report)
}
