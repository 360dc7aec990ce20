package handler

import (
	"net/http"

	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/internal/service"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	db      repository.Pinger
	publish *service.PublishService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db repository.Pinger, publish *service.PublishService) *HealthHandler {
	return &HealthHandler{db: db, publish: publish}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status": "ok",
	}

	// Check DB
	if err := h.db.Ping(ctx); err != nil {
		status["database"] = "error"
		status["status"] = "degraded"
	} else {
		status["database"] = "ok"
	}

	// Ledger reachability only; not being the owner is not a health problem.
	if _, err := h.publish.IsOwner(ctx); err != nil {
		status["ledger"] = "error"
		status["status"] = "degraded"
	} else {
		status["ledger"] = "ok"
	}

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, Envelope{Success: code == http.StatusOK, Data: status})
}
