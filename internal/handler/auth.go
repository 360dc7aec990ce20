package handler

import (
	"net/http"

	"github.com/memberbeat/admin/internal/contextkeys"
	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/service"
)

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	OK(w, http.StatusOK, "", resp)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := contextkeys.CallerFrom(r.Context())
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), caller.UserID)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", user)
}
