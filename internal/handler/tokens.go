package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/service"
)

// TokensHandler handles accepted-token endpoints.
type TokensHandler struct {
	tokens *service.TokenService
}

// NewTokensHandler creates a new TokensHandler.
func NewTokensHandler(tokens *service.TokenService) *TokensHandler {
	return &TokensHandler{tokens: tokens}
}

// List handles GET /api/tokens.
func (h *TokensHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.List(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", tokens)
}

// Get handles GET /api/tokens/{id}.
func (h *TokensHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "", token)
}

// Create handles POST /api/tokens.
func (h *TokensHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	token, err := h.tokens.Create(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusCreated, "", token)
}

// Update handles PUT /api/tokens/{id}.
func (h *TokensHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	token, err := h.tokens.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Token updated", token)
}

// Delete handles DELETE /api/tokens/{id}.
func (h *TokensHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	OK(w, http.StatusOK, "Token deleted", nil)
}
