package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/memberbeat/admin/internal/contextkeys"
	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/handler"
	"github.com/memberbeat/admin/internal/service"
)

// Auth creates a JWT authentication middleware.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				handler.Fail(w, http.StatusUnauthorized, "no token provided")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				handler.Fail(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := authSvc.VerifyToken(parts[1])
			if err != nil {
				handler.Fail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores the authenticated user in ctx.
func WithClaims(ctx context.Context, claims *domain.JWTClaims) context.Context {
	return contextkeys.WithCaller(ctx, contextkeys.Caller{
		UserID: claims.Sub,
		Email:  claims.Email,
		Role:   claims.Role,
	})
}
