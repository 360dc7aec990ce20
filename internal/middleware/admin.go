package middleware

import (
	"net/http"

	"github.com/memberbeat/admin/internal/contextkeys"
	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/handler"
)

// AdminOnly lets only admins through. It must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := contextkeys.CallerFrom(r.Context())
		if !ok || caller.Role != domain.RoleAdmin {
			handler.Fail(w, http.StatusForbidden, "forbidden: admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
