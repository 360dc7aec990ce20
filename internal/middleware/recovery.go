package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/memberbeat/admin/internal/handler"
)

// Recovery turns a panicking handler into a 500 envelope. http.ErrAbortHandler
// is re-raised so net/http can drop the connection as intended.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[ERROR] panic in %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			handler.Fail(w, http.StatusInternalServerError, "Server Error")
		}()
		next.ServeHTTP(w, r)
	})
}
