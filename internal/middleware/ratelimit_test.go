package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/internal/handler"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, remote, forwarded string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	t.Cleanup(rl.Stop)
	h := rl.Middleware()(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:5678", "").Code)

	rec := serve(h, "10.0.0.1:1234", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var env handler.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestRateLimiterCountsForwardedClientsSeparately(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	t.Cleanup(rl.Stop)
	h := rl.Middleware()(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.9:80", "203.0.113.1, 10.0.0.9").Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.9:80", "203.0.113.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.9:80", "203.0.113.1").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 198.51.100.4 , 192.0.2.7")
	assert.Equal(t, "198.51.100.4", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.9")
	assert.Equal(t, "198.51.100.9", clientIP(req))
}

func TestSweepForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	t.Cleanup(rl.Stop)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("idle")
	now = now.Add(2 * time.Minute)
	rl.allow("active")

	now = now.Add(2 * time.Minute)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "idle")
	assert.Contains(t, rl.visitors, "active")
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
	assert.True(t, rl.allow("still-works"))
}
