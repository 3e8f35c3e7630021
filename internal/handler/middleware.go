package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/contactform/backend/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
// Preflight responses are left with CORS headers only.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// RequestID tags each request with an id, echoes it back, and stores a
// logger carrying it in the request context. A well-formed inbound id is
// kept so traces line up across services. Preflight responses carry CORS
// headers only, so the id is logged but not echoed for OPTIONS.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		if r.Method != http.MethodOptions {
			w.Header().Set(RequestIDHeader, id)
		}

		logger := slog.Default().With("request_id", id)
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
	})
}
