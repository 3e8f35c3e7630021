package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/contactform/backend/internal/model"
)

// Handler carries the cross-cutting pieces shared by every route: the CORS
// allow-list and the configuration gaps reported by Health.
type Handler struct {
	name           string
	allowedOrigins map[string]struct{}
	missing        []string
}

// New creates a Handler. missing lists unset required settings.
func New(name string, allowedOrigins, missing []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{name: name, allowedOrigins: allowed, missing: missing}
}

// CORS echoes Access-Control-Allow-Origin for allow-listed origins only.
// Other origins get no CORS headers at all, so browsers refuse to expose the
// response.
func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := h.allowedOrigins[origin]; ok && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// Preflight answers OPTIONS with an empty 204; CORS adds the headers.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// writeError writes the {ok:false,error} body used by every failure.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.SubmitResponse{OK: false, Error: msg})
}
