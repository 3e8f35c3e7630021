package handler

import "net/http"

// NewContactRouter wires the contact API routes behind the shared middleware
// chain. metrics may be nil.
func NewContactRouter(h *Handler, contactHandler *ContactHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/contact", contactHandler.Submit)
	mux.HandleFunc("POST /contact", contactHandler.Submit)
	mux.HandleFunc("OPTIONS /api/contact", h.Preflight)
	mux.HandleFunc("OPTIONS /contact", h.Preflight)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return RequestID(RequestLogger(SecurityHeaders(h.CORS(mux))))
}

// NewRelayRouter wires the mail relay's single route. Anything else is 404.
func NewRelayRouter(relayHandler *RelayHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /internal/send", relayHandler.Send)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.HandleFunc("/", http.NotFound)

	return RequestID(RequestLogger(mux))
}
