package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/contactform/backend/internal/contact"
	"github.com/contactform/backend/internal/logging"
	"github.com/contactform/backend/internal/model"
	"github.com/contactform/backend/internal/service"
)

const maxBodyBytes = 64 << 10

// ContactHandler handles contact form submissions.
type ContactHandler struct {
	contactService    service.ContactService
	trustedProxyCount int
}

// NewContactHandler creates a ContactHandler with the given service.
// trustedProxyCount is the number of reverse proxies appending to
// X-Forwarded-For in front of this server.
func NewContactHandler(contactService service.ContactService, trustedProxyCount int) *ContactHandler {
	return &ContactHandler{contactService: contactService, trustedProxyCount: trustedProxyCount}
}

// Submit handles POST /api/contact.
// The body must be JSON; everything past parsing is decided by the service.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		writeKind(w, contact.KindMalformedRequest)
		return
	}

	var sub contact.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&sub); err != nil {
		// Well-formed JSON of the wrong shape is a schema problem, not a
		// transport one.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeKind(w, contact.KindSchemaInvalid)
			return
		}
		writeKind(w, contact.KindMalformedRequest)
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeKind(w, contact.KindMalformedRequest)
		return
	}

	if err := h.contactService.Submit(r.Context(), sub, clientIP(r, h.trustedProxyCount)); err != nil {
		kind := contact.KindOf(err)
		if kind == contact.KindUnknown {
			logging.FromContext(r.Context()).Error("unclassified submission failure", "error", err)
			kind = contact.KindServerMisconfigured
		}
		writeKind(w, kind)
		return
	}

	writeJSON(w, http.StatusOK, model.SubmitResponse{OK: true})
}

func writeKind(w http.ResponseWriter, kind contact.Kind) {
	writeError(w, kind.Status(), kind.Message())
}

// clientIP returns the caller address for challenge verification.
// CF-Connecting-IP is set by Cloudflare; otherwise the rightmost untrusted
// X-Forwarded-For entry is used, then the socket peer.
func clientIP(r *http.Request, trustedProxyCount int) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		// The rightmost entry added by our infrastructure is at
		// index len(parts) - trustedProxyCount.
		idx := len(parts) - trustedProxyCount
		if idx >= 0 && idx < len(parts) {
			return strings.TrimSpace(parts[idx])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
