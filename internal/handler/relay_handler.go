package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/contactform/backend/internal/contact"
	"github.com/contactform/backend/internal/delivery"
	"github.com/contactform/backend/internal/logging"
	"github.com/contactform/backend/internal/metrics"
	"github.com/contactform/backend/internal/model"
)

// RelayHandler is the mail relay's send endpoint. Callers are trusted
// services holding the shared secret; the challenge has already been checked
// upstream.
type RelayHandler struct {
	sharedSecret string
	dispatcher   delivery.Dispatcher
}

// NewRelayHandler creates a RelayHandler sending through dispatcher.
func NewRelayHandler(sharedSecret string, dispatcher delivery.Dispatcher) *RelayHandler {
	return &RelayHandler{sharedSecret: sharedSecret, dispatcher: dispatcher}
}

// Send handles POST /internal/send.
func (h *RelayHandler) Send(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get(delivery.RelayAuthHeader)
	if h.sharedSecret == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(h.sharedSecret)) != 1 {
		metrics.RelaySends.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload model.RelayPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sub := contact.Submission{
		Name:    payload.Name,
		Email:   payload.Email,
		Subject: payload.Subject,
		Message: payload.Message,
	}.Normalized()
	if errs := contact.ValidateMessage(sub); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if !h.dispatcher.Configured() {
		logging.FromContext(r.Context()).Error("relay is missing sender or destination address")
		writeError(w, http.StatusInternalServerError, "Missing email configuration")
		return
	}

	err := h.dispatcher.Dispatch(r.Context(), delivery.Message{
		Name:    sub.Name,
		Email:   sub.Email,
		Subject: sub.Subject,
		Body:    sub.Message,
	})
	if err != nil {
		metrics.RelaySends.WithLabelValues("failed").Inc()
		logging.FromContext(r.Context()).Error("relay send failed", "dispatcher", h.dispatcher.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, "Email send failed")
		return
	}

	metrics.RelaySends.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, model.SubmitResponse{OK: true})
}
