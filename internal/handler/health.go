package handler

import (
	"net/http"
	"strings"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports unhealthy while required settings are missing, since every
// submission would fail as misconfigured.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if len(h.missing) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "unhealthy",
			Message: "missing configuration: " + strings.Join(h.missing, ", "),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: h.name,
	})
}
