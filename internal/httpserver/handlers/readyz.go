package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz reports the service descriptor readiness. A not-ready descriptor
// answers 503 with the configuration reason.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Descriptor.Ready {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: d.Descriptor.Reason})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
