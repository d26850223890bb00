package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethpandaops/topicnav/internal/version"
)

// HealthResponse represents the health check response.
//
//nolint:tagliatelle // superior snake-case yo.
type HealthResponse struct {
	Status         string       `json:"status"`
	Version        version.Info `json:"version"`
	ActiveSessions int          `json:"active_sessions"`
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// Health returns an HTTP handler for health check endpoint.
func Health(sessions SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response := HealthResponse{
			Status:         "healthy",
			Version:        version.Get(),
			ActiveSessions: sessions.Len(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)

			return
		}
	}
}
