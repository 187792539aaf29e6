package gateway

import (
	"net/http"

	"github.com/flemzord/recall/internal/protocol"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns an http.HandlerFunc for GET /health. It is a
// liveness probe only; provider health lives on /status.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
	}
}

// handleCapabilities returns the static protocol capabilities table.
func (g *Gateway) handleCapabilities() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, protocol.Describe())
	}
}
