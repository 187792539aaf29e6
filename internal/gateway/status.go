package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/recall/internal/protocol"
	"github.com/flemzord/recall/internal/provider"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime    int64                 `json:"uptime_seconds"`
	Metrics   *MetricsSnapshot      `json:"metrics,omitempty"`
	Stats     *protocol.StatsResult `json:"stats,omitempty"`
	Providers []provider.Status     `json:"providers"`
	Clients   int                   `json:"tracked_clients"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime:    int64(time.Since(g.startedAt) / time.Second),
			Providers: []provider.Status{},
		}

		if g.backend.Metrics != nil {
			snap := g.backend.Metrics.Snapshot()
			resp.Metrics = &snap
		}
		if res, err := g.backend.Dispatcher.Call(r.Context(), protocol.MethodGetStats, json.RawMessage(nil)); err == nil {
			if stats, ok := res.(protocol.StatsResult); ok {
				resp.Stats = &stats
			}
		}
		if g.backend.Chain != nil {
			resp.Providers = g.backend.Chain.HealthReport()
		}
		if g.limiter != nil {
			resp.Clients = g.limiter.Clients()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
