package gateway

import (
	"net/http"

	"github.com/flemzord/recall/internal/security"
	"gopkg.in/yaml.v3"
)

// handleGetConfig returns the loaded configuration with secrets redacted.
// The config is round-tripped through YAML so module sections held as raw
// nodes come out as plain maps.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.backend.Config == nil {
			http.Error(w, "config not available", http.StatusServiceUnavailable)
			return
		}

		raw, err := yaml.Marshal(g.backend.Config)
		if err != nil {
			g.logger.Error("config serialization failed", "error", err)
			http.Error(w, "failed to serialize config", http.StatusInternalServerError)
			return
		}

		generic := map[string]any{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			g.logger.Error("config re-parse failed", "error", err)
			http.Error(w, "failed to parse config", http.StatusInternalServerError)
			return
		}

		redactor := g.backend.Redactor
		if redactor == nil {
			redactor = security.NewRedactor()
		}
		redactor.RedactMap(generic)

		writeJSON(w, http.StatusOK, generic)
	}
}
