package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Get("/capabilities", g.handleCapabilities())
	if g.backend.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.backend.Metrics.Handler())
	}
	r.Post("/api/knowledge", g.handleAddKnowledge())
	r.Post("/api/search", g.handleSearch())

	// Per-client rate limited.
	r.Group(func(r chi.Router) {
		r.Use(g.rateLimit)
		r.Post("/mcp", g.handleEnvelope())
		r.Get("/ws", g.handleWebSocket)
		if g.backend.Agent != nil {
			r.Post("/api/chat", g.handleChat())
		}
	})

	if g.backend.MCP != nil {
		r.Handle("/mcp/stream", g.backend.MCP)
	}

	// Admin endpoints, auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger))
			r.Get("/status", g.handleStatus())
			r.Delete("/api/users/{id}/memory", g.handleClearMemory())
			r.Get("/api/config", g.handleGetConfig())
		})
	}

	return r
}

func (g *Gateway) rateLimit(next http.Handler) http.Handler {
	if g.limiter == nil {
		return next
	}
	return g.limiter.Middleware(next)
}
