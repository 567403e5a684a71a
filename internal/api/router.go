package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystemMetrics)

		r.Route("/areas", func(r chi.Router) {
			r.Get("/", s.handleListAreas)
			r.Get("/{areaID}/entities", s.handleAreaEntities)
		})

		r.Post("/analyze", s.handleAnalyze)
		r.Post("/rename", s.handleRenameBulk)
		r.Post("/entities/{entityID}/rename", s.handleRenameEntity)

		r.Route("/overrides", func(r chi.Router) {
			r.Get("/", s.handleListOverrides)
			r.Delete("/", s.handleClearOverrides)
			r.Post("/reload", s.handleReloadOverrides)
			r.Put("/{kind}/{id}", s.handleSetOverride)
			r.Delete("/{kind}/{id}", s.handleRemoveOverride)
		})

		r.Get("/history", s.handleListHistory)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// componentStatus is one entry of the health response.
type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth reports the server and every registered component.
// Any unhealthy component turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := http.StatusOK
	components := make(map[string]componentStatus, len(names))
	for _, name := range names {
		checker := s.components[name]
		if checker == nil {
			components[name] = componentStatus{Status: "disabled"}
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = componentStatus{Status: "unhealthy", Error: err.Error()}
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = componentStatus{Status: "ok"}
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
