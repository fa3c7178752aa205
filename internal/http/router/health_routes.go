package router

import "github.com/go-chi/chi/v5"

// /readyz y /metrics son públicos.
func registerHealthRoutes(r chi.Router, d Deps) {
	r.Group(func(r chi.Router) {
		r.Use(tenantCORS(d))
		preflight(r, "/readyz", "/metrics")

		r.Get("/readyz", d.Controllers.Health.Readyz)
		if d.Metrics != nil {
			r.Method("GET", "/metrics", d.Metrics)
		}
	})
}
