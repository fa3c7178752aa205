// Package router arma el árbol de rutas chi con los middlewares de cada grupo.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dropDatabas3/authmanager/internal/http/controllers"
	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
	"github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
	"github.com/dropDatabas3/authmanager/internal/rate"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Controllers *controllers.Controllers

	Gate       authmanager.Gate
	Sessions   mw.SessionValidator
	CookieName string

	// CORS
	TenantOrigins []string // API de tenants; "*" = cualquiera
	VaultOrigin   string   // único origen del vault

	// Rate limiting (nil = desactivado)
	IssueLimiter  rate.Limiter // por base, en send-*
	VaultLimiter  rate.Limiter // por IP, en vault y login admin
	RateWhitelist []string
	ClientIP      func(*http.Request) string

	Metrics    http.Handler  // nil = sin /metrics
	Instrument mw.Middleware // métricas por ruta; nil = sin instrumentar
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
		chimw.CleanPath,
	)
	if d.Instrument != nil {
		r.Use(d.Instrument)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)
	registerTenantRoutes(r, d)
	registerVaultRoutes(r, d)
	registerAdminRoutes(r, d)
	return r
}

// preflight registra OPTIONS para que el middleware CORS del grupo lo atienda.
func preflight(r chi.Router, paths ...string) {
	noop := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	for _, p := range paths {
		r.Options(p, noop)
	}
}

func tenantCORS(d Deps) mw.Middleware {
	return mw.WithCORS(mw.CORSConfig{Allowed: d.TenantOrigins, Methods: "GET,POST,OPTIONS"})
}
