package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
)

func registerVaultRoutes(r chi.Router, d Deps) {
	c := d.Controllers.Vault

	// Públicas, sólo para el front del vault.
	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithCORS(mw.CORSConfig{Allowed: []string{d.VaultOrigin}, Methods: "POST,OPTIONS", Credentials: true}),
			mw.WithNoStore(),
		)
		preflight(r, "/vault/check-ip", "/vault/record-attempt")

		r.Group(func(r chi.Router) {
			r.Use(vaultRateLimit(d))
			r.Post("/vault/check-ip", c.CheckIP)
			r.Post("/vault/record-attempt", c.RecordAttempt)
		})
	})

	// Unlock: sólo operadores, sin CORS.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.RequireAdminSession(d.Sessions, d.CookieName))
		r.Post("/vault/unlock-ip", c.UnlockIP)
	})
}

func vaultRateLimit(d Deps) mw.Middleware {
	if d.ClientIP == nil {
		return mw.WithRateLimit(mw.RateLimitConfig{})
	}
	return mw.WithRateLimit(mw.RateLimitConfig{
		Limiter:   d.VaultLimiter,
		KeyFunc:   mw.IPRateKey(d.ClientIP),
		Whitelist: d.RateWhitelist,
	})
}
