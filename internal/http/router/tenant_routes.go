package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
)

// Rutas que consumen los tenants con su service-role key.
func registerTenantRoutes(r chi.Router, d Deps) {
	c := d.Controllers.AuthManager

	r.Group(func(r chi.Router) {
		r.Use(tenantCORS(d), mw.WithNoStore())
		preflight(r, "/check-ban", "/send-verification", "/send-magic-link", "/verify-email", "/verify-magic-link")

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireServiceRole(d.Gate))

			r.Get("/check-ban", c.Bans.CheckBan)
			r.Post("/verify-email", c.Tokens.VerifyEmail)
			r.Post("/verify-magic-link", c.Tokens.VerifyMagicLink)

			r.Group(func(r chi.Router) {
				r.Use(mw.WithRateLimit(mw.RateLimitConfig{
					Limiter:   d.IssueLimiter,
					KeyFunc:   mw.DatabaseRateKey,
					Whitelist: d.RateWhitelist,
				}))
				r.Post("/send-verification", c.Tokens.SendVerification)
				r.Post("/send-magic-link", c.Tokens.SendMagicLink)
			})
		})
	})
}
