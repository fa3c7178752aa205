package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
)

func registerAdminRoutes(r chi.Router, d Deps) {
	c := d.Controllers.Admin

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.With(vaultRateLimit(d)).Post("/session", c.Session.Login)
		r.Delete("/session", c.Session.Logout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdminSession(d.Sessions, d.CookieName))

			r.Get("/databases", c.Databases.List)
			r.Post("/databases", c.Databases.Create)
			r.Post("/databases/{id}/deactivate", c.Databases.Deactivate)
			r.Put("/databases/{id}/schema-mapping", c.Databases.UpsertSchemaMapping)
			r.Post("/databases/{id}/bans", c.Databases.BanUser)
			r.Post("/vault/lock-ip", d.Controllers.Vault.LockIP)
			r.Get("/vault/events", d.Controllers.Vault.ListEvents)
		})
	})
}
