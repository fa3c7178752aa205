// Package controllers es el composition root de controllers HTTP: recibe los
// services ya armados (ver services.New) y se los pasa a cada dominio.
package controllers

import (
	"github.com/dropDatabas3/authmanager/internal/http/controllers/admin"
	"github.com/dropDatabas3/authmanager/internal/http/controllers/authmanager"
	"github.com/dropDatabas3/authmanager/internal/http/controllers/health"
	"github.com/dropDatabas3/authmanager/internal/http/controllers/vault"
	"github.com/dropDatabas3/authmanager/internal/http/services"
)

type Controllers struct {
	AuthManager *authmanager.Controllers
	Vault       *vault.VaultController
	Admin       *admin.Controllers
	Health      *health.HealthController
}

func New(s services.Services, cookie admin.CookieConfig) *Controllers {
	return &Controllers{
		AuthManager: authmanager.NewControllers(s.AuthManager),
		Vault:       vault.NewVaultController(s.Vault),
		Admin:       admin.NewControllers(s.Admin, cookie),
		Health:      health.NewHealthController(s.Health),
	}
}
