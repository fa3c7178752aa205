// Package services es el composition root de los services HTTP.
//
// Cada dominio vive en su sub-paquete (authmanager, vault, admin, health) con
// su propio Deps/Services; este archivo sólo los junta.
package services

import (
	"github.com/dropDatabas3/authmanager/internal/http/services/admin"
	"github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
	"github.com/dropDatabas3/authmanager/internal/http/services/health"
	"github.com/dropDatabas3/authmanager/internal/http/services/vault"
)

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	AuthManager authmanager.Deps
	Vault       vault.Deps
	Admin       admin.Deps
	Health      health.Deps
}

// Services agrupa todos los sub-services por dominio.
type Services struct {
	AuthManager authmanager.Services
	Vault       vault.Service
	Admin       admin.Services
	Health      health.HealthService
}

// New crea el agregador. El resolver de mappings de authmanager se comparte
// con admin para invalidar la cache al editar o desactivar una base.
func New(d Deps) Services {
	am := authmanager.NewServices(d.AuthManager)
	if d.Admin.Mappings == nil {
		d.Admin.Mappings = am.Resolver
	}
	return Services{
		AuthManager: am,
		Vault:       vault.NewService(d.Vault),
		Admin:       admin.NewServices(d.Admin),
		Health:      health.NewHealthService(d.Health),
	}
}
