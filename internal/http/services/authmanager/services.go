// Package authmanager contiene los services de la API de tenants: gate por
// service-role key, emisión y canje de tokens y consulta de bans.
package authmanager

import (
	"time"

	"github.com/dropDatabas3/authmanager/internal/cache"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

// Deps contiene las dependencias para crear los services authmanager.
type Deps struct {
	DAL        repository.DataAccessLayer
	Cache      cache.Client
	MappingTTL time.Duration
	Users      UserStores
	Mailer     Mailer
	Now        func() time.Time
}

// Services agrupa todos los services del dominio authmanager.
type Services struct {
	Gate     Gate
	Resolver SchemaResolver
	Tokens   TokensService
	Bans     BansService
}

func NewServices(d Deps) Services {
	resolver := NewSchemaResolver(ResolverDeps{
		Databases: d.DAL.Databases(),
		Mappings:  d.DAL.Mappings(),
		Cache:     d.Cache,
		TTL:       d.MappingTTL,
	})
	return Services{
		Gate:     NewGate(d.DAL.Databases()),
		Resolver: resolver,
		Tokens: NewTokensService(TokensDeps{
			Databases: d.DAL.Databases(),
			Tokens:    d.DAL.Tokens(),
			Resolver:  resolver,
			Users:     d.Users,
			Mailer:    d.Mailer,
			Now:       d.Now,
		}),
		Bans: NewBansService(d.DAL.Bans(), d.Now),
	}
}
