// Package admin contiene los services de operadores: sesión y alta/gestión
// de bases conectadas.
package admin

import (
	"time"

	"github.com/dropDatabas3/authmanager/internal/audit"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/security/adminsession"
)

type Deps struct {
	DAL       repository.DataAccessLayer
	Operators []Operator
	Sessions  *adminsession.Manager
	Audit     *audit.Recorder
	Mappings  MappingInvalidator
	Pools     PoolEvicter
	Now       func() time.Time
}

type Services struct {
	Session   SessionService
	Databases DatabasesService
}

func NewServices(d Deps) Services {
	return Services{
		Session: NewSessionService(d.Operators, d.Sessions, d.Audit),
		Databases: NewDatabasesService(DatabasesDeps{
			DAL:      d.DAL,
			Mappings: d.Mappings,
			Pools:    d.Pools,
			Audit:    d.Audit,
			Now:      d.Now,
		}),
	}
}
