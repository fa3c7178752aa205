package authmanager

import (
	"context"
	"time"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/infra/tenantsql"
	"github.com/dropDatabas3/authmanager/internal/infra/userdb"
)

// UserStore lee y escribe la tabla de usuarios de un tenant.
type UserStore interface {
	GetUserByID(ctx context.Context, table string, m repository.AuthSchemaMapping, externalID string) (*userdb.User, error)
	UpdateUserField(ctx context.Context, table string, m repository.AuthSchemaMapping, externalID, column string, value any) (int64, error)
}

// UserStores entrega el UserStore de cada base.
type UserStores interface {
	ForDatabase(ctx context.Context, databaseID string) (UserStore, error)
}

// PoolUserStores arma clientes userdb sobre los pools del tenantsql.Manager.
type PoolUserStores struct {
	Pools   *tenantsql.Manager
	Timeout time.Duration
}

func (p PoolUserStores) ForDatabase(ctx context.Context, databaseID string) (UserStore, error) {
	db, err := p.Pools.DB(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	return userdb.New(db, p.Timeout), nil
}
