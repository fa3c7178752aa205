package repository

import (
	"context"
	"strings"
	"time"
)

// ConnectedDatabase es un tenant: la base externa de una aplicación cliente.
// ServiceRoleKey y ConnectionURL viajan en claro sólo en memoria; el store
// los persiste cifrados.
type ConnectedDatabase struct {
	ID             string
	Name           string // nombre visible (branding de mails)
	AppName        string
	ConnectionURL  string
	ServiceRoleKey string
	UserTable      string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultUserTable tabla de usuarios cuando el alta no indica una.
const DefaultUserTable = "users"

// UserTableOrDefault normaliza el nombre de tabla del alta.
func UserTableOrDefault(t string) string {
	if t = strings.TrimSpace(t); t == "" {
		return DefaultUserTable
	}
	return t
}

// CreateConnectedDatabaseInput datos de alta de un tenant.
// ServiceRoleKeyHash es el SHA-256 hex de ServiceRoleKey; se usa para el lookup del gate.
type CreateConnectedDatabaseInput struct {
	Name               string
	AppName            string
	ConnectionURL      string
	ServiceRoleKey     string
	ServiceRoleKeyHash string
	UserTable          string
}

// ConnectedDatabaseRepository persiste tenants.
type ConnectedDatabaseRepository interface {
	Create(ctx context.Context, in CreateConnectedDatabaseInput) (*ConnectedDatabase, error)

	// GetByID retorna ErrNotFound si no existe (activo o no).
	GetByID(ctx context.Context, id string) (*ConnectedDatabase, error)

	// FindActiveByCredentialHash busca la única base activa con ese hash.
	// ErrNotFound si no hay ninguna, ErrAmbiguousCredential si hay más de una.
	FindActiveByCredentialHash(ctx context.Context, keyHash string) (*ConnectedDatabase, error)

	List(ctx context.Context, activeOnly bool) ([]ConnectedDatabase, error)

	// Deactivate apaga el tenant sin borrar historial. ErrNotFound si no existe.
	Deactivate(ctx context.Context, id string) error
}
