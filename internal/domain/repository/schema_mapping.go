package repository

import (
	"context"
	"time"
)

// AuthSchemaMapping traduce los campos lógicos de usuario a columnas reales
// de la tabla del tenant. Sólo IDColumn y EmailColumn son obligatorias; una
// columna vacía significa "no mapeada".
type AuthSchemaMapping struct {
	DatabaseID          string
	IDColumn            string
	EmailColumn         string
	NameColumn          string
	UsernameColumn      string
	RoleColumn          string
	EmailVerifiedColumn string
	UpdatedAt           time.Time
}

// HasEmailVerified indica si hay una columna para marcar el email como verificado.
func (m *AuthSchemaMapping) HasEmailVerified() bool {
	return m != nil && m.EmailVerifiedColumn != ""
}

// SchemaMappingRepository guarda a lo sumo un mapping por base.
type SchemaMappingRepository interface {
	// Get retorna ErrNotFound si la base no tiene mapping.
	Get(ctx context.Context, databaseID string) (*AuthSchemaMapping, error)
	Upsert(ctx context.Context, m AuthSchemaMapping) (*AuthSchemaMapping, error)
}
