package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type mappingRepo struct {
	pool *pgxpool.Pool
}

func (r *mappingRepo) Get(ctx context.Context, databaseID string) (*repository.AuthSchemaMapping, error) {
	if _, err := uuid.Parse(databaseID); err != nil {
		return nil, repository.ErrNotFound
	}
	var m repository.AuthSchemaMapping
	err := r.pool.QueryRow(ctx, `
		SELECT database_id, id_column, email_column, name_column, username_column,
		       role_column, email_verified_column, updated_at
		FROM auth_schema_mappings WHERE database_id = $1`, databaseID,
	).Scan(&m.DatabaseID, &m.IDColumn, &m.EmailColumn, &m.NameColumn, &m.UsernameColumn,
		&m.RoleColumn, &m.EmailVerifiedColumn, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepo) Upsert(ctx context.Context, m repository.AuthSchemaMapping) (*repository.AuthSchemaMapping, error) {
	if _, err := uuid.Parse(m.DatabaseID); err != nil {
		return nil, repository.ErrNotFound
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_schema_mappings
			(database_id, id_column, email_column, name_column, username_column, role_column, email_verified_column)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (database_id) DO UPDATE SET
			id_column = EXCLUDED.id_column,
			email_column = EXCLUDED.email_column,
			name_column = EXCLUDED.name_column,
			username_column = EXCLUDED.username_column,
			role_column = EXCLUDED.role_column,
			email_verified_column = EXCLUDED.email_verified_column,
			updated_at = NOW()
		RETURNING updated_at`,
		m.DatabaseID, m.IDColumn, m.EmailColumn, m.NameColumn, m.UsernameColumn, m.RoleColumn, m.EmailVerifiedColumn,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
