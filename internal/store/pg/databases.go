package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type databaseRepo struct {
	s *Store
}

const selectDatabase = `
	SELECT id, name, app_name, connection_url_enc, service_role_key_enc,
	       user_table, is_active, created_at, updated_at
	FROM connected_databases`

func (r *databaseRepo) scan(row pgx.Row) (*repository.ConnectedDatabase, error) {
	var (
		d              repository.ConnectedDatabase
		urlEnc, keyEnc string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.AppName, &urlEnc, &keyEnc,
		&d.UserTable, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if urlEnc != "" {
		if d.ConnectionURL, err = r.s.cipher.Decrypt(urlEnc); err != nil {
			return nil, fmt.Errorf("decrypt connection url %s: %w", d.ID, err)
		}
	}
	if d.ServiceRoleKey, err = r.s.cipher.Decrypt(keyEnc); err != nil {
		return nil, fmt.Errorf("decrypt service role key %s: %w", d.ID, err)
	}
	return &d, nil
}

func (r *databaseRepo) Create(ctx context.Context, in repository.CreateConnectedDatabaseInput) (*repository.ConnectedDatabase, error) {
	keyEnc, err := r.s.cipher.Encrypt(in.ServiceRoleKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt service role key: %w", err)
	}
	var urlEnc string
	if in.ConnectionURL != "" {
		if urlEnc, err = r.s.cipher.Encrypt(in.ConnectionURL); err != nil {
			return nil, fmt.Errorf("encrypt connection url: %w", err)
		}
	}

	row := r.s.pool.QueryRow(ctx, `
		INSERT INTO connected_databases
			(id, name, app_name, connection_url_enc, service_role_key_enc, service_role_key_hash, user_table)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, app_name, connection_url_enc, service_role_key_enc,
		          user_table, is_active, created_at, updated_at`,
		uuid.NewString(), in.Name, in.AppName, urlEnc, keyEnc, in.ServiceRoleKeyHash, repository.UserTableOrDefault(in.UserTable),
	)
	d, err := r.scan(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return d, nil
}

func (r *databaseRepo) GetByID(ctx context.Context, id string) (*repository.ConnectedDatabase, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	d, err := r.scan(r.s.pool.QueryRow(ctx, selectDatabase+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return d, err
}

func (r *databaseRepo) FindActiveByCredentialHash(ctx context.Context, keyHash string) (*repository.ConnectedDatabase, error) {
	// LIMIT 2: alcanza para distinguir "única" de "ambigua"
	rows, err := r.s.pool.Query(ctx,
		selectDatabase+` WHERE service_role_key_hash = $1 AND is_active LIMIT 2`, keyHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*repository.ConnectedDatabase
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, repository.ErrAmbiguousCredential
	}
}

func (r *databaseRepo) List(ctx context.Context, activeOnly bool) ([]repository.ConnectedDatabase, error) {
	q := selectDatabase
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY created_at`
	rows, err := r.s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ConnectedDatabase
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *databaseRepo) Deactivate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE connected_databases SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
