package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type banRepo struct {
	pool *pgxpool.Pool
}

func (r *banRepo) Create(ctx context.Context, in repository.CreateUserBanInput) (*repository.AuthUserBan, error) {
	b := &repository.AuthUserBan{
		ID:             uuid.NewString(),
		DatabaseID:     in.DatabaseID,
		ExternalUserID: in.ExternalUserID,
		Reason:         in.Reason,
		Type:           in.Type,
		BannedBy:       in.BannedBy,
		ExpiresAt:      in.ExpiresAt,
		IsActive:       true,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_user_bans (id, database_id, external_user_id, reason, type, banned_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING banned_at`,
		b.ID, b.DatabaseID, b.ExternalUserID, b.Reason, string(b.Type), b.BannedBy, b.ExpiresAt,
	).Scan(&b.BannedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *banRepo) GetActive(ctx context.Context, databaseID, externalUserID string) (*repository.AuthUserBan, error) {
	var (
		b   repository.AuthUserBan
		typ string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, database_id, external_user_id, reason, type, banned_by, banned_at, expires_at, is_active
		FROM auth_user_bans
		WHERE database_id = $1 AND external_user_id = $2 AND is_active
		ORDER BY banned_at DESC LIMIT 1`, databaseID, externalUserID,
	).Scan(&b.ID, &b.DatabaseID, &b.ExternalUserID, &b.Reason, &typ, &b.BannedBy, &b.BannedAt, &b.ExpiresAt, &b.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Type = repository.BanType(typ)
	return &b, nil
}

func (r *banRepo) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE auth_user_bans SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
