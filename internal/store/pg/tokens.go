package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type tokenRepo struct {
	pool *pgxpool.Pool
}

func (r *tokenRepo) Create(ctx context.Context, in repository.CreateAuthTokenInput) (*repository.AuthToken, error) {
	t := &repository.AuthToken{
		ID:             uuid.NewString(),
		DatabaseID:     in.DatabaseID,
		ExternalUserID: in.ExternalUserID,
		Email:          in.Email,
		TokenHash:      in.TokenHash,
		Type:           in.Type,
		ExpiresAt:      in.ExpiresAt,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_tokens (id, database_id, external_user_id, email, token_hash, type, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.DatabaseID, t.ExternalUserID, t.Email, t.TokenHash, string(t.Type), t.ExpiresAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return t, nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.AuthToken, error) {
	var (
		t   repository.AuthToken
		typ string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, database_id, external_user_id, email, token_hash, type, expires_at, used_at, created_at
		FROM auth_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.ID, &t.DatabaseID, &t.ExternalUserID, &t.Email, &t.TokenHash, &typ, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Type = repository.TokenType(typ)
	return &t, nil
}

// MarkUsed es el canje atómico: sólo una transacción concurrente gana.
func (r *tokenRepo) MarkUsed(ctx context.Context, in repository.MarkTokenUsedInput) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auth_tokens SET used_at = $2
		WHERE id = $1 AND used_at IS NULL AND database_id = $3 AND expires_at >= $2`,
		in.ID, in.Now, in.DatabaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrTokenAlreadyUsed
	}
	return nil
}
