package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type vaultRepo struct {
	pool *pgxpool.Pool
}

const lockColumns = `ip_address, is_locked, reason, failed_attempts, locked_at,
	unlocked_at, unlocked_by, last_attempt_at, updated_at`

func scanLock(row pgx.Row) (*repository.IPLock, error) {
	var l repository.IPLock
	err := row.Scan(&l.IPAddress, &l.IsLocked, &l.Reason, &l.FailedAttempts, &l.LockedAt,
		&l.UnlockedAt, &l.UnlockedBy, &l.LastAttemptAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *vaultRepo) GetLock(ctx context.Context, ip string) (*repository.IPLock, error) {
	return scanLock(r.pool.QueryRow(ctx, `SELECT `+lockColumns+` FROM vault_ip_locks WHERE ip_address = $1`, ip))
}

func (r *vaultRepo) RecordFailure(ctx context.Context, ip string, now time.Time) (*repository.IPLock, error) {
	return scanLock(r.pool.QueryRow(ctx, `
		INSERT INTO vault_ip_locks (ip_address, failed_attempts, last_attempt_at, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (ip_address) DO UPDATE SET
			failed_attempts = vault_ip_locks.failed_attempts + 1,
			last_attempt_at = EXCLUDED.last_attempt_at,
			updated_at = EXCLUDED.updated_at
		RETURNING `+lockColumns, ip, now))
}

func (r *vaultRepo) ResetAttempts(ctx context.Context, ip string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE vault_ip_locks SET failed_attempts = 0, updated_at = NOW() WHERE ip_address = $1`, ip)
	return err
}

func (r *vaultRepo) Lock(ctx context.Context, in repository.LockIPInput) (*repository.IPLock, error) {
	return scanLock(r.pool.QueryRow(ctx, `
		INSERT INTO vault_ip_locks (ip_address, is_locked, reason, locked_at, updated_at)
		VALUES ($1, TRUE, $2, $3, $3)
		ON CONFLICT (ip_address) DO UPDATE SET
			is_locked = TRUE,
			reason = EXCLUDED.reason,
			locked_at = EXCLUDED.locked_at,
			unlocked_at = NULL,
			unlocked_by = '',
			updated_at = EXCLUDED.updated_at
		RETURNING `+lockColumns, in.IPAddress, in.Reason, in.Now))
}

func (r *vaultRepo) Unlock(ctx context.Context, in repository.UnlockIPInput) (*repository.IPLock, error) {
	return scanLock(r.pool.QueryRow(ctx, `
		UPDATE vault_ip_locks SET
			is_locked = FALSE,
			failed_attempts = 0,
			unlocked_at = $2,
			unlocked_by = $3,
			updated_at = $2
		WHERE ip_address = $1
		RETURNING `+lockColumns, in.IPAddress, in.Now, in.By))
}

func (r *vaultRepo) AppendEvent(ctx context.Context, ev repository.VaultEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vault_events (id, ip_address, kind, actor, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.IPAddress, string(ev.Kind), ev.Actor, ev.Detail, ev.CreatedAt)
	return err
}

func (r *vaultRepo) ListEvents(ctx context.Context, ip string, limit int) ([]repository.VaultEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, ip_address, kind, actor, detail, created_at
		FROM vault_events
		WHERE $1 = '' OR ip_address = $1
		ORDER BY created_at DESC
		LIMIT $2`, ip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.VaultEvent
	for rows.Next() {
		var (
			ev   repository.VaultEvent
			kind string
		)
		if err := rows.Scan(&ev.ID, &ev.IPAddress, &kind, &ev.Actor, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Kind = repository.VaultEventKind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}
