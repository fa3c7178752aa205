package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type auditRepo struct {
	pool *pgxpool.Pool
}

func (r *auditRepo) Append(ctx context.Context, e repository.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	// pgx serializa map[string]any a jsonb
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, actor, action, resource, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Actor, e.Action, e.Resource, e.ResourceID, meta, e.CreatedAt)
	return err
}
