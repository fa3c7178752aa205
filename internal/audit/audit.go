// Package audit registra acciones administrativas en audit_logs y en el log.
package audit

import (
	"context"
	"time"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// Acciones conocidas.
const (
	ActionDatabaseCreated     = "database.created"
	ActionDatabaseDeactivated = "database.deactivated"
	ActionMappingUpserted     = "schema_mapping.upserted"
	ActionUserBanned          = "user.banned"
	ActionIPLocked            = "vault.ip_locked"
	ActionIPUnlocked          = "vault.ip_unlocked"
	ActionAdminLogin          = "admin.login"
)

// Recorder persiste eventos. Un fallo al escribir se loguea y se devuelve;
// el caller decide si es fatal.
type Recorder struct {
	repo repository.AuditRepository
	now  func() time.Time
}

func NewRecorder(repo repository.AuditRepository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// Event describe una acción auditada.
type Event struct {
	Actor      string
	Action     string
	Resource   string
	ResourceID string
	Metadata   map[string]any
}

func (r *Recorder) Log(ctx context.Context, ev Event) error {
	log := logger.From(ctx).With(logger.Component("audit"))
	log.Info(ev.Action,
		logger.String("actor", ev.Actor),
		logger.String("resource", ev.Resource),
		logger.String("resource_id", ev.ResourceID),
		logger.Any("metadata", ev.Metadata),
	)
	err := r.repo.Append(ctx, repository.AuditEntry{
		Actor:      ev.Actor,
		Action:     ev.Action,
		Resource:   ev.Resource,
		ResourceID: ev.ResourceID,
		Metadata:   ev.Metadata,
		CreatedAt:  r.now().UTC(),
	})
	if err != nil {
		log.Error("audit append failed", logger.String("action", ev.Action), logger.Err(err))
	}
	return err
}
