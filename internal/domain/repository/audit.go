package repository

import (
	"context"
	"time"
)

// AuditEntry es una entrada del log general de auditoría.
type AuditEntry struct {
	ID         string
	Actor      string
	Action     string
	Resource   string
	ResourceID string
	Metadata   map[string]any
	CreatedAt  time.Time
}

type AuditRepository interface {
	Append(ctx context.Context, e AuditEntry) error
}
