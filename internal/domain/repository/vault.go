package repository

import (
	"context"
	"time"
)

// IPLock es el estado del gate de IPs. Un registro con IsLocked=false y
// UnlockedAt seteado es una IP explícitamente habilitada (whitelisted).
type IPLock struct {
	IPAddress      string
	IsLocked       bool
	Reason         string
	FailedAttempts int
	LockedAt       *time.Time
	UnlockedAt     *time.Time
	UnlockedBy     string
	LastAttemptAt  *time.Time
	UpdatedAt      time.Time
}

// Whitelisted indica un desbloqueo explícito por un admin.
func (l *IPLock) Whitelisted() bool {
	return l != nil && !l.IsLocked && l.UnlockedAt != nil
}

type VaultEventKind string

const (
	VaultEventLocked        VaultEventKind = "ip_locked"
	VaultEventUnlocked      VaultEventKind = "ip_unlocked"
	VaultEventAttemptFailed VaultEventKind = "attempt_failed"
)

// VaultEvent es una entrada del log propio del vault.
type VaultEvent struct {
	ID        string
	IPAddress string
	Kind      VaultEventKind
	Actor     string
	Detail    string
	CreatedAt time.Time
}

type LockIPInput struct {
	IPAddress string
	Reason    string
	Now       time.Time
}

type UnlockIPInput struct {
	IPAddress string
	By        string
	Now       time.Time
}

type VaultRepository interface {
	// GetLock retorna ErrNotFound si la IP nunca fue registrada.
	GetLock(ctx context.Context, ip string) (*IPLock, error)

	// RecordFailure incrementa el contador de forma atómica (upsert).
	RecordFailure(ctx context.Context, ip string, now time.Time) (*IPLock, error)

	// ResetAttempts pone el contador en cero; no-op si no hay registro.
	ResetAttempts(ctx context.Context, ip string) error

	// Lock crea o actualiza el registro como bloqueado.
	Lock(ctx context.Context, in LockIPInput) (*IPLock, error)

	// Unlock retorna ErrNotFound si no hay registro para la IP.
	Unlock(ctx context.Context, in UnlockIPInput) (*IPLock, error)

	AppendEvent(ctx context.Context, ev VaultEvent) error
	ListEvents(ctx context.Context, ip string, limit int) ([]VaultEvent, error)
}
