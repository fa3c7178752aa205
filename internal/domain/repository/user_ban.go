package repository

import (
	"context"
	"time"
)

type BanType string

const (
	BanTemporary BanType = "temporary"
	BanPermanent BanType = "permanent"
)

// AuthUserBan es un ban por (base, usuario externo).
type AuthUserBan struct {
	ID             string
	DatabaseID     string
	ExternalUserID string
	Reason         string
	Type           BanType
	BannedBy       string
	BannedAt       time.Time
	ExpiresAt      *time.Time
	IsActive       bool
}

// ExpiredAt: sólo los bans con expiración pueden vencer.
func (b *AuthUserBan) ExpiredAt(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}

type CreateUserBanInput struct {
	DatabaseID     string
	ExternalUserID string
	Reason         string
	Type           BanType
	BannedBy       string
	ExpiresAt      *time.Time
}

type UserBanRepository interface {
	Create(ctx context.Context, in CreateUserBanInput) (*AuthUserBan, error)

	// GetActive retorna el ban activo más reciente o ErrNotFound.
	GetActive(ctx context.Context, databaseID, externalUserID string) (*AuthUserBan, error)

	Deactivate(ctx context.Context, id string) error
}
