package repository

import (
	"context"
	"time"
)

// TokenType indica el propósito del token.
type TokenType string

const (
	TokenEmailVerification TokenType = "email_verification"
	TokenMagicLink         TokenType = "magic_link"
)

// TTL es la vigencia fija por tipo.
func (t TokenType) TTL() time.Duration {
	switch t {
	case TokenMagicLink:
		return 15 * time.Minute
	case TokenEmailVerification:
		return 24 * time.Hour
	}
	return 0
}

func (t TokenType) Valid() bool {
	return t == TokenEmailVerification || t == TokenMagicLink
}

// AuthToken es un token emitido. El valor crudo sólo existe en el mail;
// acá se guarda su hash.
type AuthToken struct {
	ID             string
	DatabaseID     string
	ExternalUserID string
	Email          string
	TokenHash      string
	Type           TokenType
	ExpiresAt      time.Time
	UsedAt         *time.Time
	CreatedAt      time.Time
}

// Used indica si ya fue canjeado.
func (t *AuthToken) Used() bool { return t.UsedAt != nil }

// ExpiredAt indica si now es posterior a ExpiresAt (now == ExpiresAt sigue vigente).
func (t *AuthToken) ExpiredAt(now time.Time) bool { return now.After(t.ExpiresAt) }

type CreateAuthTokenInput struct {
	DatabaseID     string
	ExternalUserID string
	Email          string
	TokenHash      string
	Type           TokenType
	ExpiresAt      time.Time
}

// MarkTokenUsedInput es el compare-and-set del canje.
type MarkTokenUsedInput struct {
	ID         string
	DatabaseID string
	Now        time.Time
}

// AuthTokenRepository persiste tokens. Los tokens no se borran: la expiración
// se evalúa por timestamp al leer.
type AuthTokenRepository interface {
	// Create falla con ErrConflict si el hash ya existe.
	Create(ctx context.Context, in CreateAuthTokenInput) (*AuthToken, error)

	// GetByHash retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*AuthToken, error)

	// MarkUsed setea used_at sólo si el token sigue sin usar, no expiró y
	// pertenece a DatabaseID. Si no afecta filas retorna ErrTokenAlreadyUsed.
	MarkUsed(ctx context.Context, in MarkTokenUsedInput) error
}
