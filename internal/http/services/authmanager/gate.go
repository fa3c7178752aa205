package authmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/security/token"
)

var (
	ErrMissingCredential = errors.New("missing service role key")
	ErrInvalidCredential = errors.New("invalid service role key")
)

// Gate autentica las llamadas de un tenant por su service-role key.
type Gate interface {
	Authenticate(ctx context.Context, credential string) (*repository.ConnectedDatabase, error)
}

type gate struct {
	dbs repository.ConnectedDatabaseRepository
}

func NewGate(dbs repository.ConnectedDatabaseRepository) Gate {
	return &gate{dbs: dbs}
}

// Authenticate busca la única base activa cuya credencial coincide.
// Una credencial compartida por más de una base se rechaza igual que una inválida.
func (g *gate) Authenticate(ctx context.Context, credential string) (*repository.ConnectedDatabase, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMissingCredential
	}

	db, err := g.dbs.FindActiveByCredentialHash(ctx, token.SHA256Hex(credential))
	switch {
	case err == nil:
		return db, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrInvalidCredential
	case errors.Is(err, repository.ErrAmbiguousCredential):
		logger.From(ctx).Error("service role key matches several active databases",
			logger.Layer("service"),
			logger.Component("authmanager.gate"),
		)
		return nil, ErrInvalidCredential
	default:
		return nil, fmt.Errorf("authenticate: %w", err)
	}
}
