package authmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/authmanager/internal/cache"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// noMapping marca en cache que la base no tiene mapping.
const noMapping = "-"

// SchemaResolver devuelve la base y su mapping (nil si no tiene).
type SchemaResolver interface {
	Resolve(ctx context.Context, databaseID string) (*repository.ConnectedDatabase, *repository.AuthSchemaMapping, error)
	Invalidate(ctx context.Context, databaseID string)
}

type ResolverDeps struct {
	Databases repository.ConnectedDatabaseRepository
	Mappings  repository.SchemaMappingRepository
	Cache     cache.Client // nil = sin cache
	TTL       time.Duration
}

type schemaResolver struct {
	deps ResolverDeps
}

func NewSchemaResolver(deps ResolverDeps) SchemaResolver {
	return &schemaResolver{deps: deps}
}

func mappingKey(databaseID string) string { return "mapping:" + databaseID }

// Resolve lee la base siempre del store (trae secretos, no se cachea);
// el mapping pasa por cache, incluido el "no tiene".
func (r *schemaResolver) Resolve(ctx context.Context, databaseID string) (*repository.ConnectedDatabase, *repository.AuthSchemaMapping, error) {
	db, err := r.deps.Databases.GetByID(ctx, databaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database: %w", err)
	}
	m, err := r.mapping(ctx, databaseID)
	if err != nil {
		return nil, nil, err
	}
	return db, m, nil
}

func (r *schemaResolver) mapping(ctx context.Context, databaseID string) (*repository.AuthSchemaMapping, error) {
	log := logger.From(ctx).With(logger.Component("authmanager.resolver"), logger.DatabaseID(databaseID))

	if r.deps.Cache != nil {
		raw, err := r.deps.Cache.Get(ctx, mappingKey(databaseID))
		switch {
		case err == nil && raw == noMapping:
			return nil, nil
		case err == nil:
			var m repository.AuthSchemaMapping
			if jerr := json.Unmarshal([]byte(raw), &m); jerr == nil {
				return &m, nil
			}
			log.Warn("discarding unreadable cached mapping")
		case !errors.Is(err, cache.ErrNotFound):
			log.Warn("mapping cache get failed", logger.Err(err))
		}
	}

	m, err := r.deps.Mappings.Get(ctx, databaseID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load schema mapping: %w", err)
	}

	if r.deps.Cache != nil {
		val := noMapping
		if m != nil {
			b, _ := json.Marshal(m)
			val = string(b)
		}
		if serr := r.deps.Cache.Set(ctx, mappingKey(databaseID), val, r.deps.TTL); serr != nil {
			log.Warn("mapping cache set failed", logger.Err(serr))
		}
	}
	return m, nil
}

func (r *schemaResolver) Invalidate(ctx context.Context, databaseID string) {
	if r.deps.Cache == nil {
		return
	}
	if err := r.deps.Cache.Delete(ctx, mappingKey(databaseID)); err != nil {
		logger.From(ctx).Warn("mapping cache delete failed", logger.DatabaseID(databaseID), logger.Err(err))
	}
}
