// Package health contiene el service para /readyz.
package health

import (
	"context"
	"time"

	dto "github.com/dropDatabas3/authmanager/internal/http/dto/health"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.ReadyResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	DBCheck    func(ctx context.Context) error
	CacheCheck func(ctx context.Context) error // nil = sin cache remoto
	PoolCount  func() int
	Timeout    time.Duration
}

type healthService struct {
	deps Deps
}

func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.ReadyResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	resp := dto.ReadyResponse{
		Status:     "ok",
		Components: map[string]string{},
		Timestamp:  time.Now().UTC(),
	}

	check := func(name string, fn func(context.Context) error) {
		if fn == nil {
			return
		}
		cctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
		if err := fn(cctx); err != nil {
			log.Warn("component unhealthy", logger.String("component_name", name), logger.Err(err))
			resp.Components[name] = "down"
			resp.Status = "degraded"
			return
		}
		resp.Components[name] = "ok"
	}
	check("store", s.deps.DBCheck)
	check("cache", s.deps.CacheCheck)

	if s.deps.PoolCount != nil {
		resp.TenantPools = s.deps.PoolCount()
	}
	return resp
}
