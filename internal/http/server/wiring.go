// Package server arma el handler HTTP completo a partir de la configuración:
// store, cache, pools de tenants, mailer, rate limiters, services,
// controllers y router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/authmanager/internal/audit"
	"github.com/dropDatabas3/authmanager/internal/cache"
	"github.com/dropDatabas3/authmanager/internal/config"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/email"
	amhttp "github.com/dropDatabas3/authmanager/internal/http"
	"github.com/dropDatabas3/authmanager/internal/http/controllers"
	adminctl "github.com/dropDatabas3/authmanager/internal/http/controllers/admin"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	"github.com/dropDatabas3/authmanager/internal/http/router"
	"github.com/dropDatabas3/authmanager/internal/http/services"
	"github.com/dropDatabas3/authmanager/internal/http/services/admin"
	"github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
	"github.com/dropDatabas3/authmanager/internal/http/services/health"
	"github.com/dropDatabas3/authmanager/internal/http/services/vault"
	"github.com/dropDatabas3/authmanager/internal/infra/tenantsql"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/security/adminsession"
	"github.com/dropDatabas3/authmanager/internal/security/token"
)

// Options permite a los tests inyectar piezas sin tocar la config.
type Options struct {
	DAL    repository.DataAccessLayer // nil = según cfg.Storage
	Sender email.Sender               // nil = SMTP o log según cfg
	Now    func() time.Time
}

// App es el resultado del wiring.
type App struct {
	Handler  http.Handler
	DAL      repository.DataAccessLayer
	Tenants  *tenantsql.Manager
	Registry *prometheus.Registry

	closers []func() error
}

// Close libera recursos en orden inverso a su creación.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Build arma la App. Ante error libera lo que haya abierto.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	log := logger.L().With(logger.Component("wiring"))
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	// 1. Store
	var globalPool func() *pgxpool.Pool
	dal := opts.DAL
	if dal == nil {
		dal, globalPool, err = openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, dal.Close)
	}
	app.DAL = dal

	// 2. Redis (compartido por cache y rate limit)
	var rdb *redis.Client
	if cfg.Cache.Kind == "redis" || (cfg.Rate.Enabled && cfg.Rate.Backend == "redis") {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		app.closers = append(app.closers, rdb.Close)
	}

	// 3. Cache de mappings
	mappingCache, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.Cache.MappingTTL,
		Redis:      rdb,
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, mappingCache.Close)

	// 4. Pools hacia las bases de los tenants
	tenants, err := tenantsql.New(tenantsql.Config{
		Resolve: tenantResolver(dal),
		Pool: tenantsql.PoolConfig{
			MaxOpenConns:    cfg.TenantPool.MaxOpenConns,
			MaxIdleConns:    cfg.TenantPool.MaxIdleConns,
			ConnMaxLifetime: cfg.TenantPool.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.TenantPool.ConnMaxIdleTime,
		},
		OpenTimeout: cfg.TenantPool.OpenTimeout,
	})
	if err != nil {
		return nil, err
	}
	app.Tenants = tenants
	app.closers = append(app.closers, tenants.Close)

	// 5. Mailer
	sender := opts.Sender
	if sender == nil {
		sender = newSender(cfg)
	}
	mailer := email.NewMailer(sender, cfg.Email.BaseURL, cfg.Email.VerifyPath, cfg.Email.LoginPath)

	// 6. Sesiones admin
	secret := cfg.Admin.SessionSecret
	if secret == "" {
		// sin operadores configurados nadie puede loguearse; igual firmamos con algo
		if secret, err = token.Generate(); err != nil {
			return nil, err
		}
	}
	sessions := adminsession.NewManager(secret, cfg.Admin.SessionTTL)
	operators := make([]admin.Operator, 0, len(cfg.Admin.Users))
	for _, u := range cfg.Admin.Users {
		operators = append(operators, admin.Operator{Email: u.Email, PasswordHash: u.PasswordHash})
	}
	if len(operators) == 0 {
		log.Warn("no admin operators configured, /admin is unusable")
	}

	recorder := audit.NewRecorder(dal.Audit())

	// 7. Services / controllers
	svcs := services.New(services.Deps{
		AuthManager: authmanager.Deps{
			DAL:        dal,
			Cache:      mappingCache,
			MappingTTL: cfg.Cache.MappingTTL,
			Users:      authmanager.PoolUserStores{Pools: tenants, Timeout: cfg.TenantPool.QueryTimeout},
			Mailer:     mailer,
			Now:        opts.Now,
		},
		Vault: vault.Deps{
			Repo:        dal.Vault(),
			Audit:       recorder,
			MaxAttempts: cfg.Vault.MaxAttempts,
			LockReason:  cfg.Vault.LockReason,
			Now:         opts.Now,
		},
		Admin: admin.Deps{
			DAL:       dal,
			Operators: operators,
			Sessions:  sessions,
			Audit:     recorder,
			Pools:     tenants,
			Now:       opts.Now,
		},
		Health: health.Deps{
			DBCheck:    dal.Ping,
			CacheCheck: remoteCacheCheck(cfg, mappingCache),
			PoolCount:  tenants.PoolCount,
		},
	})
	cookie := adminctl.CookieConfig{Name: cfg.Admin.CookieName, Secure: cfg.Admin.CookieSecure || cfg.IsProd()}
	ctrls := controllers.New(svcs, cookie)

	// 8. Métricas
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := amhttp.NewMetrics(amhttp.MetricsConfig{
		Registry:   app.Registry,
		Tenants:    tenants,
		GlobalPool: globalPool,
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 9. Rate limit
	issueLimiter, vaultLimiter := newLimiters(cfg, rdb)

	app.Handler = router.New(router.Deps{
		Controllers:   ctrls,
		Gate:          svcs.AuthManager.Gate,
		Sessions:      svcs.Admin.Session,
		CookieName:    cookie.Name,
		TenantOrigins: cfg.Server.CORSAllowedOrigins,
		VaultOrigin:   cfg.Vault.AllowedOrigin,
		IssueLimiter:  issueLimiter,
		VaultLimiter:  vaultLimiter,
		RateWhitelist: cfg.Rate.Whitelist,
		ClientIP:      func(r *http.Request) string { return helpers.ClientIP(r, cfg.Server.TrustProxy) },
		Metrics:       httpMetrics.Handler(),
		Instrument:    httpMetrics.Middleware,
	})

	log.Info("wiring ready",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
		logger.Int("operators", len(operators)),
	)
	return app, nil
}
