package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/authmanager/internal/cache"
	"github.com/dropDatabas3/authmanager/internal/config"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/email"
	"github.com/dropDatabas3/authmanager/internal/infra/tenantsql"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/rate"
	"github.com/dropDatabas3/authmanager/internal/security/secretbox"
	"github.com/dropDatabas3/authmanager/internal/store/memory"
	"github.com/dropDatabas3/authmanager/internal/store/pg"
	migrations "github.com/dropDatabas3/authmanager/migrations/postgres"
)

// openStore abre el backend del control plane. Para postgres corre las
// migraciones embebidas si auto_migrate está activo.
func openStore(ctx context.Context, cfg *config.Config) (repository.DataAccessLayer, func() *pgxpool.Pool, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.L().Warn("using in-memory store, data is lost on restart", logger.Component("wiring"))
		return memory.New(), nil, nil

	case "postgres":
		box, err := secretbox.New(cfg.Security.SecretBoxMasterKey)
		if err != nil {
			return nil, nil, fmt.Errorf("secretbox: %w", err)
		}
		st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			MaxConnLifetime: cfg.Storage.Postgres.MaxConnLifetime,
		}, box)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		if cfg.Storage.AutoMigrate {
			applied, err := pg.NewMigrator(migrations.ControlPlaneFS, migrations.ControlPlaneDir).Run(ctx, st.Pool())
			if err != nil {
				_ = st.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			logger.L().Info("migrations applied", logger.Component("wiring"), logger.Any("versions", applied))
		}
		return st, st.Pool, nil

	default:
		return nil, nil, fmt.Errorf("storage driver %q not supported", cfg.Storage.Driver)
	}
}

// tenantResolver lee URL y credencial de la base conectada. Una base
// desactivada no abre pool.
func tenantResolver(dal repository.DataAccessLayer) tenantsql.Resolver {
	return func(ctx context.Context, databaseID string) (*tenantsql.Connection, error) {
		db, err := dal.Databases().GetByID(ctx, databaseID)
		if err != nil {
			return nil, err
		}
		if !db.IsActive {
			return nil, fmt.Errorf("database %s is inactive: %w", databaseID, repository.ErrNotFound)
		}
		if strings.TrimSpace(db.ConnectionURL) == "" {
			return nil, tenantsql.ErrNoConnectionURL
		}
		return &tenantsql.Connection{URL: db.ConnectionURL, Credential: db.ServiceRoleKey}, nil
	}
}

func newSender(cfg *config.Config) email.Sender {
	if cfg.Email.LogOnly || cfg.SMTP.Host == "" {
		logger.L().Warn("smtp not configured, emails are only logged", logger.Component("wiring"))
		return email.LogSender{}
	}
	return &email.SMTPSender{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		From:               cfg.SMTP.From,
		User:               cfg.SMTP.Username,
		Pass:               cfg.SMTP.Password,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	}
}

// remoteCacheCheck sólo reporta la cache en /readyz cuando es Redis.
func remoteCacheCheck(cfg *config.Config, c cache.Client) func(context.Context) error {
	if cfg.Cache.Kind != "redis" {
		return nil
	}
	return c.Ping
}

// newLimiters devuelve (issue, vault). Ambos nil si el rate limit está apagado.
func newLimiters(cfg *config.Config, rdb *redis.Client) (rate.Limiter, rate.Limiter) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	if cfg.Rate.Backend == "redis" && rdb != nil {
		prefix := cfg.Cache.Redis.Prefix + "rl:"
		return rate.NewRedisLimiter(rdb, prefix+"issue:", cfg.Rate.Issue.Limit, cfg.Rate.Issue.Window),
			rate.NewRedisLimiter(rdb, prefix+"vault:", cfg.Rate.Vault.Limit, cfg.Rate.Vault.Window)
	}
	return rate.NewMemoryLimiter(cfg.Rate.Issue.Limit, cfg.Rate.Issue.Window),
		rate.NewMemoryLimiter(cfg.Rate.Vault.Limit, cfg.Rate.Vault.Window)
}
