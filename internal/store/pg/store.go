// Package pg implementa repository.DataAccessLayer sobre PostgreSQL (pgxpool).
// Las credenciales y URLs de los tenants se guardan cifradas; para el lookup
// del gate se guarda además el SHA-256 de la credencial.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

// Cipher cifra secretos en reposo (implementado por secretbox.Box).
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(cipherText string) (string, error)
}

// Config tuning del pool.
type Config struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type Store struct {
	pool   *pgxpool.Pool
	cipher Cipher
}

var _ repository.DataAccessLayer = (*Store)(nil)

// New abre el pool y verifica conectividad.
func New(ctx context.Context, dsn string, cfg Config, cipher Cipher) (*Store, error) {
	if cipher == nil {
		return nil, errors.New("pg store: cipher is required")
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, cipher: cipher}, nil
}

// Pool expone el pool (migraciones, métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// PoolStats snapshot para el collector de Prometheus.
func (s *Store) PoolStats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}

func (s *Store) Databases() repository.ConnectedDatabaseRepository { return &databaseRepo{s} }
func (s *Store) Mappings() repository.SchemaMappingRepository      { return &mappingRepo{s.pool} }
func (s *Store) Tokens() repository.AuthTokenRepository            { return &tokenRepo{s.pool} }
func (s *Store) Bans() repository.UserBanRepository                { return &banRepo{s.pool} }
func (s *Store) Vault() repository.VaultRepository                 { return &vaultRepo{s.pool} }
func (s *Store) Audit() repository.AuditRepository                 { return &auditRepo{s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
