// Package tenantsql mantiene un pool database/sql por cada base externa de
// tenant. El pool se abre en el primer uso y se cierra cuando el tenant se
// desactiva o cuando el proceso termina.
package tenantsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

var (
	ErrNoConnectionURL   = errors.New("tenant has no connection url")
	ErrResolverMissing   = errors.New("tenant resolver not configured")
	ErrManagerClosed     = errors.New("tenant pool manager closed")
	ErrUnsupportedScheme = errors.New("unsupported tenant database scheme")
	ErrEvicted           = errors.New("tenant evicted while its pool was opening")
)

// Connection es lo mínimo para abrir el pool de un tenant. Credential se
// inyecta como password cuando la URL no trae una.
type Connection struct {
	URL        string
	Credential string
}

// Resolver obtiene la conexión de un tenant (normalmente desde el control plane).
type Resolver func(ctx context.Context, databaseID string) (*Connection, error)

// Opener abre el *sql.DB. Los tests lo reemplazan por sqlmock.
type Opener func(ctx context.Context, conn Connection) (*sql.DB, error)

// PoolConfig parámetros de cada pool por tenant.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type Config struct {
	Resolve Resolver
	Open    Opener
	Pool    PoolConfig

	// OpenTimeout acota resolve+open. La apertura es compartida entre
	// callers, así que no depende del ctx de ninguno. Default 10s.
	OpenTimeout time.Duration
}

// PoolStat snapshot de un pool, expuesto en /metrics.
type PoolStat struct {
	DatabaseID string
	Open       int
	InUse      int
	Idle       int
}

type Manager struct {
	resolve     Resolver
	open        Opener
	poolCfg     PoolConfig
	openTimeout time.Duration

	mu     sync.RWMutex
	pools  map[string]*sql.DB
	gens   map[string]uint64 // se incrementa en cada Evict
	closed bool
	sf     singleflight.Group
}

func New(cfg Config) (*Manager, error) {
	if cfg.Resolve == nil {
		return nil, ErrResolverMissing
	}
	p := cfg.Pool
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 5
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 2
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = 30 * time.Minute
	}
	open := cfg.Open
	if open == nil {
		open = OpenPostgres
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		resolve:     cfg.Resolve,
		open:        open,
		poolCfg:     p,
		openTimeout: timeout,
		pools:       make(map[string]*sql.DB),
		gens:        make(map[string]uint64),
	}, nil
}

// DB devuelve (o abre) el pool del tenant. Aperturas concurrentes para el
// mismo id se colapsan en una sola; cada caller deja de esperar cuando su
// propio ctx termina.
func (m *Manager) DB(ctx context.Context, databaseID string) (*sql.DB, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrManagerClosed
	}
	if db, ok := m.pools[databaseID]; ok {
		m.mu.RUnlock()
		return db, nil
	}
	m.mu.RUnlock()

	ch := m.sf.DoChan(databaseID, func() (any, error) {
		octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.openTimeout)
		defer cancel()
		return m.openPool(octx, databaseID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sql.DB), nil
	}
}

func (m *Manager) openPool(ctx context.Context, databaseID string) (*sql.DB, error) {
	// otro caller pudo haberlo abierto entre el RUnlock y el singleflight
	m.mu.RLock()
	if db, ok := m.pools[databaseID]; ok {
		m.mu.RUnlock()
		return db, nil
	}
	gen := m.gens[databaseID]
	m.mu.RUnlock()

	conn, err := m.resolve(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	if conn == nil || strings.TrimSpace(conn.URL) == "" {
		return nil, ErrNoConnectionURL
	}

	db, err := m.open(ctx, *conn)
	if err != nil {
		return nil, fmt.Errorf("open tenant %s: %w", databaseID, err)
	}
	db.SetMaxOpenConns(m.poolCfg.MaxOpenConns)
	db.SetMaxIdleConns(m.poolCfg.MaxIdleConns)
	db.SetConnMaxLifetime(m.poolCfg.ConnMaxLifetime)
	if m.poolCfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(m.poolCfg.ConnMaxIdleTime)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = db.Close()
		return nil, ErrManagerClosed
	}
	if m.gens[databaseID] != gen {
		m.mu.Unlock()
		_ = db.Close()
		return nil, ErrEvicted
	}
	m.pools[databaseID] = db
	m.mu.Unlock()

	logger.L().Info("tenant pool ready",
		logger.Component("tenantsql"),
		logger.DatabaseID(databaseID),
		logger.Int("max_open_conns", m.poolCfg.MaxOpenConns),
	)
	return db, nil
}

// Evict cierra el pool de un tenant (desactivación). Una apertura en curso
// para ese id se descarta al terminar.
func (m *Manager) Evict(databaseID string) error {
	m.mu.Lock()
	db, ok := m.pools[databaseID]
	delete(m.pools, databaseID)
	m.gens[databaseID]++
	m.mu.Unlock()
	// los próximos DB no se suman al vuelo descartado
	m.sf.Forget(databaseID)
	if !ok {
		return nil
	}
	logger.L().Info("tenant pool evicted", logger.Component("tenantsql"), logger.DatabaseID(databaseID))
	return db.Close()
}

// PoolCount retorna el número de pools abiertos.
func (m *Manager) PoolCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}

// Stats snapshot por tenant.
func (m *Manager) Stats() []PoolStat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PoolStat, 0, len(m.pools))
	for id, db := range m.pools {
		s := db.Stats()
		out = append(out, PoolStat{DatabaseID: id, Open: s.OpenConnections, InUse: s.InUse, Idle: s.Idle})
	}
	return out
}

// Close cierra todos los pools; llamadas posteriores a DB fallan.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var errs []error
	for id, db := range m.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tenant %s: %w", id, err))
		}
		delete(m.pools, id)
	}
	return errors.Join(errs...)
}

// OpenPostgres abre el pool vía pgx/stdlib y hace un ping inicial.
func OpenPostgres(ctx context.Context, conn Connection) (*sql.DB, error) {
	u := strings.TrimSpace(conn.URL)
	if !strings.HasPrefix(u, "postgres://") && !strings.HasPrefix(u, "postgresql://") {
		return nil, ErrUnsupportedScheme
	}
	cc, err := pgx.ParseConfig(u)
	if err != nil {
		return nil, fmt.Errorf("parse connection url: %w", err)
	}
	if cc.Password == "" && conn.Credential != "" {
		cc.Password = conn.Credential
	}
	db := stdlib.OpenDB(*cc)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
