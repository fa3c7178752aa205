package pg_test

import (
	"context"
	"encoding/base64"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/infra/tenantsql"
	"github.com/dropDatabas3/authmanager/internal/infra/userdb"
	"github.com/dropDatabas3/authmanager/internal/security/secretbox"
	"github.com/dropDatabas3/authmanager/internal/security/token"
	"github.com/dropDatabas3/authmanager/internal/store/pg"
	migrations "github.com/dropDatabas3/authmanager/migrations/postgres"
)

func startPostgres(t *testing.T) (string, *pg.Store) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if os.Getenv("AUTHMANAGER_PG_IT") == "" {
		t.Skip("set AUTHMANAGER_PG_IT=1 to run postgres integration tests (requires docker)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("authmanager"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	box, err := secretbox.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	s, err := pg.New(ctx, dsn, pg.Config{MaxConns: 8}, box)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m := pg.NewMigrator(migrations.ControlPlaneFS, migrations.ControlPlaneDir)
	applied, err := m.Run(ctx, s.Pool())
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	// segunda corrida: nada pendiente
	applied, err = m.Run(ctx, s.Pool())
	require.NoError(t, err)
	require.Empty(t, applied)

	return dsn, s
}

func TestStoreIntegration(t *testing.T) {
	dsn, s := startPostgres(t)
	ctx := context.Background()

	key := "svc-role-key-t1"
	db, err := s.Databases().Create(ctx, repository.CreateConnectedDatabaseInput{
		Name:               "Tenant One",
		AppName:            "one",
		ConnectionURL:      dsn,
		ServiceRoleKey:     key,
		ServiceRoleKeyHash: token.SHA256Hex(key),
		UserTable:          "public.app_users",
	})
	require.NoError(t, err)
	require.True(t, db.IsActive)

	// el gate encuentra la base por hash y la credencial vuelve descifrada
	got, err := s.Databases().FindActiveByCredentialHash(ctx, token.SHA256Hex(key))
	require.NoError(t, err)
	require.Equal(t, db.ID, got.ID)
	require.Equal(t, key, got.ServiceRoleKey)
	require.Equal(t, dsn, got.ConnectionURL)

	var raw string
	require.NoError(t, s.Pool().QueryRow(ctx, `SELECT service_role_key_enc FROM connected_databases WHERE id = $1`, db.ID).Scan(&raw))
	require.NotContains(t, raw, key)

	t.Run("tokens", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		tok, err := s.Tokens().Create(ctx, repository.CreateAuthTokenInput{
			DatabaseID: db.ID, ExternalUserID: "u1", Email: "alice@example.com",
			TokenHash: token.SHA256Hex("raw-1"), Type: repository.TokenEmailVerification,
			ExpiresAt: now.Add(24 * time.Hour),
		})
		require.NoError(t, err)

		_, err = s.Tokens().Create(ctx, repository.CreateAuthTokenInput{
			DatabaseID: db.ID, TokenHash: token.SHA256Hex("raw-1"), Type: repository.TokenMagicLink, ExpiresAt: now,
		})
		require.ErrorIs(t, err, repository.ErrConflict)

		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.Tokens().MarkUsed(ctx, repository.MarkTokenUsedInput{ID: tok.ID, DatabaseID: db.ID, Now: time.Now()}) == nil {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		require.EqualValues(t, 1, wins)

		back, err := s.Tokens().GetByHash(ctx, token.SHA256Hex("raw-1"))
		require.NoError(t, err)
		require.NotNil(t, back.UsedAt)

		_, err = s.Tokens().GetByHash(ctx, "missing")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("vault", func(t *testing.T) {
		now := time.Now()
		l, err := s.Vault().RecordFailure(ctx, "203.0.113.9", now)
		require.NoError(t, err)
		require.Equal(t, 1, l.FailedAttempts)
		l, err = s.Vault().Lock(ctx, repository.LockIPInput{IPAddress: "203.0.113.9", Reason: "brute force", Now: now})
		require.NoError(t, err)
		require.True(t, l.IsLocked)
		l, err = s.Vault().Unlock(ctx, repository.UnlockIPInput{IPAddress: "203.0.113.9", By: "ops@example.com", Now: now})
		require.NoError(t, err)
		require.True(t, l.Whitelisted())
		_, err = s.Vault().Unlock(ctx, repository.UnlockIPInput{IPAddress: "198.51.100.1", Now: now})
		require.ErrorIs(t, err, repository.ErrNotFound)

		require.NoError(t, s.Vault().AppendEvent(ctx, repository.VaultEvent{IPAddress: "203.0.113.9", Kind: repository.VaultEventUnlocked, Actor: "ops"}))
		evs, err := s.Vault().ListEvents(ctx, "203.0.113.9", 10)
		require.NoError(t, err)
		require.Len(t, evs, 1)

		require.NoError(t, s.Audit().Append(ctx, repository.AuditEntry{Action: "vault.unlock_ip", Metadata: map[string]any{"ip": "203.0.113.9"}}))
	})

	t.Run("tenant user table", func(t *testing.T) {
		_, err := s.Pool().Exec(ctx, `
			CREATE TABLE app_users (id SERIAL PRIMARY KEY, mail TEXT, display TEXT, verified BOOLEAN DEFAULT FALSE);
			INSERT INTO app_users (mail, display) VALUES ('alice@example.com', 'Alice')`)
		require.NoError(t, err)

		mapping, err := s.Mappings().Upsert(ctx, repository.AuthSchemaMapping{
			DatabaseID: db.ID, IDColumn: "id", EmailColumn: "mail", NameColumn: "display", EmailVerifiedColumn: "verified",
		})
		require.NoError(t, err)

		mgr, err := tenantsql.New(tenantsql.Config{Resolve: func(ctx context.Context, id string) (*tenantsql.Connection, error) {
			d, err := s.Databases().GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return &tenantsql.Connection{URL: d.ConnectionURL, Credential: d.ServiceRoleKey}, nil
		}})
		require.NoError(t, err)
		t.Cleanup(func() { _ = mgr.Close() })

		sqlDB, err := mgr.DB(ctx, db.ID)
		require.NoError(t, err)
		client := userdb.New(sqlDB, 5*time.Second)

		u, err := client.GetUserByID(ctx, db.UserTable, *mapping, "1")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", u.Email)
		require.Equal(t, "Alice", u.Name)

		n, err := client.UpdateUserField(ctx, db.UserTable, *mapping, "1", mapping.EmailVerifiedColumn, true)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = client.GetUserByID(ctx, db.UserTable, *mapping, "999")
		require.ErrorIs(t, err, userdb.ErrUserNotFound)
	})

	require.NoError(t, s.Databases().Deactivate(ctx, db.ID))
	_, err = s.Databases().FindActiveByCredentialHash(ctx, token.SHA256Hex(key))
	require.ErrorIs(t, err, repository.ErrNotFound)
}
