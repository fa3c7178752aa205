package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

func TestDatabases_CredentialLookup(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.Databases().Create(ctx, repository.CreateConnectedDatabaseInput{Name: "A", ServiceRoleKeyHash: "h1"})
	require.NoError(t, err)

	got, err := s.Databases().FindActiveByCredentialHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	_, err = s.Databases().FindActiveByCredentialHash(ctx, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)

	b, err := s.Databases().Create(ctx, repository.CreateConnectedDatabaseInput{Name: "B", ServiceRoleKeyHash: "h1"})
	require.NoError(t, err)
	_, err = s.Databases().FindActiveByCredentialHash(ctx, "h1")
	require.ErrorIs(t, err, repository.ErrAmbiguousCredential)

	require.NoError(t, s.Databases().Deactivate(ctx, b.ID))
	got, err = s.Databases().FindActiveByCredentialHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	all, err := s.Databases().List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	active, err := s.Databases().List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestTokens_MarkUsedIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	tok, err := s.Tokens().Create(ctx, repository.CreateAuthTokenInput{
		DatabaseID: "db1", ExternalUserID: "u1", Email: "a@x", TokenHash: "hash",
		Type: repository.TokenMagicLink, ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = s.Tokens().Create(ctx, repository.CreateAuthTokenInput{TokenHash: "hash"})
	require.ErrorIs(t, err, repository.ErrConflict)

	// otro tenant no puede marcarlo
	err = s.Tokens().MarkUsed(ctx, repository.MarkTokenUsedInput{ID: tok.ID, DatabaseID: "db2", Now: now})
	require.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Tokens().MarkUsed(ctx, repository.MarkTokenUsedInput{ID: tok.ID, DatabaseID: "db1", Now: now}) == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins)

	got, err := s.Tokens().GetByHash(ctx, "hash")
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)
}

func TestTokens_MarkUsedRejectsExpired(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	tok, err := s.Tokens().Create(ctx, repository.CreateAuthTokenInput{
		DatabaseID: "db1", TokenHash: "h", Type: repository.TokenMagicLink, ExpiresAt: now,
	})
	require.NoError(t, err)

	err = s.Tokens().MarkUsed(ctx, repository.MarkTokenUsedInput{ID: tok.ID, DatabaseID: "db1", Now: now.Add(time.Second)})
	require.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)
	// justo en el límite sigue siendo canjeable
	require.NoError(t, s.Tokens().MarkUsed(ctx, repository.MarkTokenUsedInput{ID: tok.ID, DatabaseID: "db1", Now: now}))
}

func TestMappings_RequireDatabase(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Mappings().Upsert(ctx, repository.AuthSchemaMapping{DatabaseID: "ghost", IDColumn: "id"})
	require.ErrorIs(t, err, repository.ErrNotFound)

	db, err := s.Databases().Create(ctx, repository.CreateConnectedDatabaseInput{Name: "A"})
	require.NoError(t, err)
	_, err = s.Mappings().Upsert(ctx, repository.AuthSchemaMapping{DatabaseID: db.ID, IDColumn: "id", EmailColumn: "email"})
	require.NoError(t, err)
	_, err = s.Mappings().Upsert(ctx, repository.AuthSchemaMapping{DatabaseID: db.ID, IDColumn: "uid", EmailColumn: "email"})
	require.NoError(t, err)

	m, err := s.Mappings().Get(ctx, db.ID)
	require.NoError(t, err)
	require.Equal(t, "uid", m.IDColumn)
}

func TestVault_LockUnlockLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	_, err := s.Vault().GetLock(ctx, "10.0.0.1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Vault().Unlock(ctx, repository.UnlockIPInput{IPAddress: "10.0.0.1", By: "ops", Now: now})
	require.ErrorIs(t, err, repository.ErrNotFound)

	l, err := s.Vault().RecordFailure(ctx, "10.0.0.1", now)
	require.NoError(t, err)
	require.Equal(t, 1, l.FailedAttempts)
	l, err = s.Vault().RecordFailure(ctx, "10.0.0.1", now)
	require.NoError(t, err)
	require.Equal(t, 2, l.FailedAttempts)

	l, err = s.Vault().Lock(ctx, repository.LockIPInput{IPAddress: "10.0.0.1", Reason: "brute force", Now: now})
	require.NoError(t, err)
	require.True(t, l.IsLocked)
	require.False(t, l.Whitelisted())

	l, err = s.Vault().Unlock(ctx, repository.UnlockIPInput{IPAddress: "10.0.0.1", By: "ops", Now: now})
	require.NoError(t, err)
	require.True(t, l.Whitelisted())
	require.Zero(t, l.FailedAttempts)

	require.NoError(t, s.Vault().AppendEvent(ctx, repository.VaultEvent{IPAddress: "10.0.0.1", Kind: repository.VaultEventUnlocked}))
	require.NoError(t, s.Vault().AppendEvent(ctx, repository.VaultEvent{IPAddress: "10.0.0.2", Kind: repository.VaultEventLocked}))
	evs, err := s.Vault().ListEvents(ctx, "10.0.0.1", 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
}

func TestBans_GetActive(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Bans().GetActive(ctx, "db1", "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	b, err := s.Bans().Create(ctx, repository.CreateUserBanInput{DatabaseID: "db1", ExternalUserID: "u1", Type: repository.BanPermanent})
	require.NoError(t, err)
	got, err := s.Bans().GetActive(ctx, "db1", "u1")
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)

	require.NoError(t, s.Bans().Deactivate(ctx, b.ID))
	_, err = s.Bans().GetActive(ctx, "db1", "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
