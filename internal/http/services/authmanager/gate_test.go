package authmanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authmanager/internal/cache"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	"github.com/dropDatabas3/authmanager/internal/security/token"
	"github.com/dropDatabas3/authmanager/internal/store/memory"
)

func createDB(t *testing.T, st *memory.Store, key string) *repository.ConnectedDatabase {
	t.Helper()
	db, err := st.Databases().Create(context.Background(), repository.CreateConnectedDatabaseInput{
		Name: "db-" + key, ServiceRoleKey: key, ServiceRoleKeyHash: token.SHA256Hex(key),
	})
	require.NoError(t, err)
	return db
}

func TestGate_Authenticate(t *testing.T) {
	st := memory.New()
	db := createDB(t, st, "sk_one")
	g := NewGate(st.Databases())
	ctx := context.Background()

	_, err := g.Authenticate(ctx, "  ")
	require.ErrorIs(t, err, ErrMissingCredential)

	_, err = g.Authenticate(ctx, "sk_wrong")
	require.ErrorIs(t, err, ErrInvalidCredential)

	got, err := g.Authenticate(ctx, "sk_one")
	require.NoError(t, err)
	require.Equal(t, db.ID, got.ID)

	require.NoError(t, st.Databases().Deactivate(ctx, db.ID))
	_, err = g.Authenticate(ctx, "sk_one")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGate_AmbiguousCredentialRejected(t *testing.T) {
	st := memory.New()
	createDB(t, st, "sk_shared")
	createDB(t, st, "sk_shared")

	_, err := NewGate(st.Databases()).Authenticate(context.Background(), "sk_shared")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestSchemaResolver_CachesAndInvalidates(t *testing.T) {
	st := memory.New()
	db := createDB(t, st, "sk")
	ctx := context.Background()
	c := cache.NewMemory("t", time.Minute)
	r := NewSchemaResolver(ResolverDeps{Databases: st.Databases(), Mappings: st.Mappings(), Cache: c, TTL: time.Minute})

	_, m, err := r.Resolve(ctx, db.ID)
	require.NoError(t, err)
	require.Nil(t, m)

	// sin invalidar, el "no tiene mapping" queda en cache
	_, err = st.Mappings().Upsert(ctx, repository.AuthSchemaMapping{DatabaseID: db.ID, IDColumn: "id", EmailColumn: "email"})
	require.NoError(t, err)
	_, m, err = r.Resolve(ctx, db.ID)
	require.NoError(t, err)
	require.Nil(t, m)

	r.Invalidate(ctx, db.ID)
	_, m, err = r.Resolve(ctx, db.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "email", m.EmailColumn)

	_, _, err = r.Resolve(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBans_Check(t *testing.T) {
	st := memory.New()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })
	svc := NewBansService(st.Bans(), func() time.Time { return now })
	ctx := context.Background()

	_, err := svc.Check(ctx, "db1", "")
	require.ErrorIs(t, err, ErrMissingUserID)

	res, err := svc.Check(ctx, "db1", "u-1")
	require.NoError(t, err)
	require.False(t, res.Banned)

	exp := now.Add(time.Hour)
	_, err = st.Bans().Create(ctx, repository.CreateUserBanInput{
		DatabaseID: "db1", ExternalUserID: "u-1", Reason: "spam", Type: repository.BanTemporary, ExpiresAt: &exp,
	})
	require.NoError(t, err)

	res, err = svc.Check(ctx, "db1", "u-1")
	require.NoError(t, err)
	require.True(t, res.Banned)
	require.Equal(t, "spam", res.Reason)
	require.Equal(t, "temporary", res.Type)
	require.Equal(t, exp, *res.ExpiresAt)

	// otra base no ve el ban
	res, err = svc.Check(ctx, "db2", "u-1")
	require.NoError(t, err)
	require.False(t, res.Banned)

	now = now.Add(2 * time.Hour)
	res, err = svc.Check(ctx, "db1", "u-1")
	require.NoError(t, err)
	require.False(t, res.Banned)
	_, err = st.Bans().GetActive(ctx, "db1", "u-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
