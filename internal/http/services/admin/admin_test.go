package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authmanager/internal/audit"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	dto "github.com/dropDatabas3/authmanager/internal/http/dto/admin"
	"github.com/dropDatabas3/authmanager/internal/security/adminsession"
	"github.com/dropDatabas3/authmanager/internal/security/password"
	"github.com/dropDatabas3/authmanager/internal/security/token"
	"github.com/dropDatabas3/authmanager/internal/store/memory"
)

type recordingInvalidator struct{ ids []string }

func (r *recordingInvalidator) Invalidate(_ context.Context, id string) { r.ids = append(r.ids, id) }

type recordingEvicter struct{ ids []string }

func (r *recordingEvicter) Evict(id string) error { r.ids = append(r.ids, id); return nil }

func TestSession_Login(t *testing.T) {
	hash, err := password.Hash(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16}, "hunter22")
	require.NoError(t, err)
	st := memory.New()
	svc := NewSessionService(
		[]Operator{{Email: "Ops@Example.com", PasswordHash: hash}},
		adminsession.NewManager("0123456789abcdef0123456789abcdef", time.Hour),
		audit.NewRecorder(st.Audit()),
	)
	ctx := context.Background()

	_, _, err = svc.Login(ctx, "ops@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidLogin)
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidLogin)

	raw, exp, err := svc.Login(ctx, " OPS@example.com ", "hunter22")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	c, err := svc.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", c.Email())

	require.Len(t, st.AuditEntries(), 1)
	require.Equal(t, audit.ActionAdminLogin, st.AuditEntries()[0].Action)
}

func TestSession_ValidateRejectsRemovedOperator(t *testing.T) {
	mgr := adminsession.NewManager("0123456789abcdef0123456789abcdef", time.Hour)
	raw, _, err := mgr.Issue("gone@example.com")
	require.NoError(t, err)

	svc := NewSessionService(nil, mgr, nil)
	_, err = svc.Validate(raw)
	require.ErrorIs(t, err, adminsession.ErrInvalidSession)
}

func newDatabases(t *testing.T) (DatabasesService, *memory.Store, *recordingInvalidator, *recordingEvicter) {
	t.Helper()
	st := memory.New()
	inv := &recordingInvalidator{}
	ev := &recordingEvicter{}
	svc := NewDatabasesService(DatabasesDeps{
		DAL: st, Mappings: inv, Pools: ev, Audit: audit.NewRecorder(st.Audit()),
	})
	return svc, st, inv, ev
}

func TestDatabases_CreateReturnsKeyOnce(t *testing.T) {
	svc, st, _, _ := newDatabases(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{})
	require.ErrorIs(t, err, ErrMissingName)
	_, err = svc.Create(ctx, "ops", dto.CreateDatabaseRequest{Name: "x", ConnectionURL: "mysql://h/db"})
	require.ErrorIs(t, err, ErrInvalidConnectionURL)

	res, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{
		Name: "acme", ConnectionURL: "postgres://u@h/db", UserTable: "users",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.ServiceRoleKey, keyPrefix))
	require.True(t, res.Database.HasConnection)

	got, err := st.Databases().FindActiveByCredentialHash(ctx, token.SHA256Hex(res.ServiceRoleKey))
	require.NoError(t, err)
	require.Equal(t, res.Database.ID, got.ID)

	list, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list.Databases, 1)
}

func TestDatabases_CreateDefaultsUserTable(t *testing.T) {
	svc, st, _, _ := newDatabases(t)
	ctx := context.Background()

	res, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{Name: "acme", UserTable: "  "})
	require.NoError(t, err)
	require.Equal(t, repository.DefaultUserTable, res.Database.UserTable)

	got, err := st.Databases().GetByID(ctx, res.Database.ID)
	require.NoError(t, err)
	require.Equal(t, "users", got.UserTable)
}

func TestDatabases_DeactivateEvictsAndInvalidates(t *testing.T) {
	svc, _, inv, ev := newDatabases(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.Deactivate(ctx, "ops", "missing"), ErrDatabaseNotFound)

	res, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{Name: "acme"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, "ops", res.Database.ID))
	require.Equal(t, []string{res.Database.ID}, inv.ids)
	require.Equal(t, []string{res.Database.ID}, ev.ids)

	list, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Empty(t, list.Databases)
}

func TestDatabases_UpsertSchemaMapping(t *testing.T) {
	svc, st, inv, _ := newDatabases(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{Name: "acme"})
	require.NoError(t, err)

	_, err = svc.UpsertSchemaMapping(ctx, "ops", res.Database.ID, dto.SchemaMappingRequest{IDColumn: "id"})
	require.ErrorIs(t, err, ErrInvalidMapping)
	_, err = svc.UpsertSchemaMapping(ctx, "ops", "missing", dto.SchemaMappingRequest{IDColumn: "id", EmailColumn: "email"})
	require.ErrorIs(t, err, ErrDatabaseNotFound)

	out, err := svc.UpsertSchemaMapping(ctx, "ops", res.Database.ID, dto.SchemaMappingRequest{
		IDColumn: "id", EmailColumn: "email", EmailVerifiedColumn: "email_confirmed",
	})
	require.NoError(t, err)
	require.Equal(t, "email_confirmed", out.EmailVerifiedColumn)
	require.Equal(t, []string{res.Database.ID}, inv.ids)

	m, err := st.Mappings().Get(ctx, res.Database.ID)
	require.NoError(t, err)
	require.True(t, m.HasEmailVerified())
}

func TestDatabases_BanUser(t *testing.T) {
	svc, st, _, _ := newDatabases(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{Name: "acme"})
	require.NoError(t, err)
	id := res.Database.ID

	_, err = svc.BanUser(ctx, "ops", id, dto.BanUserRequest{})
	require.ErrorIs(t, err, ErrMissingUserID)

	past := time.Now().Add(-time.Hour)
	_, err = svc.BanUser(ctx, "ops", id, dto.BanUserRequest{UserID: "u", Type: "temporary", ExpiresAt: &past})
	require.ErrorIs(t, err, ErrInvalidBan)

	ban, err := svc.BanUser(ctx, "ops", id, dto.BanUserRequest{UserID: "u", Reason: "fraud"})
	require.NoError(t, err)
	require.Equal(t, "permanent", ban.Type)
	require.Nil(t, ban.ExpiresAt)

	active, err := st.Bans().GetActive(ctx, id, "u")
	require.NoError(t, err)
	require.Equal(t, repository.BanPermanent, active.Type)
	require.Equal(t, "ops", active.BannedBy)

	_, err = svc.BanUser(ctx, "ops", id, dto.BanUserRequest{UserID: "u", Reason: "again"})
	require.ErrorIs(t, err, ErrAlreadyBanned)
}

func TestDatabases_BanUserReplacesExpiredBan(t *testing.T) {
	st := memory.New()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })
	svc := NewDatabasesService(DatabasesDeps{DAL: st, Now: func() time.Time { return now }})
	ctx := context.Background()

	res, err := svc.Create(ctx, "ops", dto.CreateDatabaseRequest{Name: "acme"})
	require.NoError(t, err)
	id := res.Database.ID

	until := now.Add(time.Hour)
	first, err := svc.BanUser(ctx, "ops", id, dto.BanUserRequest{UserID: "u", ExpiresAt: &until})
	require.NoError(t, err)
	require.Equal(t, "temporary", first.Type)

	now = now.Add(2 * time.Hour)
	second, err := svc.BanUser(ctx, "ops", id, dto.BanUserRequest{UserID: "u", Reason: "reincidente"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	active, err := st.Bans().GetActive(ctx, id, "u")
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)
	require.Equal(t, repository.BanPermanent, active.Type)
}
