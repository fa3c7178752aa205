package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authmanager/internal/config"
	"github.com/dropDatabas3/authmanager/internal/security/password"
	"github.com/dropDatabas3/authmanager/internal/store/memory"
)

type outbox struct {
	mu   sync.Mutex
	text []string
}

func (o *outbox) Send(_ context.Context, _, _, _, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text = append(o.text, text)
	return nil
}

var tokenRE = regexp.MustCompile(`token=([^\s&"]+)`)

func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.text)
	m := tokenRE.FindStringSubmatch(o.text[len(o.text)-1])
	require.Len(t, m, 2)
	raw, err := url.QueryUnescape(m[1])
	require.NoError(t, err)
	return raw
}

type harness struct {
	t       *testing.T
	handler http.Handler
	mail    *outbox
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hash, err := password.Hash(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "s3cret-pass")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Rate.Enabled = false
	cfg.Vault.MaxAttempts = 3
	cfg.Email.BaseURL = "https://app.example"
	cfg.Security.SecretBoxMasterKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	cfg.Admin.SessionSecret = "0123456789abcdef0123456789abcdef"
	cfg.Admin.Users = []config.AdminUser{{Email: "ops@example.com", PasswordHash: hash}}

	mail := &outbox{}
	app, err := Build(context.Background(), cfg, Options{DAL: memory.New(), Sender: mail})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &harness{t: t, handler: app.Handler, mail: mail}
}

func (h *harness) do(method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) login() {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/admin/session", map[string]string{"email": "ops@example.com", "password": "s3cret-pass"}, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(h.t, cookies)
	h.cookie = cookies[0]
}

func (h *harness) createDatabase(name string) (id, key string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/admin/databases", map[string]string{"name": name, "appName": "Acme"}, nil)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[struct {
		Database struct {
			ID string `json:"id"`
		} `json:"database"`
		ServiceRoleKey string `json:"serviceRoleKey"`
	}](h.t, rec)
	return res.Database.ID, res.ServiceRoleKey
}

func bearer(key string) map[string]string { return map[string]string{"Authorization": "Bearer " + key} }

func TestEndToEnd_EmailVerification(t *testing.T) {
	h := newHarness(t)
	h.login()
	_, key := h.createDatabase("acme")
	_, otherKey := h.createDatabase("other")
	h.cookie = nil

	// sin credencial
	rec := h.do(http.MethodPost, "/send-verification", map[string]string{"userId": "u-1", "email": "a@b.c"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/send-verification", map[string]string{"userId": "u-1", "email": "a@b.c"}, bearer(key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	raw := h.mail.lastToken(t)

	// otra base no puede canjearlo
	rec = h.do(http.MethodPost, "/verify-email", map[string]string{"token": raw}, bearer(otherKey))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/verify-email", map[string]string{"token": raw}, bearer(key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
		Email   string `json:"email"`
	}](t, rec)
	require.True(t, res.Success)
	require.Equal(t, "u-1", res.UserID)
	require.Equal(t, "a@b.c", res.Email)

	rec = h.do(http.MethodPost, "/verify-email", map[string]string{"token": raw}, bearer(key))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "token already used")

	// tipo equivocado
	rec = h.do(http.MethodPost, "/send-magic-link", map[string]string{"userId": "u-1", "email": "a@b.c"}, bearer(key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/verify-email", map[string]string{"token": h.mail.lastToken(t)}, bearer(key))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid token type")
}

func TestEndToEnd_MagicLinkWithoutMapping(t *testing.T) {
	h := newHarness(t)
	h.login()
	_, key := h.createDatabase("acme")

	rec := h.do(http.MethodPost, "/send-magic-link", map[string]string{"userId": "u-9", "email": "z@y.x", "loginUrl": "https://acme.example/login"}, bearer(key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/verify-magic-link", map[string]string{"token": h.mail.lastToken(t)}, bearer(key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[struct {
		Success bool `json:"success"`
		User    struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}](t, rec)
	require.True(t, res.Success)
	require.Equal(t, "u-9", res.User.ID)
	require.Equal(t, "z@y.x", res.User.Email)
}

func TestEndToEnd_Bans(t *testing.T) {
	h := newHarness(t)
	h.login()
	id, key := h.createDatabase("acme")

	rec := h.do(http.MethodPost, "/admin/databases/"+id+"/bans", map[string]any{"userId": "u-1", "reason": "spam"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/admin/databases/"+id+"/bans", map[string]any{"userId": "u-1"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	require.Equal(t, "CONFLICT", decode[map[string]any](t, rec)["code"])

	rec = h.do(http.MethodGet, "/check-ban?userId=u-1", nil, bearer(key))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]any](t, rec)
	require.Equal(t, true, res["banned"])
	require.Equal(t, "spam", res["reason"])

	rec = h.do(http.MethodGet, "/check-ban", nil, bearer(key))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// la base desactivada deja de autenticar
	rec = h.do(http.MethodPost, "/admin/databases/"+id+"/deactivate", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = h.do(http.MethodGet, "/check-ban?userId=u-1", nil, bearer(key))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEndToEnd_VaultLockAndUnlock(t *testing.T) {
	h := newHarness(t)
	ip := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}

	for i := 0; i < 3; i++ {
		rec := h.do(http.MethodPost, "/vault/record-attempt", map[string]any{"success": false}, ip)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := h.do(http.MethodPost, "/vault/check-ip", nil, ip)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[map[string]any](t, rec)["locked"].(bool))

	// unlock exige sesión admin
	rec = h.do(http.MethodPost, "/vault/unlock-ip", map[string]string{"ipAddress": "203.0.113.7"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	h.login()
	rec = h.do(http.MethodPost, "/vault/unlock-ip", map[string]string{"ipAddress": "203.0.113.7"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[map[string]any](t, rec)["success"].(bool))

	rec = h.do(http.MethodPost, "/vault/unlock-ip", map[string]string{"ipAddress": "198.51.100.1"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/admin/vault/events?ip=203.0.113.7&limit=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	evs := decode[struct {
		Events []struct {
			Kind  string `json:"kind"`
			Actor string `json:"actor"`
		} `json:"events"`
	}](t, rec).Events
	require.Len(t, evs, 2)
	require.Equal(t, "ip_unlocked", evs[0].Kind)
	require.Equal(t, "ops@example.com", evs[0].Actor)
	require.Equal(t, "ip_locked", evs[1].Kind)

	rec = h.do(http.MethodGet, "/admin/vault/events?limit=-1", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	h.cookie = nil
	rec = h.do(http.MethodPost, "/vault/check-ip", nil, ip)
	require.False(t, decode[map[string]any](t, rec)["locked"].(bool))
}

func TestEndToEnd_CreateWithoutUserTableUsesDefault(t *testing.T) {
	h := newHarness(t)
	h.login()
	id, _ := h.createDatabase("acme")

	rec := h.do(http.MethodGet, "/admin/databases", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dbs := decode[struct {
		Databases []struct {
			ID        string `json:"id"`
			UserTable string `json:"userTable"`
		} `json:"databases"`
	}](t, rec).Databases
	require.Len(t, dbs, 1)
	require.Equal(t, id, dbs[0].ID)
	require.Equal(t, "users", dbs[0].UserTable)
}

func TestRouter_PreflightAndMethods(t *testing.T) {
	h := newHarness(t)
	origin := map[string]string{"Origin": "https://tenant.example", "Access-Control-Request-Method": "POST"}

	rec := h.do(http.MethodOptions, "/send-verification", nil, origin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// el vault sólo acepta su origen
	rec = h.do(http.MethodOptions, "/vault/check-ip", nil, origin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = h.do(http.MethodOptions, "/vault/unlock-ip", nil, origin)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(http.MethodGet, "/send-verification", nil, nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(http.MethodGet, "/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestBuild_UnknownStorageDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"
	_, err := Build(context.Background(), cfg, Options{})
	require.Error(t, err)
}

func TestReadyz(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}
