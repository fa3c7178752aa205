package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVaultEventsCmd_BuildsQuery(t *testing.T) {
	var gotPath, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		if c, err := r.Cookie("admin_session"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	cl := &client{BaseURL: srv.URL, Session: "s3ss", CookieName: "admin_session", HTTP: srv.Client()}
	cmd := vaultEventsCmd(cl)
	cmd.SetArgs([]string{"203.0.113.7", "--limit", "5"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "/admin/vault/events?ip=203.0.113.7&limit=5", gotPath)
	require.Equal(t, "s3ss", gotCookie)

	cmd = vaultEventsCmd(cl)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "/admin/vault/events", gotPath)
}

func TestClientCall_NonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	cl := &client{BaseURL: srv.URL, CookieName: "admin_session", HTTP: srv.Client()}
	err := cl.call("events", http.MethodGet, "/admin/vault/events", nil)
	require.ErrorContains(t, err, "status=403")
}
