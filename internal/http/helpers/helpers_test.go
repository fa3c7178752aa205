package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardedIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/vault/check-ip", nil)
	require.Equal(t, "", ForwardedIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.9")
	require.Equal(t, "10.0.0.9", ForwardedIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", ForwardedIP(r))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")

	require.Equal(t, "192.0.2.1", ClientIP(r, false))
	require.Equal(t, "203.0.113.7", ClientIP(r, true))
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"missing":    {"", "", false},
		"basic":      {"Basic abc", "", false},
		"no token":   {"Bearer ", "", false},
		"ok":         {"Bearer sk_live_123", "sk_live_123", true},
		"lower case": {"bearer sk_live_123", "sk_live_123", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, ok := BearerToken(r)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestReadJSON(t *testing.T) {
	var dst struct {
		Token string `json:"token"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"abc","extra":1}`))
	r.Header.Set("Content-Type", "application/json")
	require.True(t, ReadJSON(httptest.NewRecorder(), r, &dst))
	require.Equal(t, "abc", dst.Token)

	rec := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	r.Header.Set("Content-Type", "application/json")
	require.False(t, ReadJSON(rec, r, &dst))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
