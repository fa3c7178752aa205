package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":              "/",
		"/verify-email": "/verify-email",
		"/admin/databases/3f2b1c9e-8d7a-4b6c-9e1f-0a2b3c4d5e6f/deactivate": "/admin/databases/:id/deactivate",
		"/admin/databases/42/bans?x=1":                                     "/admin/databases/:id/bans",
		"/x/01HZX3K9Q4V7N8M2P5R6S7T8W9":                                    "/x/:id",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizePath(in), in)
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(MetricsConfig{Registry: reg})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/admin/databases/{id}/deactivate", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/databases/"+id+"/deactivate", nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(),
		`http_requests_total{method="POST",route="/admin/databases/{id}/deactivate",status="204"} 3`)

	// un segundo registro sobre el mismo registry falla
	_, err = NewMetrics(MetricsConfig{Registry: reg})
	require.Error(t, err)
}
