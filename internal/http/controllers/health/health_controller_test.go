package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/authmanager/internal/http/dto/health"
)

type stubHealth struct{ res dto.ReadyResponse }

func (s stubHealth) Check(context.Context) dto.ReadyResponse { return s.res }

func TestReadyz_DegradedUsesUnavailableEnvelope(t *testing.T) {
	c := NewHealthController(stubHealth{res: dto.ReadyResponse{
		Status:     "degraded",
		Components: map[string]string{"store": "down"},
	}})
	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
	require.Equal(t, "service unavailable", body["error"])
	require.Equal(t, "degraded", body["status"])
	require.Equal(t, "down", body["components"].(map[string]any)["store"])
}

func TestReadyz_OKHasNoErrorFields(t *testing.T) {
	c := NewHealthController(stubHealth{res: dto.ReadyResponse{Status: "ok", Components: map[string]string{}}})
	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotContains(t, body, "code")
	require.NotContains(t, body, "error")
}
