// Package health contiene el controller para /readyz.
package health

import (
	"net/http"

	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/health"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

type HealthController struct {
	service svc.HealthService
}

func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Readyz maneja GET /readyz. Degradado responde 503.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	res := c.service.Check(r.Context())
	status := http.StatusOK
	if res.Status != "ok" {
		unavailable := httperrors.ErrServiceUnavailable
		status, res.Error, res.Code = unavailable.HTTPStatus, unavailable.Message, unavailable.Code
	}
	logger.From(r.Context()).Debug("health check completed", logger.String("status", res.Status))
	helpers.WriteJSON(w, status, res)
}
