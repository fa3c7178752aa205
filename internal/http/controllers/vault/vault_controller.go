// Package vault contiene el controller del gate de IPs.
package vault

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	dto "github.com/dropDatabas3/authmanager/internal/http/dto/vault"
	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/vault"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

type VaultController struct {
	service svc.Service
}

func NewVaultController(service svc.Service) *VaultController {
	return &VaultController{service: service}
}

// requestIP: X-Forwarded-For, X-Real-IP, body, "unknown".
func requestIP(r *http.Request, bodyIP string) string {
	if ip := helpers.ForwardedIP(r); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(bodyIP); ip != "" {
		return ip
	}
	return svc.UnknownIP
}

// CheckIP maneja POST /vault/check-ip
func (c *VaultController) CheckIP(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckIPRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.CheckIP(r.Context(), requestIP(r, req.IPAddress))
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// RecordAttempt maneja POST /vault/record-attempt
func (c *VaultController) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordAttemptRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.RecordAttempt(r.Context(), requestIP(r, req.IPAddress), req.Success)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// UnlockIP maneja POST /vault/unlock-ip (sesión admin). La IP a habilitar
// viene siempre del body.
func (c *VaultController) UnlockIP(w http.ResponseWriter, r *http.Request) {
	var req dto.UnlockIPRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.UnlockIP(r.Context(), req.IPAddress, mw.GetAdmin(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// LockIP maneja POST /admin/vault/lock-ip
func (c *VaultController) LockIP(w http.ResponseWriter, r *http.Request) {
	var req dto.LockIPRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.LockIP(r.Context(), req.IPAddress, req.Reason, mw.GetAdmin(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// ListEvents maneja GET /admin/vault/events?ip=&limit=
func (c *VaultController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithMessage("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	res, err := c.service.ListEvents(r.Context(), q.Get("ip"), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingIP):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithMessage(err.Error()))
	case errors.Is(err, svc.ErrIPNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithMessage(err.Error()))
	default:
		logger.From(r.Context()).Error("vault request failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.Internal(err))
	}
}
