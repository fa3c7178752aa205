package authmanager

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// handleError traduce errores del service al AppError correspondiente.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *httperrors.AppError
	switch {
	case errors.Is(err, svc.ErrMissingFields),
		errors.Is(err, svc.ErrMissingToken),
		errors.Is(err, svc.ErrMissingUserID):
		appErr = httperrors.ErrMissingFields.WithMessage(err.Error())
	case errors.Is(err, svc.ErrInvalidToken):
		appErr = httperrors.ErrInvalidToken
	case errors.Is(err, svc.ErrInvalidTokenType):
		appErr = httperrors.ErrInvalidTokenType
	case errors.Is(err, svc.ErrTokenUsed):
		appErr = httperrors.ErrTokenUsed
	case errors.Is(err, svc.ErrTokenExpired):
		appErr = httperrors.ErrTokenExpired
	case errors.Is(err, svc.ErrTokenTenantMismatch):
		appErr = httperrors.ErrTokenWrongTenant
	case errors.Is(err, svc.ErrUserNotFound):
		appErr = httperrors.ErrUserNotFound
	case errors.Is(err, svc.ErrSendFailed):
		appErr = httperrors.ErrSendFailed.WithCause(err)
	default:
		logger.From(r.Context()).Error("request failed", logger.Layer("controller"), logger.Err(err))
		appErr = httperrors.Internal(err)
	}
	httperrors.WriteError(w, appErr)
}
