package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError es el error estándar de la capa HTTP.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, sólo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// Wrap crea un AppError envolviendo un error existente
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
	}
}

// Internal arma un 500 que expone el mensaje del error subyacente.
func Internal(err error) *AppError {
	if err == nil {
		return ErrInternal
	}
	return Wrap(err, http.StatusInternalServerError, ErrInternal.Code, err.Error())
}

// FromError convierte cualquier error en AppError. Lo que no sea AppError es un 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// WithMessage devuelve una COPIA con otro mensaje (no muta las variables globales).
func (e *AppError) WithMessage(msg string) *AppError {
	newErr := *e
	newErr.Message = msg
	return &newErr
}

// WithCause devuelve una COPIA con la causa seteada.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

// 400
var (
	ErrBadRequest    = New(http.StatusBadRequest, "BAD_REQUEST", "bad request")
	ErrInvalidJSON   = New(http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
	ErrMissingFields = New(http.StatusBadRequest, "MISSING_FIELDS", "missing required fields")

	ErrInvalidToken     = New(http.StatusBadRequest, "INVALID_TOKEN", "invalid token")
	ErrInvalidTokenType = New(http.StatusBadRequest, "INVALID_TOKEN_TYPE", "invalid token type")
	ErrTokenUsed        = New(http.StatusBadRequest, "TOKEN_USED", "token already used")
	ErrTokenExpired     = New(http.StatusBadRequest, "TOKEN_EXPIRED", "token expired")
)

// 401 / 403
var (
	ErrUnauthorized      = New(http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	ErrInvalidCredential = New(http.StatusUnauthorized, "INVALID_CREDENTIAL", "invalid service role key")
	ErrSessionExpired    = New(http.StatusUnauthorized, "SESSION_EXPIRED", "admin session expired")
	ErrTokenWrongTenant  = New(http.StatusForbidden, "TOKEN_TENANT_MISMATCH", "token does not belong to this database")
)

// 404 / 405 / 409 / 429
var (
	ErrNotFound          = New(http.StatusNotFound, "NOT_FOUND", "not found")
	ErrUserNotFound      = New(http.StatusNotFound, "USER_NOT_FOUND", "user not found")
	ErrMethodNotAllowed  = New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	ErrConflict          = New(http.StatusConflict, "CONFLICT", "resource already exists")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
)

// 5xx
var (
	ErrInternal           = New(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	ErrSendFailed         = New(http.StatusInternalServerError, "SEND_FAILED", "failed to send email")
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable")
)
