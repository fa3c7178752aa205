package admin

import (
	"errors"
	"net/http"
	"time"

	dto "github.com/dropDatabas3/authmanager/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/admin"
)

// CookieConfig describe la cookie de sesión admin.
type CookieConfig struct {
	Name   string
	Secure bool
}

type SessionController struct {
	service svc.SessionService
	cookie  CookieConfig
}

func NewSessionController(service svc.SessionService, cookie CookieConfig) *SessionController {
	if cookie.Name == "" {
		cookie.Name = "admin_session"
	}
	return &SessionController{service: service, cookie: cookie}
}

// Login maneja POST /admin/session
func (c *SessionController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithMessage("email and password are required"))
		return
	}

	raw, exp, err := c.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, svc.ErrInvalidLogin) {
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithMessage(err.Error()))
		return
	}
	if err != nil {
		httperrors.WriteError(w, httperrors.Internal(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookie.Name,
		Value:    raw,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{Email: req.Email, ExpiresAt: exp})
}

// Logout maneja DELETE /admin/session. Es idempotente.
func (c *SessionController) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
