package middlewares

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/security/adminsession"
)

// SessionValidator valida la cookie de sesión admin.
type SessionValidator interface {
	Validate(raw string) (*adminsession.Claims, error)
}

// RequireAdminSession exige una cookie de sesión admin válida y deja el
// email del operador en el contexto.
func RequireAdminSession(v SessionValidator, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithMessage("admin session required"))
				return
			}
			claims, err := v.Validate(c.Value)
			if err != nil {
				if errors.Is(err, adminsession.ErrExpiredSession) {
					httperrors.WriteError(w, httperrors.ErrSessionExpired)
					return
				}
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithMessage("invalid admin session"))
				return
			}

			ctx := WithAdmin(r.Context(), claims.Email())
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.String("admin", claims.Email())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
