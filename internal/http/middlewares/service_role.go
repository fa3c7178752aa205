package middlewares

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	"github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// RequireServiceRole autentica el bearer contra las bases activas y deja la
// base en el contexto. El logger del request suma database_id.
func RequireServiceRole(gate authmanager.Gate) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := helpers.BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="authmanager"`)
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithMessage("missing or malformed authorization header"))
				return
			}

			db, err := gate.Authenticate(r.Context(), raw)
			if err != nil {
				if errors.Is(err, authmanager.ErrInvalidCredential) || errors.Is(err, authmanager.ErrMissingCredential) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="authmanager", error="invalid_token"`)
					httperrors.WriteError(w, httperrors.ErrInvalidCredential)
					return
				}
				logger.From(r.Context()).Error("service role lookup failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.Internal(err))
				return
			}

			ctx := WithDatabase(r.Context(), db)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.DatabaseID(db.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
