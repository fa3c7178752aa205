package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting. "" salta el límite.
type RateKeyFunc func(r *http.Request) string

// RateLimitConfig configura el comportamiento del middleware de rate limiting.
type RateLimitConfig struct {
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
	// IPs o database ids que nunca se limitan. También acepta la clave
	// completa ("ip:1.2.3.4").
	Whitelist []string
}

// DatabaseRateKey limita por base autenticada. Va después de RequireServiceRole.
func DatabaseRateKey(r *http.Request) string {
	if db := GetDatabase(r.Context()); db != nil {
		return "db:" + db.ID + "|" + r.URL.Path
	}
	return ""
}

// IPRateKey limita por IP de cliente.
func IPRateKey(clientIP func(*http.Request) string) RateKeyFunc {
	return func(r *http.Request) string { return "ip:" + clientIP(r) + "|" + r.URL.Path }
}

// WithRateLimit corta con 429 y Retry-After cuando se excede el límite.
// Un error del limiter deja pasar el request.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil || cfg.KeyFunc == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	skip := make(map[string]struct{}, len(cfg.Whitelist))
	for _, k := range cfg.Whitelist {
		skip[k] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if whitelisted(skip, key) {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error, allowing request", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				secs := int(res.RetryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// whitelisted compara la lista contra la clave, el sujeto ("ip:1.2.3.4") y
// el id pelado ("1.2.3.4"). Formato de clave: "<tipo>:<id>|<path>".
func whitelisted(skip map[string]struct{}, key string) bool {
	if len(skip) == 0 {
		return false
	}
	subject, _, _ := strings.Cut(key, "|")
	_, id, _ := strings.Cut(subject, ":")
	for _, k := range []string{key, subject, id} {
		if _, ok := skip[k]; ok && k != "" {
			return true
		}
	}
	return false
}
