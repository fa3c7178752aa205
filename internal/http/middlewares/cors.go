package middlewares

import (
	"net/http"
	"strings"
)

// CORSConfig configura WithCORS.
type CORSConfig struct {
	// Orígenes permitidos. "*" = cualquiera.
	Allowed []string
	// Métodos anunciados en el preflight.
	Methods string
	// Credentials agrega Access-Control-Allow-Credentials.
	Credentials bool
}

// WithCORS maneja CORS y responde los preflight OPTIONS con 204.
// Con un origen no permitido no se agregan cabeceras; el browser corta.
func WithCORS(cfg CORSConfig) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, 0, len(cfg.Allowed))
	for _, v := range cfg.Allowed {
		if v = trim(v); v != "" {
			alist = append(alist, v)
		}
	}
	methods := cfg.Methods
	if methods == "" {
		methods = "GET,POST,OPTIONS"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))
			allowedOrigin := ""
			for _, a := range alist {
				if a == "*" {
					allowedOrigin = "*"
					if origin != "" && cfg.Credentials {
						allowedOrigin = origin
					}
					break
				}
				if origin != "" && strings.EqualFold(origin, a) {
					allowedOrigin = origin
					break
				}
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if allowedOrigin != "" {
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				if cfg.Credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Remaining, X-RateLimit-Limit, Retry-After")
				h.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
