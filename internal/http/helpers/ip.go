package helpers

import (
	"net"
	"net/http"
	"strings"
)

// ForwardedIP devuelve la IP informada por el proxy: primer elemento de
// X-Forwarded-For y, si falta, X-Real-IP. Vacío si no hay ninguna.
func ForwardedIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first := strings.TrimSpace(strings.Split(xf, ",")[0]); first != "" {
			return first
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

// ClientIP es la IP usada para rate limiting y logs. Sólo confía en los
// headers del proxy cuando trustProxy es true.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := ForwardedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// BearerToken extrae el token de "Authorization: Bearer <token>".
// ok es false si el header falta o no tiene ese formato.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, tok, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
