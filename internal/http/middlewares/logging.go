package middlewares

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// WithLogging deja en el contexto un logger con request_id, method y path, y
// al terminar loguea una línea por request. El nivel depende del status:
// 5xx error, 4xx warn, resto info.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				logger.Status(status),
				logger.Bytes(ww.BytesWritten()),
				logger.DurationMs(time.Since(start).Milliseconds()),
			}
			if status >= 500 {
				reqLog.Error("request failed", fields...)
			} else if status >= 400 {
				reqLog.Warn("request rejected", fields...)
			} else {
				reqLog.Info("request completed", fields...)
			}
		})
	}
}
