// internal/middleware/requestlog.go
//
// Request-scoped logging.
//
// Context
// -------
// RequestLog derives a child of the base logger carrying the chi request id
// and the account (once known), stores it in the request context, and writes
// one access line per request after the handler returns.  Handlers and the
// audit trail retrieve it with logger.FromContext.
//
// Notes
// -----
// • Must run after chi's RequestID middleware.
// • 5xx responses log at error level, everything else at info.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/logger"
)

// RequestLog returns middleware that attaches a request logger and records
// an access line.
func RequestLog(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With("request_id", chimw.GetReqID(r.Context()))
			r = r.WithContext(logger.WithContext(r.Context(), l))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", code,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"actor", auth.Actor(r.Context()),
			}
			if code >= http.StatusInternalServerError {
				l.Errorw("request", fields...)
				return
			}
			l.Infow("request", fields...)
		})
	}
}
