// internal/middleware/accesslog.go
//
// Access log, request metrics, and panic recovery.
//
// AccessLog must run after chi's RequestID middleware.  It installs a
// request-scoped logger carrying request_id, so handlers logging through
// logger.FromContext are correlated with the access line.  The route label
// uses the chi pattern ("/api/v1/prompts/{id}/vote"), never the raw path,
// to keep metric cardinality bounded.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/gtmskills/internal/logger"
	"github.com/yanizio/gtmskills/internal/metrics"
)

// AccessLog logs one line per request and observes latency.
func AccessLog(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := base.With("request_id", chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				if rec := recover(); rec != nil {
					reqLog.Errorw("panic", "panic", rec, "path", r.URL.Path)
					if ww.Status() == 0 {
						http.Error(ww, http.StatusText(http.StatusInternalServerError),
							http.StatusInternalServerError)
					}
				}

				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				route := "unmatched"
				if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				dur := time.Since(start)
				metrics.HTTPRequestDuration.
					WithLabelValues(route, r.Method, strconv.Itoa(status)).
					Observe(dur.Seconds())
				reqLog.Infow("http request",
					"method", r.Method,
					"route", route,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration_ms", dur.Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))
		})
	}
}
