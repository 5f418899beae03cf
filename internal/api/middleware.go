package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// requestLogger tags the request with an id (taken from X-Request-ID or
// generated), stores a logger carrying it in the context, and logs and
// measures the request once it has been served.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(reqID); err != nil {
				reqID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, reqID)

			log := base.With("request_id", reqID)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), log)))

			route := routePattern(r)
			elapsed := time.Since(start)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			log.Debug("http request",
				"method", r.Method,
				"route", route,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", elapsed,
			)
		})
	}
}

// routePattern keeps metric label cardinality bounded by reporting the
// matched pattern, not the raw path.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}

	if p := rctx.RoutePattern(); p != "" {
		return p
	}

	return "unmatched"
}
