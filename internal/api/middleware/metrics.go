package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tradeyard/vendor-ledger/internal/observability"
)

// MetricsMiddleware feeds request outcomes into the Prometheus histograms.
// The chi route pattern is used as the label so parameterized paths collapse
// into one series.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		probe := &responseProbe{ResponseWriter: w}

		next.ServeHTTP(probe, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		observability.ObserveHTTP(r.Method, route, probe.statusOrOK(), time.Since(start))
	})
}
