package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseProbe captures the status code and body size written by a handler
// so logging and metrics middleware can report on the finished response.
type responseProbe struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (p *responseProbe) WriteHeader(code int) {
	if p.status == 0 {
		p.status = code
	}
	p.ResponseWriter.WriteHeader(code)
}

func (p *responseProbe) Write(b []byte) (int, error) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	n, err := p.ResponseWriter.Write(b)
	p.bytes += n
	return n, err
}

func (p *responseProbe) statusOrOK() int {
	if p.status == 0 {
		return http.StatusOK
	}
	return p.status
}

// LoggingMiddleware writes one structured line per request, tagged with the
// trace id so log lines can be joined with problem responses.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			probe := &responseProbe{ResponseWriter: w}

			next.ServeHTTP(probe, r)

			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", probe.statusOrOK()),
				zap.Int("bytes", probe.bytes),
				zap.String("remote", r.RemoteAddr),
				zap.String("trace_id", TraceIDFromContext(r.Context())),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
