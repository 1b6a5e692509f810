package middleware

import (
	"net/http"

	"github.com/tradeyard/vendor-ledger/internal/api/problem"
	"go.uber.org/zap"
)

// RecoverMiddleware turns handler panics into 500 problem responses so a
// single bad request cannot take the process down with it.
func RecoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("trace_id", TraceIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				problem.Write(w, r, http.StatusInternalServerError, problem.Type("internal"), "", "unexpected server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
