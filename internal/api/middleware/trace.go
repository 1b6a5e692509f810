package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// TraceMiddleware assigns every request a trace id. An id supplied by the
// caller is trusted so retries across services share one trail; otherwise a
// fresh UUID is minted. The id is echoed in the response header and stored
// in the request context.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(traceHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(traceHeader, id)

		ctx := context.WithValue(r.Context(), traceContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
