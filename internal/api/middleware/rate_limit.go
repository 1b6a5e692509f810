package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tradeyard/vendor-ledger/internal/api/problem"
)

func rateLimited(rps int, scope string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusTooManyRequests, problem.Type("rate-limit-exceeded"), "",
			fmt.Sprintf("limit of %d requests per second exceeded for this %s", rps, scope))
	}
}

// PublicRateLimiter throttles unauthenticated routes per client IP.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithLimitHandler(rateLimited(rps, "address")),
	)
}

// AuthRateLimiter throttles authenticated routes per token identity, falling
// back to the client IP when the request carries no identity.
func AuthRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id := UserIDFromContext(r.Context()); id != "" {
				return id, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(rateLimited(rps, "account")),
	)
}
