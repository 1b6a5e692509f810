package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tradeyard/vendor-ledger/internal/api/problem"
)

type contextKey string

const (
	userContextKey  contextKey = "user_id"
	roleContextKey  contextKey = "user_role"
	traceContextKey contextKey = "trace_id"
)

// Signing configuration is process-wide and set once from config during startup.
var (
	jwtSecret   []byte
	jwtIssuer   string
	jwtAudience string
)

// SetJWTSecret installs the HS256 key used to verify bearer tokens.
func SetJWTSecret(secret string) {
	if secret == "" {
		return
	}
	jwtSecret = []byte(secret)
}

// SetJWTValidation pins the issuer and audience a token must carry. Empty
// values disable the corresponding check.
func SetJWTValidation(issuer, audience string) {
	jwtIssuer = strings.TrimSpace(issuer)
	jwtAudience = strings.TrimSpace(audience)
}

// ledgerClaims carries the identity fields tokens are minted with. Vendor
// tokens set user_id to the vendor id; admin tokens carry role "admin".
type ledgerClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var errBadToken = errors.New("token rejected")

func verifyBearer(r *http.Request) (*ledgerClaims, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, errBadToken
	}

	claims := &ledgerClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtIssuer))
	}
	if jwtAudience != "" {
		opts = append(opts, jwt.WithAudience(jwtAudience))
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, errBadToken
	}
	if claims.UserID == "" {
		return nil, errBadToken
	}
	// A sub claim, when present, must agree with user_id.
	if claims.Subject != "" && claims.Subject != claims.UserID {
		return nil, errBadToken
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(jwtSecret) == 0 {
			problem.Write(w, r, http.StatusInternalServerError, problem.Type("auth/misconfigured"), "", "token verification is not configured")
			return
		}
		claims, err := verifyBearer(r)
		if err != nil {
			problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token"), "", "a valid bearer token is required")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, claims.UserID)
		ctx = context.WithValue(ctx, roleContextKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose token role does not match.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserRoleFromContext(r.Context()) != role {
				problem.Write(w, r, http.StatusForbidden, problem.Type("auth/insufficient-permissions"), "", "this operation requires the "+role+" role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request did not pass AuthMiddleware.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userContextKey).(string)
	return v
}

// UserRoleFromContext returns the role claim of the authenticated user.
func UserRoleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(roleContextKey).(string)
	return v
}

// TraceIDFromContext returns the trace id assigned by TraceMiddleware.
func TraceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(traceContextKey).(string)
	return v
}
