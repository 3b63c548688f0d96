package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/momohouse/pos/internal/auth"
	"github.com/rs/zerolog/log"
)

type contextKey string

const claimsKey contextKey = "claims"

var (
	errNoAuthHeader   = errors.New("missing authorization header")
	errBadAuthHeader  = errors.New("invalid authorization format")
	errTokenExpired   = errors.New("token expired")
	errTokenRejected  = errors.New("invalid token")
	errNotSignedIn    = errors.New("not authenticated")
	errRoleNotAllowed = errors.New("insufficient permissions")
)

// bearerToken pulls the token out of "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errNoAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errBadAuthHeader
	}
	return token, nil
}

// Authenticate admits requests carrying a valid terminal token and puts its
// claims in the request context. An expired token gets its own message so
// the till knows to sign in again rather than report a fault.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				deny(w, http.StatusUnauthorized, err)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
				if errors.Is(err, jwt.ErrTokenExpired) {
					deny(w, http.StatusUnauthorized, errTokenExpired)
					return
				}
				deny(w, http.StatusUnauthorized, errTokenRejected)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole lets through terminals signed in with one of roles. It must
// run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			switch {
			case claims == nil:
				deny(w, http.StatusUnauthorized, errNotSignedIn)
			case !allowed[claims.Role]:
				log.Debug().Str("terminal", claims.Terminal).Str("role", claims.Role).Str("path", r.URL.Path).Msg("role not allowed")
				deny(w, http.StatusForbidden, errRoleNotAllowed)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the signed-in terminal, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func deny(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
