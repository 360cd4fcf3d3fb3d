package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ardiwn/go-inventory-api/internal/redisx"
)

// AuthUser is the identity resolved from a bearer token. Token issuance is
// owned by an external service; this middleware only resolves sessions.
type AuthUser struct {
	ID   string `json:"user_id"`
	Role string `json:"role"`
}

type ctxKey int

const userKey ctxKey = 0

func WithUser(ctx context.Context, u AuthUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFrom(ctx context.Context) (AuthUser, bool) {
	u, ok := ctx.Value(userKey).(AuthUser)
	return u, ok
}

// Auth resolves the Authorization bearer token against the Redis session
// store and rejects requests without a valid session.
func Auth(rdb *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token == r.Header.Get("Authorization") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			raw, err := rdb.Get(r.Context(), fmt.Sprintf(redisx.KeyToken, token)).Result()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			var u AuthUser
			if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireRole guards a route to the given roles; must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role")
		})
	}
}
