package jwt

import (
	"context"
	"net/http"
	"strings"

	"delivery-realtime/internal/domain/user"
	"delivery-realtime/internal/general/httpx"
	"delivery-realtime/internal/general/logger"
)

// BearerToken reads "Authorization: Bearer <token>", falling back to the
// `token` and `Authorization` query parameters used by WebSocket clients.
func BearerToken(r *http.Request) (string, error) {
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(tok), nil
	}

	q := r.URL.Query()
	if tok := strings.TrimSpace(q.Get("token")); tok != "" {
		return tok, nil
	}
	if param := strings.TrimSpace(q.Get("Authorization")); param != "" {
		return strings.TrimSpace(strings.TrimPrefix(param, "Bearer ")), nil
	}
	return "", ErrNoToken
}

// RequireRoles guards an HTTP route: the bearer token must verify and carry one
// of roles. Rejections use the JSON error body of every other route; the
// verified claims ride in the request context.
func RequireRoles(mgr *Manager, log *logger.Logger, roles ...user.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := httpx.WithRequestID(log, r)

			raw, err := BearerToken(r)
			if err != nil {
				httpx.Error(ctx, log, w, http.StatusUnauthorized, "missing bearer token", err)
				return
			}
			claims, err := mgr.Verify(raw)
			if err != nil {
				httpx.Error(ctx, log, w, http.StatusUnauthorized, "invalid token", err)
				return
			}
			if !claims.HasRole(roles...) {
				httpx.Error(ctx, log, w, http.StatusForbidden, "role "+claims.Role.String()+" may not call this endpoint", ErrRoleForbidden)
				return
			}

			next(w, r.WithContext(WithClaims(r.Context(), claims)))
		}
	}
}

type ctxKey struct{}

// WithClaims stores verified claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFromContext returns the claims stored by RequireRoles.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}
