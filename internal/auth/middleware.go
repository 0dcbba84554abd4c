package auth

import (
	"context"
	"net/http"
	"strings"

	"skillswap/internal/observability"
)

type contextKey string

const claimsContextKey = contextKey("claims")

// Middleware admits requests carrying a valid access token cookie and puts
// its claims in the request context.
func Middleware(tokens *TokenService, logger *observability.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AccessCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := tokens.VerifyKind(cookie.Value, KindAccess)
		if err != nil {
			logger.Warn("access_rejected", map[string]any{
				"reason": rejectionReason(err),
				"path":   r.URL.Path,
			})
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(Claims)
	return claims, ok
}
