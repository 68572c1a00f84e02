package middleware

import (
	"net/http"

	"github.com/baharkarakas/bankmore/internal/api/httpx"
	"github.com/baharkarakas/bankmore/internal/apperr"
)

// RequireRole lets the request through only if the caller holds one of
// roles. It must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				httpx.WriteProblem(w, http.StatusForbidden, string(apperr.UnauthorizedOperation), "operation not allowed for this caller")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
