package middleware

import (
	"net/http"
	"strings"

	"github.com/baharkarakas/bankmore/internal/api/httpx"
	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/auth"
)

type AuthMiddleware struct {
	TM *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{TM: tm}
}

func unauthorized(w http.ResponseWriter, msg string) {
	httpx.WriteProblem(w, http.StatusUnauthorized, string(apperr.UserUnauthorized), msg)
}

// Auth requires "Authorization: Bearer <JWT>" and stores the claims in the
// request context.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}
		claims, err := m.TM.Parse(strings.TrimSpace(ah[7:]))
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
