package middleware

import (
	"context"

	"github.com/baharkarakas/bankmore/internal/auth"
)

type claimsKey struct{}

func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// GetClaims returns the authenticated caller, if any.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok && c != nil
}
