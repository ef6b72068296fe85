package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/surenss861/riskmate-sub004/pkg/identity"
)

// IssueToken mints a bearer token for p. Used by the dev CLI and tests.
func IssueToken(ctx context.Context, ks identity.SigningKeySet, p BasePrincipal, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    "riskmate-dev",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: p.TenantID,
		Roles:    p.Roles,
		Name:     p.Name,
		Title:    p.Title,
	}
	return ks.Sign(ctx, claims)
}
