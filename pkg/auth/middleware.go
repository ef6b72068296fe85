package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/surenss861/riskmate-sub004/pkg/api"
	"github.com/surenss861/riskmate-sub004/pkg/identity"
)

// JWTValidator checks EdDSA bearer tokens against a KeySet.
type JWTValidator struct {
	KeySet identity.KeySet
}

// Claims carry the signer identity. Name and Title are what a signature records as
// signer_name and signer_title.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	Name     string   `json:"name,omitempty"`
	Title    string   `json:"title,omitempty"`
}

// NewJWTValidator returns nil for a nil KeySet, which the middleware treats as
// "authentication not configured".
func NewJWTValidator(ks identity.KeySet) *JWTValidator {
	if ks == nil {
		return nil
	}
	return &JWTValidator{KeySet: ks}
}

var errUnconfigured = errors.New("validator uninitialized")

// Validate parses tokenStr. Tokens must be EdDSA and carry an expiry.
func (v *JWTValidator) Validate(tokenStr string) (*Claims, error) {
	if v == nil || v.KeySet == nil {
		return nil, errUnconfigured
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.KeySet.KeyFunc(),
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// bindingProblem reports a token that verifies but cannot identify a signer.
func (c *Claims) bindingProblem() string {
	switch {
	case c.Subject == "":
		return "Token subject is required"
	case c.TenantID == "":
		return "Token tenant binding is required"
	}
	return ""
}

// Principal builds the request principal. A token without a display name signs
// as its subject.
func (c *Claims) Principal() *BasePrincipal {
	name := c.Name
	if name == "" {
		name = c.Subject
	}
	return &BasePrincipal{
		ID:       c.Subject,
		TenantID: c.TenantID,
		Roles:    c.Roles,
		Name:     name,
		Title:    c.Title,
	}
}

// Probes stay reachable without a token.
var publicPaths = map[string]bool{
	"/health":    true,
	"/readiness": true,
}

// bearerToken extracts the token, or a problem detail describing why it cannot.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Missing Authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", "Invalid Authorization header format (expected 'Bearer <token>')"
	}
	return token, ""
}

// NewMiddleware authenticates every non-public request and stores the principal in
// the request context. A nil validator rejects everything.
func NewMiddleware(validator *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, problem := bearerToken(r)
			if problem != "" {
				api.WriteUnauthorized(w, problem)
				return
			}
			if validator == nil {
				api.WriteUnauthorized(w, "Authentication not configured")
				return
			}
			claims, err := validator.Validate(token)
			if err != nil {
				api.WriteUnauthorized(w, "Invalid or expired token")
				return
			}
			if problem := claims.bindingProblem(); problem != "" {
				api.WriteUnauthorized(w, problem)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Principal())))
		})
	}
}
