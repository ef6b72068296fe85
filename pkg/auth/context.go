package auth

import (
	"context"
	"errors"
)

type principalKey struct{}

// ErrNoPrincipal means the request was not authenticated.
var ErrNoPrincipal = errors.New("no principal in context")

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func GetPrincipal(ctx context.Context) (Principal, error) {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok && p != nil {
		return p, nil
	}
	return nil, ErrNoPrincipal
}

// GetTenantID returns the caller's tenant. Audit events use it to attribute records.
func GetTenantID(ctx context.Context) (string, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return "", err
	}
	return p.GetTenantID(), nil
}
