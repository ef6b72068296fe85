package auth

import "slices"

// Principal is the authenticated caller. Signing uses its display identity.
type Principal interface {
	GetID() string
	GetTenantID() string
	GetRoles() []string
	// GetName and GetTitle are the signer identity captured on a signature.
	GetName() string
	GetTitle() string
	HasRole(role string) bool
}

// BasePrincipal is a simple implementation of Principal.
type BasePrincipal struct {
	ID       string
	TenantID string
	Roles    []string
	Name     string
	Title    string
}

func (b *BasePrincipal) GetID() string {
	return b.ID
}

func (b *BasePrincipal) GetTenantID() string {
	return b.TenantID
}

func (b *BasePrincipal) GetRoles() []string {
	return b.Roles
}

func (b *BasePrincipal) GetName() string {
	return b.Name
}

func (b *BasePrincipal) GetTitle() string {
	return b.Title
}

func (b *BasePrincipal) HasRole(role string) bool {
	return slices.Contains(b.Roles, role)
}
