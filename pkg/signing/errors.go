package signing

import "errors"

var (
	// ErrInvalidRequest is returned for missing or malformed request fields.
	ErrInvalidRequest = errors.New("signing: invalid request")
	// ErrInvalidDataHash is returned when a run is sealed with something other than a
	// 64 character lowercase hex digest.
	ErrInvalidDataHash = errors.New("signing: data hash must be 64 lowercase hex characters")
	// ErrRunNotFound is returned for unknown runs and for runs owned by another tenant.
	ErrRunNotFound = errors.New("signing: run not found")
	// ErrRunNotSealed is returned when a run exists but its payload hash is not final.
	ErrRunNotSealed = errors.New("signing: run is not sealed")
	// ErrSignatureNotFound is returned for unknown signatures and for signatures owned
	// by another tenant.
	ErrSignatureNotFound = errors.New("signing: signature not found")
	// ErrRoleNotHeld is returned when the signer asks for a role they do not have.
	ErrRoleNotHeld = errors.New("signing: signer does not hold the requested role")
	// ErrPolicyDenied is returned when a signing rule rejects the request.
	ErrPolicyDenied = errors.New("signing: denied by policy")
)
