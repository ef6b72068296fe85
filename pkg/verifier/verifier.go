// Package verifier checks stored signature records against their bound fields.
//
// Verification is a local, CPU-only recomputation. The verifier does not read storage
// and does not care which field was edited: it recomputes the signature hash from the
// record's own fields and compares it with the stored one.
package verifier

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/sighash"
)

// ErrTamperedSignature is what a negative Result converts to via Err. It is an audit
// finding, never a transient fault.
var ErrTamperedSignature = errors.New("signature no longer matches the sealed report")

// Reason explains a negative Result.
type Reason string

const (
	ReasonTampered     Reason = "tampered"
	ReasonLegacyScheme Reason = "legacy_scheme"
	// ReasonInvalidRecord marks a stored record that cannot be recomputed at all, such
	// as one naming an unknown hash_scheme. It points at a data or caller bug rather
	// than an edit after signing.
	ReasonInvalidRecord Reason = "invalid_record"
)

// Result is the outcome of verifying one record.
type Result struct {
	Valid    bool           `json:"valid"`
	Reason   Reason         `json:"reason,omitempty"`
	Scheme   sighash.Scheme `json:"scheme"`
	Stored   string         `json:"stored_hash"`
	Computed string         `json:"computed_hash,omitempty"`
}

// Err returns nil for a valid result and ErrTamperedSignature otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w (%s)", ErrTamperedSignature, r.Reason)
}

// Verifier holds verification policy. The zero value is not usable; call New.
type Verifier struct {
	allowLegacy bool
	now         func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLegacy controls whether records bound with sighash.SchemeV1 are accepted.
// Legacy records are accepted by default.
func WithLegacy(allow bool) Option {
	return func(v *Verifier) { v.allowLegacy = allow }
}

// WithClock sets the clock used to timestamp reports.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New creates a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{allowLegacy: true, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultVerifier = New()

// VerifySignature verifies rec with the default policy.
func VerifySignature(rec contracts.SignatureRecord) (Result, error) {
	return defaultVerifier.Verify(rec)
}

// Verify recomputes rec's signature hash and compares it with the stored value.
// An error is returned only for malformed input (sighash.ErrInvalidInput); tampering
// is reported through the Result.
func (v *Verifier) Verify(rec contracts.SignatureRecord) (Result, error) {
	scheme, err := sighash.ParseScheme(rec.HashScheme)
	if err != nil {
		return Result{}, err
	}
	return v.verify(scheme, rec.HashInputs(), rec.SignatureHash)
}

// VerifyMap verifies a loosely typed record such as a decoded JSON body. The map
// carries the bound fields plus signature_hash and an optional hash_scheme.
func (v *Verifier) VerifyMap(m map[string]any) (Result, error) {
	in, err := sighash.InputsFromMap(m)
	if err != nil {
		return Result{}, err
	}

	stored, ok := m["signature_hash"].(string)
	if !ok {
		return Result{}, fmt.Errorf("%w: signature_hash must be a string", sighash.ErrInvalidInput)
	}

	label := ""
	if raw, present := m["hash_scheme"]; present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return Result{}, fmt.Errorf("%w: hash_scheme must be a string", sighash.ErrInvalidInput)
		}
		label = s
	}
	scheme, err := sighash.ParseScheme(label)
	if err != nil {
		return Result{}, err
	}

	return v.verify(scheme, in, stored)
}

func (v *Verifier) verify(scheme sighash.Scheme, in sighash.Inputs, stored string) (Result, error) {
	res := Result{Scheme: scheme, Stored: stored}

	if scheme == sighash.SchemeV1 && !v.allowLegacy {
		res.Reason = ReasonLegacyScheme
		return res, nil
	}

	computed, err := sighash.ComputeWith(scheme, in)
	if err != nil {
		return Result{}, err
	}
	res.Computed = computed

	if subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1 {
		res.Valid = true
		return res, nil
	}
	res.Reason = ReasonTampered
	return res, nil
}
