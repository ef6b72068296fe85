// Package sighash binds the identifying fields of a report signature event into a
// single SHA-256 digest.
//
// Two binding schemes exist. SchemeV1 feeds every field into one hash context with no
// framing and is kept so that records written before framing was introduced still
// verify. SchemeV2 length-prefixes every field behind a domain tag and is used for all
// new signatures.
package sighash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

// ErrInvalidInput is returned when a required field is missing or has the wrong type,
// or when an unknown scheme is requested. It is a caller bug and is never retried.
var ErrInvalidInput = errors.New("sighash: invalid input")

// Scheme identifies a field binding layout.
type Scheme string

const (
	// SchemeV1 streams the raw field bytes one after another.
	SchemeV1 Scheme = "v1"
	// SchemeV2 writes a domain tag, then every field as a big-endian uint64 length
	// followed by the field bytes.
	SchemeV2 Scheme = "v2"

	// Current is the scheme used for new signatures.
	Current = SchemeV2
)

// DigestLen is the length of a hex encoded signature hash.
const DigestLen = sha256.Size * 2

const v2DomainTag = "riskmate:signature:v2"

// Inputs is the ordered set of fields a signature hash commits to.
type Inputs struct {
	DataHash      string
	ReportRunID   string
	SignatureSVG  string
	SignerName    string
	SignerTitle   string
	SignatureRole string
	// AttestationText is optional. nil and "" bind identically.
	AttestationText *string
}

// fields returns the bound values in their fixed order.
func (in Inputs) fields() [7]string {
	return [7]string{
		in.DataHash,
		in.ReportRunID,
		in.SignatureSVG,
		in.SignerName,
		in.SignerTitle,
		in.SignatureRole,
		NormalizeAttestation(in.AttestationText),
	}
}

// ParseScheme maps a stored scheme label to a Scheme. The empty label predates
// versioning and is SchemeV1.
func ParseScheme(label string) (Scheme, error) {
	switch Scheme(label) {
	case "", SchemeV1:
		return SchemeV1, nil
	case SchemeV2:
		return SchemeV2, nil
	default:
		return "", fmt.Errorf("%w: unknown hash scheme %q", ErrInvalidInput, label)
	}
}

// Compute returns the lowercase hex signature hash of in under the current scheme.
func Compute(in Inputs) (string, error) {
	return ComputeWith(Current, in)
}

// ComputeWith returns the lowercase hex signature hash of in under scheme.
func ComputeWith(scheme Scheme, in Inputs) (string, error) {
	h := sha256.New()
	switch scheme {
	case SchemeV1:
		writeStreamed(h, in.fields())
	case SchemeV2:
		writeFramed(h, in.fields())
	default:
		return "", fmt.Errorf("%w: unknown hash scheme %q", ErrInvalidInput, scheme)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeStreamed(h hash.Hash, fields [7]string) {
	for _, f := range fields {
		_, _ = io.WriteString(h, f)
	}
}

func writeFramed(h hash.Hash, fields [7]string) {
	_, _ = io.WriteString(h, v2DomainTag)
	_, _ = h.Write([]byte{0})

	var n [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(n[:], uint64(len(f)))
		_, _ = h.Write(n[:])
		_, _ = io.WriteString(h, f)
	}
}

// IsDigest reports whether s has the shape of a signature hash or sealed payload hash:
// 64 lowercase hex characters.
func IsDigest(s string) bool {
	if len(s) != DigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
