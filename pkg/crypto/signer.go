// Package crypto signs and verifies evidence manifests with Ed25519.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/surenss861/riskmate-sub004/pkg/identity"
)

// ErrInvalidKey is returned for malformed public keys or signatures.
var ErrInvalidKey = errors.New("crypto: invalid key material")

// Ed25519Signer signs with a single private key.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	KeyID   string
}

func NewEd25519SignerFromKey(priv ed25519.PrivateKey) *Ed25519Signer {
	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  pub,
		KeyID:   identity.KeyID(pub),
	}
}

// Sign returns the hex encoded signature of data.
func (s *Ed25519Signer) Sign(data []byte) string {
	return hex.EncodeToString(ed25519.Sign(s.privKey, data))
}

// PublicKey returns the hex encoded public key.
func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.pubKey)
}

// Verify checks a hex signature against a hex public key. A well-formed but wrong
// signature is (false, nil).
func Verify(pubKeyHex, sigHex string, data []byte) (bool, error) {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key", ErrInvalidKey)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: signature", ErrInvalidKey)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}
