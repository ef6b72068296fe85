package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const (
	kdfSalt       = "riskmate-evidence-kdf"
	minMasterSize = 32
)

// TenantKeyring derives one evidence signing key per tenant from a master secret, so
// a tenant's bundles stay verifiable across restarts without storing private keys.
type TenantKeyring struct {
	master []byte

	mu      sync.Mutex
	signers map[string]*Ed25519Signer
}

// NewTenantKeyring decodes a hex master secret of at least 32 bytes.
func NewTenantKeyring(masterHex string) (*TenantKeyring, error) {
	master, err := hex.DecodeString(masterHex)
	if err != nil {
		return nil, fmt.Errorf("%w: master key is not hex", ErrInvalidKey)
	}
	if len(master) < minMasterSize {
		return nil, fmt.Errorf("%w: master key must be at least %d bytes", ErrInvalidKey, minMasterSize)
	}
	return &TenantKeyring{master: master, signers: make(map[string]*Ed25519Signer)}, nil
}

// NewEphemeralKeyring uses a random master secret. Bundles signed with it cannot be
// re-signed after a restart, so it is only for lite mode and tests.
func NewEphemeralKeyring() (*TenantKeyring, error) {
	master := make([]byte, minMasterSize)
	if _, err := rand.Read(master); err != nil {
		return nil, err
	}
	return &TenantKeyring{master: master, signers: make(map[string]*Ed25519Signer)}, nil
}

// ForTenant returns the signer for tenantID. The empty tenant has its own key.
func (k *TenantKeyring) ForTenant(tenantID string) (*Ed25519Signer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if s, ok := k.signers[tenantID]; ok {
		return s, nil
	}

	r := hkdf.New(sha256.New, k.master, []byte(kdfSalt), []byte(tenantID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("HKDF derivation failed: %w", err)
	}

	s := NewEd25519SignerFromKey(ed25519.NewKeyFromSeed(seed))
	k.signers[tenantID] = s
	return s, nil
}
