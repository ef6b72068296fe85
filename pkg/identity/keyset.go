package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// KeySet verifies bearer tokens.
type KeySet interface {
	// KeyFunc returns the key for verification based on the token header.
	KeyFunc() jwt.Keyfunc
}

// SigningKeySet can also mint tokens. Production deployments only verify; issuing
// tokens is reserved for local development and tests.
type SigningKeySet interface {
	KeySet
	Sign(ctx context.Context, claims jwt.Claims) (string, error)
}

// KeyID derives a stable kid from a public key.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "key-" + hex.EncodeToString(sum[:8])
}

// InMemoryKeySet holds private keys in memory and supports rotation.
type InMemoryKeySet struct {
	mu         sync.RWMutex
	currentKID string
	keys       map[string]ed25519.PrivateKey
	order      []string
}

// maxRetainedKeys bounds how many rotated keys still verify.
const maxRetainedKeys = 10

func NewInMemoryKeySet() (*InMemoryKeySet, error) {
	ks := &InMemoryKeySet{keys: make(map[string]ed25519.PrivateKey)}
	if err := ks.Rotate(); err != nil {
		return nil, err
	}
	return ks, nil
}

// NewInMemoryKeySetFromSeed builds a key set with one deterministic key, so a dev token
// minted by the CLI verifies against RISKMATE_JWT_PUBLIC_KEY.
func NewInMemoryKeySetFromSeed(seed []byte) (*InMemoryKeySet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	ks := &InMemoryKeySet{keys: make(map[string]ed25519.PrivateKey)}
	ks.add(ed25519.NewKeyFromSeed(seed))
	return ks, nil
}

func (ks *InMemoryKeySet) Rotate() error {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.add(privateKey)
	return nil
}

// add must be called with mu held or before the set is shared.
func (ks *InMemoryKeySet) add(key ed25519.PrivateKey) {
	kid := KeyID(key.Public().(ed25519.PublicKey))
	if _, exists := ks.keys[kid]; !exists {
		ks.order = append(ks.order, kid)
	}
	ks.keys[kid] = key
	ks.currentKID = kid

	for len(ks.order) > maxRetainedKeys {
		delete(ks.keys, ks.order[0])
		ks.order = ks.order[1:]
	}
}

// PublicKey returns the active verification key.
func (ks *InMemoryKeySet) PublicKey() ed25519.PublicKey {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.keys[ks.currentKID].Public().(ed25519.PublicKey)
}

func (ks *InMemoryKeySet) Sign(ctx context.Context, claims jwt.Claims) (string, error) {
	ks.mu.RLock()
	key := ks.keys[ks.currentKID]
	kid := ks.currentKID
	ks.mu.RUnlock()

	if key == nil {
		return "", fmt.Errorf("no active key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

func (ks *InMemoryKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing kid in header")
		}

		ks.mu.RLock()
		defer ks.mu.RUnlock()
		key, exists := ks.keys[kid]
		if !exists {
			return nil, fmt.Errorf("key not found: %s", kid)
		}
		return key.Public(), nil
	}
}

// PublicKeySet verifies tokens against a single configured Ed25519 public key.
type PublicKeySet struct {
	kid string
	key ed25519.PublicKey
}

// NewPublicKeySetFromHex parses a hex-encoded Ed25519 public key.
func NewPublicKeySetFromHex(encoded string) (*PublicKeySet, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	pub := ed25519.PublicKey(raw)
	return &PublicKeySet{kid: KeyID(pub), key: pub}, nil
}

// KeyFunc accepts tokens without a kid; a kid that is present must match.
func (ks *PublicKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if kid, ok := token.Header["kid"].(string); ok && kid != ks.kid {
			return nil, fmt.Errorf("key not found: %s", kid)
		}
		return ks.key, nil
	}
}
