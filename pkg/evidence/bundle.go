// Package evidence exports a sealed run and its signatures as a signed, self-verifying
// bundle for auditors.
package evidence

import (
	"errors"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/merkle"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// FormatVersion is written into every manifest. Readers accept any 1.x bundle.
const FormatVersion = "1.0.0"

const supportedFormats = "^1.0.0"

var (
	ErrMalformedBundle   = errors.New("evidence: malformed bundle")
	ErrUnsupportedFormat = errors.New("evidence: unsupported bundle format")
)

// Manifest is the signed part of a bundle. Leaves commit to the run and to every
// signature record, so editing any of them after export changes MerkleRoot.
type Manifest struct {
	FormatVersion  string        `json:"format_version"`
	RunID          string        `json:"run_id"`
	TenantID       string        `json:"tenant_id,omitempty"`
	DataHash       string        `json:"data_hash"`
	SignatureCount int           `json:"signature_count"`
	MerkleRoot     string        `json:"merkle_root"`
	Leaves         []merkle.Leaf `json:"leaves"`
	Verified       bool          `json:"verified"`
	ExportedAt     time.Time     `json:"exported_at"`
	KeyID          string        `json:"key_id"`
	PublicKey      string        `json:"public_key"`
}

// Bundle is what gets stored and handed to auditors.
type Bundle struct {
	Manifest   Manifest                    `json:"manifest"`
	Run        contracts.SealedRun         `json:"run"`
	Signatures []contracts.SignatureRecord `json:"signatures"`
	Report     *verifier.Report            `json:"report"`
	// Signature is the hex Ed25519 signature over the JCS form of Manifest.
	Signature string `json:"signature"`
}

const runLeaf = "run"

func signatureLeaf(id string) string { return "signatures/" + id }

// leafEntries lists the values the Merkle tree commits to.
func leafEntries(run contracts.SealedRun, sigs []contracts.SignatureRecord) map[string]any {
	entries := make(map[string]any, len(sigs)+1)
	entries[runLeaf] = run
	for _, s := range sigs {
		entries[signatureLeaf(s.ID)] = s
	}
	return entries
}
