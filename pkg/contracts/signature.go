package contracts

import (
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/sighash"
)

// SignatureRecord is a persisted signature over one sealed report run.
// Records are written once and never updated; a re-signature is a new record.
type SignatureRecord struct {
	ID              string  `json:"id"`
	ReportRunID     string  `json:"report_run_id"`
	DataHash        string  `json:"data_hash"`
	SignatureSVG    string  `json:"signature_svg"`
	SignerName      string  `json:"signer_name"`
	SignerTitle     string  `json:"signer_title"`
	SignatureRole   string  `json:"signature_role"`
	AttestationText *string `json:"attestation_text"`
	SignatureHash   string  `json:"signature_hash"`
	// HashScheme is empty on records written before schemes were versioned.
	HashScheme string `json:"hash_scheme,omitempty"`

	// Bookkeeping, not bound into SignatureHash.
	SignerID  string    `json:"signer_id,omitempty"`
	TenantID  string    `json:"tenant_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HashInputs returns the fields bound by SignatureHash.
func (r *SignatureRecord) HashInputs() sighash.Inputs {
	return sighash.Inputs{
		DataHash:        r.DataHash,
		ReportRunID:     r.ReportRunID,
		SignatureSVG:    r.SignatureSVG,
		SignerName:      r.SignerName,
		SignerTitle:     r.SignerTitle,
		SignatureRole:   r.SignatureRole,
		AttestationText: r.AttestationText,
	}
}

// SealedRun is a report run whose payload has been frozen upstream.
// DataHash never changes once the run is sealed.
type SealedRun struct {
	ID       string    `json:"id"`
	TenantID string    `json:"tenant_id,omitempty"`
	DataHash string    `json:"data_hash"`
	SealedAt time.Time `json:"sealed_at"`
	SealedBy string    `json:"sealed_by,omitempty"`
}
