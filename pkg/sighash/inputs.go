package sighash

import "fmt"

// Field keys used by loosely typed records (decoded JSON bodies, raw rows).
const (
	FieldDataHash        = "data_hash"
	FieldReportRunID     = "report_run_id"
	FieldSignatureSVG    = "signature_svg"
	FieldSignerName      = "signer_name"
	FieldSignerTitle     = "signer_title"
	FieldSignatureRole   = "signature_role"
	FieldAttestationText = "attestation_text"
)

// requiredFields is in binding order.
var requiredFields = []string{
	FieldDataHash,
	FieldReportRunID,
	FieldSignatureSVG,
	FieldSignerName,
	FieldSignerTitle,
	FieldSignatureRole,
}

// InputsFromMap builds Inputs from a loosely typed record.
//
// Every required field must be present and be a string (empty strings are allowed).
// attestation_text may be missing, nil, or a string; any other value is rejected
// rather than coerced.
func InputsFromMap(m map[string]any) (Inputs, error) {
	if m == nil {
		return Inputs{}, fmt.Errorf("%w: record is nil", ErrInvalidInput)
	}

	vals := make([]string, len(requiredFields))
	for i, key := range requiredFields {
		raw, ok := m[key]
		if !ok || raw == nil {
			return Inputs{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, key)
		}
		s, ok := raw.(string)
		if !ok {
			return Inputs{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidInput, key, raw)
		}
		vals[i] = s
	}

	in := Inputs{
		DataHash:      vals[0],
		ReportRunID:   vals[1],
		SignatureSVG:  vals[2],
		SignerName:    vals[3],
		SignerTitle:   vals[4],
		SignatureRole: vals[5],
	}

	switch v := m[FieldAttestationText].(type) {
	case nil:
	case string:
		in.AttestationText = &v
	default:
		return Inputs{}, fmt.Errorf("%w: %s must be a string or null, got %T", ErrInvalidInput, FieldAttestationText, v)
	}

	return in, nil
}
