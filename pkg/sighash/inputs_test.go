package sighash

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMap() map[string]any {
	return map[string]any{
		FieldDataHash:        "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		FieldReportRunID:     "run-2024-001",
		FieldSignatureSVG:    `<svg><path d="M0 0L10 10"/></svg>`,
		FieldSignerName:      "Alice Smith",
		FieldSignerTitle:     "Controller",
		FieldSignatureRole:   "reviewer",
		FieldAttestationText: "I attest this report is accurate.",
	}
}

func TestInputsFromMap_MatchesTypedInputs(t *testing.T) {
	in, err := InputsFromMap(sampleMap())
	require.NoError(t, err)

	fromMap, err := Compute(in)
	require.NoError(t, err)
	typed, err := Compute(sampleInputs())
	require.NoError(t, err)
	assert.Equal(t, typed, fromMap)
}

func TestInputsFromMap_AttestationAbsence(t *testing.T) {
	missing := sampleMap()
	delete(missing, FieldAttestationText)
	null := sampleMap()
	null[FieldAttestationText] = nil
	empty := sampleMap()
	empty[FieldAttestationText] = ""

	var digests []string
	for _, m := range []map[string]any{missing, null, empty} {
		in, err := InputsFromMap(m)
		require.NoError(t, err)
		d, err := Compute(in)
		require.NoError(t, err)
		digests = append(digests, d)
	}
	assert.Equal(t, digests[0], digests[1])
	assert.Equal(t, digests[0], digests[2])
}

func TestInputsFromMap_RejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing data hash", func(m map[string]any) { delete(m, FieldDataHash) }},
		{"null signer name", func(m map[string]any) { m[FieldSignerName] = nil }},
		{"numeric run id", func(m map[string]any) { m[FieldReportRunID] = 42.0 }},
		{"object svg", func(m map[string]any) { m[FieldSignatureSVG] = map[string]any{"d": "M0"} }},
		{"object attestation", func(m map[string]any) { m[FieldAttestationText] = map[string]any{"text": "ok"} }},
		{"boolean attestation", func(m map[string]any) { m[FieldAttestationText] = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMap()
			tt.mutate(m)
			_, err := InputsFromMap(m)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := InputsFromMap(nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInputsFromMap_EmptyStringsAllowed(t *testing.T) {
	m := sampleMap()
	m[FieldSignerTitle] = ""
	in, err := InputsFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, "", in.SignerTitle)
}

func TestInputsFromMap_DecodedJSON(t *testing.T) {
	raw := `{"data_hash":"abc","report_run_id":"r1","signature_svg":"<svg/>","signer_name":"Bo",
		"signer_title":"CFO","signature_role":"approver","attestation_text":"  Agreed  "}`
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	in, err := InputsFromMap(m)
	require.NoError(t, err)
	require.NotNil(t, in.AttestationText)
	assert.Equal(t, "Agreed", NormalizeAttestation(in.AttestationText))
}
