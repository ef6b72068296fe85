package sighash

import (
	"strings"
	"unicode"
)

// NormalizeAttestation maps an absent attestation to "" and trims surrounding
// whitespace from a present one.
//
// The whitespace set is Unicode White_Space plus U+FEFF, minus U+0085. Records written
// by the reporting frontend were trimmed with exactly that set, and their digests must
// reproduce.
func NormalizeAttestation(text *string) string {
	if text == nil {
		return ""
	}
	return strings.TrimFunc(*text, isAttestationSpace)
}

func isAttestationSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}
