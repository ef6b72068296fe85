package evidence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/surenss861/riskmate-sub004/pkg/crypto"
	"github.com/surenss861/riskmate-sub004/pkg/merkle"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// BundleResult is the outcome of checking a bundle offline.
type BundleResult struct {
	Valid          bool             `json:"valid"`
	FormatVersion  string           `json:"format_version"`
	SignatureValid bool             `json:"signature_valid"`
	RootValid      bool             `json:"root_valid"`
	Report         *verifier.Report `json:"report"`
	Problems       []string         `json:"problems,omitempty"`
}

var formatConstraint = mustConstraint(supportedFormats)

func mustConstraint(c string) *semver.Constraints {
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return parsed
}

// VerifyBundle checks an exported bundle without access to the service. pubKeyHex
// pins the expected signer; when empty the manifest's embedded key is used, which
// proves integrity but not origin.
//
// Structural problems are errors. A bad signature, root or record is a result with
// Valid false.
func VerifyBundle(data []byte, pubKeyHex string) (*BundleResult, error) {
	return VerifyBundleWith(verifier.New(), data, pubKeyHex)
}

// VerifyBundleWith is VerifyBundle with a configured record verifier.
func VerifyBundleWith(v *verifier.Verifier, data []byte, pubKeyHex string) (*BundleResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}

	ver, err := semver.NewVersion(b.Manifest.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q", ErrUnsupportedFormat, b.Manifest.FormatVersion)
	}
	if !formatConstraint.Check(ver) {
		return nil, fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedFormat, ver, supportedFormats)
	}

	res := &BundleResult{FormatVersion: ver.String()}

	key := b.Manifest.PublicKey
	if pubKeyHex != "" {
		if pubKeyHex != key {
			res.Problems = append(res.Problems, "manifest was not signed by the expected key")
		}
		key = pubKeyHex
	}
	canonical, err := merkle.Canonical(b.Manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	ok, err := crypto.Verify(key, b.Signature, canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	res.SignatureValid = ok
	if !ok {
		res.Problems = append(res.Problems, "manifest signature does not verify")
	}

	tree, err := merkle.Build(leafEntries(b.Run, b.Signatures))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	res.RootValid = tree.Root == b.Manifest.MerkleRoot
	if !res.RootValid {
		res.Problems = append(res.Problems, "merkle root does not match bundle contents")
	}
	if b.Manifest.RunID != b.Run.ID || b.Manifest.DataHash != b.Run.DataHash {
		res.Problems = append(res.Problems, "manifest does not describe the bundled run")
	}
	if b.Manifest.SignatureCount != len(b.Signatures) {
		res.Problems = append(res.Problems, "signature count does not match")
	}

	res.Report = v.VerifyAll(b.Run, b.Signatures)
	if !res.Report.Verified {
		res.Problems = append(res.Problems, res.Report.Summary)
	}

	res.Valid = len(res.Problems) == 0
	return res, nil
}
