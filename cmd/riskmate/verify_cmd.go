package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/surenss861/riskmate-sub004/pkg/evidence"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// runVerifyCmd implements `riskmate verify` for a single exported record or a full
// evidence bundle.
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		recordPath string
		bundlePath string
		pubKey     string
		strict     bool
		jsonOutput bool
	)
	cmd.StringVar(&recordPath, "record", "", "Path to a signature record JSON file")
	cmd.StringVar(&bundlePath, "bundle", "", "Path to an evidence bundle JSON file")
	cmd.StringVar(&pubKey, "pubkey", "", "Expected bundle signing key (hex)")
	cmd.BoolVar(&strict, "strict", false, "Reject records hashed with the legacy scheme")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if (recordPath == "") == (bundlePath == "") {
		_, _ = fmt.Fprintln(stderr, "Error: exactly one of --record or --bundle is required")
		return 2
	}

	v := verifier.New(verifier.WithLegacy(!strict))
	if bundlePath != "" {
		return verifyBundle(v, bundlePath, pubKey, jsonOutput, stdout, stderr)
	}
	return verifyRecord(v, recordPath, jsonOutput, stdout, stderr)
}

func verifyRecord(v *verifier.Verifier, path string, jsonOutput bool, stdout, stderr io.Writer) int {
	m, err := readJSONObject(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	res, err := v.VerifyMap(m)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		writeJSON(stdout, res)
	} else if res.Valid {
		_, _ = fmt.Fprintf(stdout, "VALID (scheme %s)\n", res.Scheme)
	} else {
		_, _ = fmt.Fprintf(stdout, "INVALID: %v\n", res.Err())
	}
	if !res.Valid {
		return 1
	}
	return 0
}

func verifyBundle(v *verifier.Verifier, path, pubKey string, jsonOutput bool, stdout, stderr io.Writer) int {
	data, err := readInput(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	res, err := evidence.VerifyBundleWith(v, data, pubKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		writeJSON(stdout, res)
	} else {
		for _, c := range res.Report.Checks {
			mark := "PASS"
			if !c.Pass {
				mark = "FAIL"
			}
			_, _ = fmt.Fprintf(stdout, "  %s %-16s %s %s\n", mark, c.Name, c.SignatureID, c.Reason)
		}
		for _, p := range res.Problems {
			_, _ = fmt.Fprintf(stdout, "  ! %s\n", p)
		}
		if res.Valid {
			_, _ = fmt.Fprintln(stdout, "VALID")
		} else {
			_, _ = fmt.Fprintln(stdout, "INVALID")
		}
	}
	if !res.Valid {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
