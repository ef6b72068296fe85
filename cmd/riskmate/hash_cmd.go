package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/surenss861/riskmate-sub004/pkg/sighash"
)

// runHashCmd implements `riskmate hash`: it reads a JSON object with the bound
// signature fields and prints the digest.
//
// Exit codes: 0 = printed, 2 = bad input.
func runHashCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("hash", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var in, scheme string
	cmd.StringVar(&in, "in", "-", "Path to a JSON record, or - for stdin")
	cmd.StringVar(&scheme, "scheme", string(sighash.Current), "Hash scheme (v1 or v2)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	m, err := readJSONObject(in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	s, err := sighash.ParseScheme(scheme)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	inputs, err := sighash.InputsFromMap(m)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	digest, err := sighash.ComputeWith(s, inputs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, digest)
	return 0
}

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path) //nolint:gosec // operator-supplied path
}

func readJSONObject(path string) (map[string]any, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}
