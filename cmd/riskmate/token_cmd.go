package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/auth"
	"github.com/surenss861/riskmate-sub004/pkg/identity"
)

// runTokenCmd implements `riskmate token`, a development token minter. Production
// tokens come from the identity provider.
func runTokenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("token", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		p     auth.BasePrincipal
		roles string
		seed  string
		ttl   time.Duration
	)
	cmd.StringVar(&p.ID, "sub", "", "Subject (user ID) (REQUIRED)")
	cmd.StringVar(&p.TenantID, "tenant", "", "Tenant ID (REQUIRED)")
	cmd.StringVar(&roles, "roles", "reviewer", "Comma-separated roles")
	cmd.StringVar(&p.Name, "name", "", "Signer display name")
	cmd.StringVar(&p.Title, "title", "", "Signer title")
	cmd.StringVar(&seed, "seed", "", "Hex Ed25519 seed (32 bytes); random when empty")
	cmd.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if p.ID == "" || p.TenantID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --sub and --tenant are required")
		return 2
	}
	for _, r := range strings.Split(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			p.Roles = append(p.Roles, r)
		}
	}

	var (
		ks  *identity.InMemoryKeySet
		err error
	)
	if seed != "" {
		raw, derr := hex.DecodeString(seed)
		if derr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: --seed is not hex: %v\n", derr)
			return 2
		}
		ks, err = identity.NewInMemoryKeySetFromSeed(raw)
	} else {
		ks, err = identity.NewInMemoryKeySet()
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	token, err := auth.IssueToken(context.Background(), ks, p, ttl, time.Now())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "RISKMATE_JWT_PUBLIC_KEY=%s\n", hex.EncodeToString(ks.PublicKey()))
	_, _ = fmt.Fprintln(stdout, token)
	return 0
}
