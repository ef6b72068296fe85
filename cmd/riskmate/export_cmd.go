package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/surenss861/riskmate-sub004/pkg/audit"
	"github.com/surenss861/riskmate-sub004/pkg/config"
)

// runExportCmd implements `riskmate export`, reading from the configured store.
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var runID, tenantID, out string
	cmd.StringVar(&runID, "run", "", "Run ID to export (REQUIRED)")
	cmd.StringVar(&tenantID, "tenant", "", "Restrict to this tenant's runs")
	cmd.StringVar(&out, "out", "", "Write the bundle here instead of stdout")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if runID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --run is required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	svc, err := newServices(ctx, cfg, audit.NewLoggerWithWriter(stderr))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close(ctx)

	exported, err := svc.evidence.Export(ctx, tenantID, runID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: export failed: %v\n", err)
		return 1
	}
	data, err := json.MarshalIndent(exported.Bundle, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if out == "" {
		_, _ = stdout.Write(append(data, '\n'))
		return 0
	}
	//nolint:gosec // G306: bundles are meant to be shared with auditors
	if err := os.WriteFile(out, data, 0644); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintf(stdout, "exported %s (%s) to %s\n", runID, exported.Ref, out)
	return 0
}
