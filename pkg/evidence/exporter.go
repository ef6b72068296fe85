package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/artifacts"
	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/crypto"
	"github.com/surenss861/riskmate-sub004/pkg/merkle"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// RunSource is the read side of the signing service.
type RunSource interface {
	Run(ctx context.Context, tenantID, runID string) (*contracts.SealedRun, error)
	ListByRun(ctx context.Context, tenantID, runID string) ([]*contracts.SignatureRecord, error)
	VerifyRun(ctx context.Context, tenantID, runID string) (*verifier.Report, error)
}

// Exported is a stored bundle and the artifact reference it was stored under.
type Exported struct {
	Ref    string  `json:"ref"`
	Bundle *Bundle `json:"bundle"`
}

type Exporter struct {
	source RunSource
	keys   *crypto.TenantKeyring
	store  artifacts.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewExporter fails closed: a keyring is required. A nil store skips persistence.
func NewExporter(source RunSource, keys *crypto.TenantKeyring, store artifacts.Store) (*Exporter, error) {
	if source == nil || keys == nil {
		return nil, errors.New("fail-closed: evidence exporter needs a run source and signing keys")
	}
	return &Exporter{
		source: source,
		keys:   keys,
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "evidence"),
	}, nil
}

// WithClock overrides the export timestamp source.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Export verifies every signature on the run, then signs and stores the bundle.
// Tampered signatures do not block export; the report in the bundle records them.
func (e *Exporter) Export(ctx context.Context, tenantID, runID string) (*Exported, error) {
	run, err := e.source.Run(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	recs, err := e.source.ListByRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	report, err := e.source.VerifyRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}

	sigs := make([]contracts.SignatureRecord, 0, len(recs))
	for _, r := range recs {
		sigs = append(sigs, *r)
	}
	tree, err := merkle.Build(leafEntries(*run, sigs))
	if err != nil {
		return nil, fmt.Errorf("evidence export: %w", err)
	}

	signer, err := e.keys.ForTenant(run.TenantID)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Manifest: Manifest{
			FormatVersion:  FormatVersion,
			RunID:          run.ID,
			TenantID:       run.TenantID,
			DataHash:       run.DataHash,
			SignatureCount: len(sigs),
			MerkleRoot:     tree.Root,
			Leaves:         tree.Leaves,
			Verified:       report.Verified,
			ExportedAt:     e.now().UTC(),
			KeyID:          signer.KeyID,
			PublicKey:      signer.PublicKey(),
		},
		Run:        *run,
		Signatures: sigs,
		Report:     report,
	}
	canonical, err := merkle.Canonical(bundle.Manifest)
	if err != nil {
		return nil, fmt.Errorf("evidence export: canonicalize manifest: %w", err)
	}
	bundle.Signature = signer.Sign(canonical)

	out := &Exported{Bundle: bundle}
	if e.store != nil {
		data, err := json.Marshal(bundle)
		if err != nil {
			return nil, fmt.Errorf("evidence export: marshal bundle: %w", err)
		}
		if out.Ref, err = e.store.Put(ctx, data); err != nil {
			return nil, fmt.Errorf("evidence export: store bundle: %w", err)
		}
	}

	e.logger.InfoContext(ctx, "evidence exported",
		"run_id", run.ID,
		"signatures", len(sigs),
		"verified", report.Verified,
		"ref", out.Ref,
	)
	return out, nil
}
