// Package signing is the write and audit path for report signatures. It seals runs,
// binds new signatures to the sealed payload and re-verifies stored records.
package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/surenss861/riskmate-sub004/pkg/audit"
	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/observability"
	"github.com/surenss861/riskmate-sub004/pkg/policy"
	"github.com/surenss861/riskmate-sub004/pkg/sighash"
	"github.com/surenss861/riskmate-sub004/pkg/store"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// Service coordinates sealing, signing and verification.
type Service struct {
	store    store.Store
	verifier *verifier.Verifier
	policy   *policy.Engine
	audit    audit.Logger
	obs      *observability.Provider
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

func WithVerifier(v *verifier.Verifier) Option { return func(s *Service) { s.verifier = v } }

func WithPolicy(p *policy.Engine) Option { return func(s *Service) { s.policy = p } }

func WithAuditLogger(l audit.Logger) Option { return func(s *Service) { s.audit = l } }

func WithObservability(p *observability.Provider) Option { return func(s *Service) { s.obs = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator overrides signature ID generation.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService creates a Service over st. Without options it uses the system signing
// rules, a legacy-tolerant verifier and discards audit events.
func NewService(st store.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:  st,
		audit:  audit.Nop{},
		logger: slog.Default().With("component", "signing"),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier == nil {
		s.verifier = verifier.New(verifier.WithClock(s.now))
	}
	if s.policy == nil {
		engine, err := policy.NewEngine(nil)
		if err != nil {
			return nil, err
		}
		s.policy = engine
	}
	return s, nil
}

// SealRequest registers a run whose payload hash is final.
type SealRequest struct {
	RunID    string `json:"run_id"`
	TenantID string `json:"tenant_id,omitempty"`
	DataHash string `json:"data_hash"`
	SealedBy string `json:"sealed_by,omitempty"`
}

// SealRun registers a sealed run. Sealing again with the same hash returns the
// original run; a different hash is store.ErrAlreadyExists. A run ID already held by
// another tenant is ErrRunNotFound whatever the hash.
func (s *Service) SealRun(ctx context.Context, req SealRequest) (_ *contracts.SealedRun, err error) {
	ctx, done := s.obs.TrackOperation(ctx, "signing.seal_run", attribute.String("run_id", req.RunID))
	defer func() { done(err) }()

	if strings.TrimSpace(req.RunID) == "" {
		return nil, fmt.Errorf("%w: run_id is required", ErrInvalidRequest)
	}
	if !sighash.IsDigest(req.DataHash) {
		return nil, ErrInvalidDataHash
	}

	run := &contracts.SealedRun{
		ID:       req.RunID,
		TenantID: req.TenantID,
		DataHash: req.DataHash,
		SealedAt: s.now().UTC(),
		SealedBy: req.SealedBy,
	}
	created, err := s.store.Seal(ctx, run)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) && s.heldElsewhere(ctx, req) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, req.RunID)
		}
		return nil, fmt.Errorf("seal run %s: %w", req.RunID, err)
	}
	// On an idempotent re-seal run now holds the stored row.
	if !visible(req.TenantID, run.TenantID) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, req.RunID)
	}
	if !created {
		return run, nil
	}

	s.record(ctx, audit.EventRunSealed, "seal", "run:"+run.ID, map[string]any{
		"data_hash": run.DataHash,
	})
	s.logger.InfoContext(ctx, "run sealed", "run_id", run.ID, "tenant_id", run.TenantID)
	return run, nil
}

// heldElsewhere reports whether req's run ID is already sealed by a tenant the
// caller cannot see.
func (s *Service) heldElsewhere(ctx context.Context, req SealRequest) bool {
	existing, err := s.store.GetRun(ctx, req.RunID)
	return err == nil && !visible(req.TenantID, existing.TenantID)
}

// Signer is the authenticated identity attaching a signature.
type Signer struct {
	ID       string
	TenantID string
	Name     string
	Title    string
	Roles    []string
}

func (s Signer) holds(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SignRequest asks to sign a sealed run. The payload hash always comes from the
// sealed run, never from the request.
type SignRequest struct {
	RunID           string
	Signer          Signer
	Role            string
	SignatureSVG    string
	AttestationText *string
}

// Sign creates a signature record bound to the sealed run.
func (s *Service) Sign(ctx context.Context, req SignRequest) (_ *contracts.SignatureRecord, err error) {
	ctx, done := s.obs.TrackOperation(ctx, "signing.sign",
		attribute.String("run_id", req.RunID),
		attribute.String("role", req.Role),
	)
	defer func() { done(err) }()

	if err := validateSign(req); err != nil {
		return nil, err
	}

	run, err := s.sealedRun(ctx, req.Signer.TenantID, req.RunID)
	if err != nil {
		return nil, err
	}

	if !req.Signer.holds(req.Role) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotHeld, req.Role)
	}

	decision, err := s.policy.Evaluate(ctx,
		policy.Signer{
			ID:    req.Signer.ID,
			Roles: req.Signer.Roles,
			Role:  req.Role,
			Name:  req.Signer.Name,
			Title: req.Signer.Title,
		},
		policy.Run{
			ID:       run.ID,
			DataHash: run.DataHash,
			Attested: sighash.NormalizeAttestation(req.AttestationText) != "",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("evaluate signing policy: %w", err)
	}
	if !decision.Allowed {
		s.record(ctx, audit.EventPolicyDenied, "sign", "run:"+run.ID, map[string]any{
			"role":    req.Role,
			"rule":    decision.Rule,
			"reason":  decision.Reason,
			"profile": s.policy.Profile(),
		})
		return nil, fmt.Errorf("%w: %s", ErrPolicyDenied, decision.Reason)
	}

	rec := &contracts.SignatureRecord{
		ID:              s.newID(),
		ReportRunID:     run.ID,
		DataHash:        run.DataHash,
		SignatureSVG:    req.SignatureSVG,
		SignerName:      req.Signer.Name,
		SignerTitle:     req.Signer.Title,
		SignatureRole:   req.Role,
		AttestationText: req.AttestationText,
		HashScheme:      string(sighash.Current),
		SignerID:        req.Signer.ID,
		TenantID:        req.Signer.TenantID,
		CreatedAt:       s.now().UTC(),
	}
	rec.SignatureHash, err = sighash.Compute(rec.HashInputs())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist signature: %w", err)
	}
	s.obs.RecordSignature(ctx, rec.SignatureRole, rec.HashScheme)

	s.record(ctx, audit.EventSignatureCreated, "sign", "signature:"+rec.ID, map[string]any{
		"run_id":         rec.ReportRunID,
		"role":           rec.SignatureRole,
		"signature_hash": rec.SignatureHash,
		"hash_scheme":    rec.HashScheme,
	})
	s.logger.InfoContext(ctx, "signature created",
		"signature_id", rec.ID,
		"run_id", rec.ReportRunID,
		"role", rec.SignatureRole,
	)
	return rec, nil
}

func validateSign(req SignRequest) error {
	switch {
	case strings.TrimSpace(req.RunID) == "":
		return fmt.Errorf("%w: run_id is required", ErrInvalidRequest)
	case strings.TrimSpace(req.Role) == "":
		return fmt.Errorf("%w: signature_role is required", ErrInvalidRequest)
	case strings.TrimSpace(req.SignatureSVG) == "":
		return fmt.Errorf("%w: signature_svg is required", ErrInvalidRequest)
	case req.Signer.ID == "":
		return fmt.Errorf("%w: signer identity is required", ErrInvalidRequest)
	}
	return nil
}

// sealedRun loads a run visible to tenantID. An empty tenantID is unscoped.
func (s *Service) sealedRun(ctx context.Context, tenantID, runID string) (*contracts.SealedRun, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if !visible(tenantID, run.TenantID) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if !sighash.IsDigest(run.DataHash) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotSealed, runID)
	}
	return run, nil
}

func visible(callerTenant, ownerTenant string) bool {
	return callerTenant == "" || ownerTenant == "" || callerTenant == ownerTenant
}

// Get returns a signature visible to tenantID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*contracts.SignatureRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, id)
		}
		return nil, fmt.Errorf("load signature %s: %w", id, err)
	}
	if !visible(tenantID, rec.TenantID) {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, id)
	}
	return rec, nil
}

// ListByRun returns a run's signatures, oldest first.
func (s *Service) ListByRun(ctx context.Context, tenantID, runID string) ([]*contracts.SignatureRecord, error) {
	if _, err := s.sealedRun(ctx, tenantID, runID); err != nil {
		return nil, err
	}
	return s.store.ListByRun(ctx, runID)
}

// List returns the most recent signatures visible to tenantID, newest first.
// limit is normalised by store.ListLimit.
func (s *Service) List(ctx context.Context, tenantID string, limit int) ([]*contracts.SignatureRecord, error) {
	recs, err := s.store.List(ctx, tenantID, store.ListLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return recs, nil
}

// Run returns a sealed run visible to tenantID.
func (s *Service) Run(ctx context.Context, tenantID, runID string) (*contracts.SealedRun, error) {
	return s.sealedRun(ctx, tenantID, runID)
}
