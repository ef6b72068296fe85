package signing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/surenss861/riskmate-sub004/pkg/audit"
	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// Verify recomputes a stored signature's hash. A tampered record is a Result with
// Valid false, not an error.
func (s *Service) Verify(ctx context.Context, tenantID, id string) (_ verifier.Result, _ *contracts.SignatureRecord, err error) {
	ctx, done := s.obs.TrackOperation(ctx, "signing.verify", attribute.String("signature_id", id))
	defer func() { done(err) }()

	rec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return verifier.Result{}, nil, err
	}

	res, err := s.verifier.Verify(*rec)
	if err != nil {
		return verifier.Result{}, nil, err
	}
	s.recordResult(ctx, "signature:"+rec.ID, rec.ReportRunID, res)
	return res, rec, nil
}

// VerifyRecord verifies a record supplied by the caller, such as an exported copy.
func (s *Service) VerifyRecord(ctx context.Context, m map[string]any) (_ verifier.Result, err error) {
	ctx, done := s.obs.TrackOperation(ctx, "signing.verify_record")
	defer func() { done(err) }()

	res, err := s.verifier.VerifyMap(m)
	if err != nil {
		return verifier.Result{}, err
	}

	id, _ := m["id"].(string)
	runID, _ := m["report_run_id"].(string)
	s.recordResult(ctx, "signature:"+id, runID, res)
	return res, nil
}

// VerifyRun verifies every signature on a sealed run.
func (s *Service) VerifyRun(ctx context.Context, tenantID, runID string) (_ *verifier.Report, err error) {
	ctx, done := s.obs.TrackOperation(ctx, "signing.verify_run", attribute.String("run_id", runID))
	defer func() { done(err) }()

	run, err := s.sealedRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	records := make([]contracts.SignatureRecord, 0, len(recs))
	for _, r := range recs {
		records = append(records, *r)
	}
	report := s.verifier.VerifyAll(*run, records)

	for _, c := range report.Checks {
		if !c.Pass {
			s.record(ctx, audit.EventSignatureTampered, "verify_run", "signature:"+c.SignatureID, map[string]any{
				"run_id": runID,
				"check":  c.Name,
				"reason": string(c.Reason),
			})
		}
	}
	outcome := "valid"
	if !report.Verified {
		outcome = "tampered"
		s.logger.WarnContext(ctx, "run verification failed", "run_id", runID, "issues", report.IssueCount)
	}
	s.obs.RecordVerification(ctx, outcome)
	return report, nil
}

func (s *Service) recordResult(ctx context.Context, resource, runID string, res verifier.Result) {
	meta := map[string]any{
		"run_id":      runID,
		"hash_scheme": string(res.Scheme),
	}
	if res.Valid {
		s.obs.RecordVerification(ctx, "valid")
		s.record(ctx, audit.EventSignatureVerified, "verify", resource, meta)
		return
	}

	meta["reason"] = string(res.Reason)
	s.obs.RecordVerification(ctx, string(res.Reason))
	s.record(ctx, audit.EventSignatureTampered, "verify", resource, meta)
	s.logger.WarnContext(ctx, "signature verification failed", "resource", resource, "reason", res.Reason)
}

// record writes an audit event. Audit failures are logged, never surfaced to callers.
func (s *Service) record(ctx context.Context, t audit.EventType, action, resource string, meta map[string]any) {
	if err := s.audit.Record(ctx, t, action, resource, meta); err != nil {
		s.logger.ErrorContext(ctx, "audit record failed", "type", t, "resource", resource, "error", err)
	}
}
