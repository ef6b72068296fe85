package verifier

import (
	"fmt"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

// Version is stamped on every Report.
const Version = "1.1.0"

// ReasonPayloadMismatch marks a record whose bound payload or run differs from the
// sealed run it is listed under.
const ReasonPayloadMismatch Reason = "payload_mismatch"

// Report is the auditor-facing outcome of verifying every signature on a run.
type Report struct {
	RunID       string        `json:"run_id"`
	DataHash    string        `json:"data_hash"`
	Verified    bool          `json:"verified"`
	Timestamp   time.Time     `json:"timestamp"`
	Checks      []CheckResult `json:"checks"`
	Summary     string        `json:"summary"`
	IssueCount  int           `json:"issue_count"`
	VerifierVer string        `json:"verifier_version"`
}

// CheckResult is a single verification check.
type CheckResult struct {
	Name        string `json:"name"`
	SignatureID string `json:"signature_id,omitempty"`
	Pass        bool   `json:"pass"`
	Detail      string `json:"detail,omitempty"`
	Reason      Reason `json:"reason,omitempty"`
}

// VerifyAll checks every record against its own hash and against the sealed run it
// belongs to. A record that verifies on its own but names another payload or run is
// a replayed signature.
func (v *Verifier) VerifyAll(run contracts.SealedRun, records []contracts.SignatureRecord) *Report {
	report := &Report{
		RunID:       run.ID,
		DataHash:    run.DataHash,
		Verified:    true,
		Timestamp:   v.now().UTC(),
		Checks:      make([]CheckResult, 0, len(records)*2),
		VerifierVer: Version,
	}

	for _, rec := range records {
		report.addCheck(v.checkHash(rec))
		report.addCheck(checkBinding(run, rec))
	}

	failed := 0
	for _, c := range report.Checks {
		if !c.Pass {
			failed++
		}
	}
	report.IssueCount = failed
	switch {
	case len(records) == 0:
		report.Summary = "PASS: no signatures on run"
	case failed > 0:
		report.Verified = false
		report.Summary = fmt.Sprintf("FAIL: %d/%d checks failed", failed, len(report.Checks))
	default:
		report.Summary = fmt.Sprintf("PASS: %d/%d checks passed", len(report.Checks), len(report.Checks))
	}

	return report
}

func (r *Report) addCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
}

func (v *Verifier) checkHash(rec contracts.SignatureRecord) CheckResult {
	c := CheckResult{Name: "signature_hash", SignatureID: rec.ID}

	res, err := v.Verify(rec)
	if err != nil {
		c.Reason = ReasonInvalidRecord
		c.Detail = err.Error()
		return c
	}
	c.Pass = res.Valid
	c.Reason = res.Reason
	if res.Valid {
		c.Detail = fmt.Sprintf("scheme %s", res.Scheme)
	}
	return c
}

func checkBinding(run contracts.SealedRun, rec contracts.SignatureRecord) CheckResult {
	c := CheckResult{Name: "payload_binding", SignatureID: rec.ID}
	switch {
	case rec.ReportRunID != run.ID:
		c.Reason = ReasonPayloadMismatch
		c.Detail = fmt.Sprintf("record names run %q", rec.ReportRunID)
	case rec.DataHash != run.DataHash:
		c.Reason = ReasonPayloadMismatch
		c.Detail = "record data_hash differs from sealed payload"
	default:
		c.Pass = true
	}
	return c
}
