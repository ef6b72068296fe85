package console

import (
	"net/http"

	"github.com/surenss861/riskmate-sub004/pkg/api"
	"github.com/surenss861/riskmate-sub004/pkg/auth"
	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/signing"
)

var sealRunSchema = api.MustCompileBodySchema("seal_run", `{
	"type": "object",
	"required": ["run_id", "data_hash"],
	"properties": {
		"run_id": {"type": "string", "minLength": 1, "maxLength": 256},
		"data_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"}
	},
	"additionalProperties": false
}`)

var signSchema = api.MustCompileBodySchema("sign", `{
	"type": "object",
	"required": ["signature_role", "signature_svg"],
	"properties": {
		"signature_role": {"type": "string", "minLength": 1},
		"signature_svg": {"type": "string", "minLength": 1},
		"attestation_text": {"type": ["string", "null"]}
	},
	"additionalProperties": false
}`)

type sealRunRequest struct {
	RunID    string `json:"run_id"`
	DataHash string `json:"data_hash"`
}

type signRequest struct {
	SignatureRole   string  `json:"signature_role"`
	SignatureSVG    string  `json:"signature_svg"`
	AttestationText *string `json:"attestation_text"`
}

type signaturesResponse struct {
	RunID      string                       `json:"run_id"`
	Signatures []*contracts.SignatureRecord `json:"signatures"`
	Total      int                          `json:"total"`
}

// principal returns the authenticated caller or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, err := auth.GetPrincipal(r.Context())
	if err != nil {
		api.WriteErrorR(w, r, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return nil, false
	}
	return p, true
}

// handleSealRun serves POST /v1/runs. The run is owned by the caller's tenant.
func (s *Server) handleSealRun(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req sealRunRequest
	if err := api.DecodeJSON(w, r, sealRunSchema, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	run, err := s.signing.SealRun(r.Context(), signing.SealRequest{
		RunID:    req.RunID,
		TenantID: p.GetTenantID(),
		DataHash: req.DataHash,
		SealedBy: p.GetID(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, run)
}

// handleSign serves POST /v1/runs/{runID}/signatures. Name and title come from the
// token, never from the body.
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req signRequest
	if err := api.DecodeJSON(w, r, signSchema, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	rec, err := s.signing.Sign(r.Context(), signing.SignRequest{
		RunID: r.PathValue("runID"),
		Signer: signing.Signer{
			ID:       p.GetID(),
			TenantID: p.GetTenantID(),
			Name:     p.GetName(),
			Title:    p.GetTitle(),
			Roles:    p.GetRoles(),
		},
		Role:            req.SignatureRole,
		SignatureSVG:    req.SignatureSVG,
		AttestationText: req.AttestationText,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListSignatures(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	runID := r.PathValue("runID")
	recs, err := s.signing.ListByRun(r.Context(), p.GetTenantID(), runID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*contracts.SignatureRecord{}
	}
	api.WriteJSON(w, http.StatusOK, signaturesResponse{RunID: runID, Signatures: recs, Total: len(recs)})
}

// handleVerifyRun serves GET /v1/runs/{runID}/verify. A failing report is still 200.
func (s *Server) handleVerifyRun(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	report, err := s.signing.VerifyRun(r.Context(), p.GetTenantID(), r.PathValue("runID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleExportEvidence(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := s.evidence.Export(r.Context(), p.GetTenantID(), r.PathValue("runID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, out)
}
