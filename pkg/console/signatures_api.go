package console

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/surenss861/riskmate-sub004/pkg/api"
	"github.com/surenss861/riskmate-sub004/pkg/contracts"
	"github.com/surenss861/riskmate-sub004/pkg/signing"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// verifyRecordSchema only checks the envelope. Field types are enforced by the
// hash binder so that a wrongly typed attestation is reported the same way everywhere.
var verifyRecordSchema = api.MustCompileBodySchema("verify_record", `{
	"type": "object",
	"required": ["signature_hash"],
	"properties": {
		"signature_hash": {"type": "string"}
	}
}`)

type verifyResponse struct {
	verifier.Result
	SignatureID string `json:"signature_id,omitempty"`
	Message     string `json:"message,omitempty"`
}

func newVerifyResponse(id string, res verifier.Result) verifyResponse {
	out := verifyResponse{Result: res, SignatureID: id}
	if err := res.Err(); err != nil {
		out.Message = verifier.ErrTamperedSignature.Error()
	}
	return out
}

type recentResponse struct {
	Signatures []*contracts.SignatureRecord `json:"signatures"`
	Total      int                          `json:"total"`
}

// handleListRecent serves GET /v1/signatures?limit=N, newest first within the
// caller's tenant. A missing limit uses the store default.
func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeServiceError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", signing.ErrInvalidRequest))
			return
		}
		limit = n
	}
	recs, err := s.signing.List(r.Context(), p.GetTenantID(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*contracts.SignatureRecord{}
	}
	api.WriteJSON(w, http.StatusOK, recentResponse{Signatures: recs, Total: len(recs)})
}

func (s *Server) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rec, err := s.signing.Get(r.Context(), p.GetTenantID(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, rec)
}

// handleVerifySignature serves GET /v1/signatures/{id}/verify. Tampering is a 200
// with valid false.
func (s *Server) handleVerifySignature(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	res, rec, err := s.signing.Verify(r.Context(), p.GetTenantID(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, newVerifyResponse(rec.ID, res))
}

// handleVerifyRecord serves POST /v1/signatures/verify for records held outside the
// service, such as an exported copy.
func (s *Server) handleVerifyRecord(w http.ResponseWriter, r *http.Request) {
	if _, ok := principal(w, r); !ok {
		return
	}
	var m map[string]any
	if err := api.DecodeJSON(w, r, verifyRecordSchema, &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := s.signing.VerifyRecord(r.Context(), m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, _ := m["id"].(string)
	api.WriteJSON(w, http.StatusOK, newVerifyResponse(id, res))
}
