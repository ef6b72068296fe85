package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

const signatureColumns = `id, report_run_id, data_hash, signature_svg, signer_name, signer_title, signature_role, attestation_text, signature_hash, hash_scheme, signer_id, tenant_id, created_at`

const runColumns = `id, tenant_id, data_hash, sealed_at, sealed_by`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// timeScanner converts the driver's timestamp representation. SQLite stores text,
// Postgres returns time.Time.
type timeScanner func(raw any) (time.Time, error)

func scanSignature(row rowScanner, parse timeScanner) (*contracts.SignatureRecord, error) {
	var (
		rec         contracts.SignatureRecord
		attestation sql.NullString
		scheme      sql.NullString
		signerID    sql.NullString
		tenantID    sql.NullString
		createdAt   any
	)
	err := row.Scan(
		&rec.ID, &rec.ReportRunID, &rec.DataHash, &rec.SignatureSVG,
		&rec.SignerName, &rec.SignerTitle, &rec.SignatureRole,
		&attestation, &rec.SignatureHash, &scheme, &signerID, &tenantID, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if attestation.Valid {
		text := attestation.String
		rec.AttestationText = &text
	}
	rec.HashScheme = scheme.String
	rec.SignerID = signerID.String
	rec.TenantID = tenantID.String
	if rec.CreatedAt, err = parse(createdAt); err != nil {
		return nil, fmt.Errorf("signature %s created_at: %w", rec.ID, err)
	}
	return &rec, nil
}

func scanRun(row rowScanner, parse timeScanner) (*contracts.SealedRun, error) {
	var (
		run      contracts.SealedRun
		tenantID sql.NullString
		sealedBy sql.NullString
		sealedAt any
	)
	if err := row.Scan(&run.ID, &tenantID, &run.DataHash, &sealedAt, &sealedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	run.TenantID = tenantID.String
	run.SealedBy = sealedBy.String

	var err error
	if run.SealedAt, err = parse(sealedAt); err != nil {
		return nil, fmt.Errorf("run %s sealed_at: %w", run.ID, err)
	}
	return &run, nil
}

func scanSignatures(rows *sql.Rows, parse timeScanner) ([]*contracts.SignatureRecord, error) {
	defer func() { _ = rows.Close() }()

	var out []*contracts.SignatureRecord
	for rows.Next() {
		rec, err := scanSignature(rows, parse)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func parseTextTime(raw any) (time.Time, error) {
	var value string
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		value = v
	case []byte:
		value = string(v)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", raw)
	}
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
