package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

// PostgresStore is a durable SQL-based Store. The caller registers the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the schema if needed.
func (s *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		tenant_id TEXT,
		data_hash TEXT NOT NULL,
		sealed_at TIMESTAMPTZ NOT NULL,
		sealed_by TEXT
	);
	CREATE TABLE IF NOT EXISTS signature_records (
		id TEXT PRIMARY KEY,
		report_run_id TEXT NOT NULL,
		data_hash TEXT NOT NULL,
		signature_svg TEXT NOT NULL,
		signer_name TEXT NOT NULL,
		signer_title TEXT NOT NULL,
		signature_role TEXT NOT NULL,
		attestation_text TEXT,
		signature_hash TEXT NOT NULL,
		hash_scheme TEXT NOT NULL DEFAULT '',
		signer_id TEXT,
		tenant_id TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signature_records_run ON signature_records (report_run_id, created_at);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres init: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *contracts.SignatureRecord) error {
	query := `
		INSERT INTO signature_records (` + signatureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ReportRunID, rec.DataHash, rec.SignatureSVG,
		rec.SignerName, rec.SignerTitle, rec.SignatureRole,
		nullable(rec.AttestationText), rec.SignatureHash, rec.HashScheme,
		rec.SignerID, rec.TenantID, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert signature: %w", err)
	}
	return requireInserted(res, "signature "+rec.ID)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*contracts.SignatureRecord, error) {
	query := `SELECT ` + signatureColumns + ` FROM signature_records WHERE id = $1`
	rec, err := scanSignature(s.db.QueryRowContext(ctx, query, id), parseTextTime)
	if err != nil {
		return nil, fmt.Errorf("signature %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByRun(ctx context.Context, runID string) ([]*contracts.SignatureRecord, error) {
	query := `
		SELECT ` + signatureColumns + `
		FROM signature_records
		WHERE report_run_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	return scanSignatures(rows, parseTextTime)
}

func (s *PostgresStore) List(ctx context.Context, tenantID string, limit int) ([]*contracts.SignatureRecord, error) {
	query := `
		SELECT ` + signatureColumns + `
		FROM signature_records
		WHERE $1::text = '' OR COALESCE(tenant_id, '') IN ('', $1::text)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, ListLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanSignatures(rows, parseTextTime)
}

func (s *PostgresStore) Seal(ctx context.Context, run *contracts.SealedRun) (bool, error) {
	query := `
		INSERT INTO report_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, run.ID, run.TenantID, run.DataHash, run.SealedAt.UTC(), run.SealedBy)
	if err != nil {
		return false, fmt.Errorf("failed to seal run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return true, nil
	}
	return false, reconcileSeal(ctx, s, run)
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*contracts.SealedRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE id = $1`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, id), parseTextTime)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return run, nil
}
