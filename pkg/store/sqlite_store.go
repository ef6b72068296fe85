package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the lite-mode Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and creates the schema if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS report_runs (
        id TEXT PRIMARY KEY,
        tenant_id TEXT,
        data_hash TEXT NOT NULL,
        sealed_at TEXT NOT NULL,
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
        created_at TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_signature_records_run ON signature_records (report_run_id, created_at);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec *contracts.SignatureRecord) error {
	query := `INSERT INTO signature_records (` + signatureColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ReportRunID, rec.DataHash, rec.SignatureSVG,
		rec.SignerName, rec.SignerTitle, rec.SignatureRole,
		nullable(rec.AttestationText), rec.SignatureHash, rec.HashScheme,
		rec.SignerID, rec.TenantID, rec.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert signature: %w", err)
	}
	return requireInserted(res, "signature "+rec.ID)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*contracts.SignatureRecord, error) {
	query := `SELECT ` + signatureColumns + ` FROM signature_records WHERE id = ?`
	rec, err := scanSignature(s.db.QueryRowContext(ctx, query, id), parseTextTime)
	if err != nil {
		return nil, fmt.Errorf("signature %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListByRun(ctx context.Context, runID string) ([]*contracts.SignatureRecord, error) {
	query := `SELECT ` + signatureColumns + ` FROM signature_records
	WHERE report_run_id = ?
	ORDER BY created_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	return scanSignatures(rows, parseTextTime)
}

func (s *SQLiteStore) List(ctx context.Context, tenantID string, limit int) ([]*contracts.SignatureRecord, error) {
	query := `SELECT ` + signatureColumns + ` FROM signature_records
	WHERE ? = '' OR COALESCE(tenant_id, '') IN ('', ?)
	ORDER BY created_at DESC, id DESC
	LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, tenantID, tenantID, ListLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanSignatures(rows, parseTextTime)
}

func (s *SQLiteStore) Seal(ctx context.Context, run *contracts.SealedRun) (bool, error) {
	query := `INSERT INTO report_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		run.ID, run.TenantID, run.DataHash, run.SealedAt.UTC().Format(sqliteTimeLayout), run.SealedBy,
	)
	if err != nil {
		return false, fmt.Errorf("failed to seal run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return true, nil
	}
	return false, reconcileSeal(ctx, s, run)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*contracts.SealedRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE id = ?`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, id), parseTextTime)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return run, nil
}

func requireInserted(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrAlreadyExists)
	}
	return nil
}

// reconcileSeal handles a conflicting seal: identical payload is idempotent and
// loads the existing run into run, anything else is ErrAlreadyExists.
func reconcileSeal(ctx context.Context, rs RunStore, run *contracts.SealedRun) error {
	existing, err := rs.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	if existing.DataHash != run.DataHash {
		return fmt.Errorf("run %s sealed with a different payload: %w", run.ID, ErrAlreadyExists)
	}
	*run = *existing
	return nil
}
