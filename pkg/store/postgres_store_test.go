package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

var signatureCols = []string{
	"id", "report_run_id", "data_hash", "signature_svg", "signer_name", "signer_title",
	"signature_role", "attestation_text", "signature_hash", "hash_scheme", "signer_id", "tenant_id", "created_at",
}

var runCols = []string{"id", "tenant_id", "data_hash", "sealed_at", "sealed_by"}

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_Init(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS report_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InitError(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := s.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres init")
}

func TestPostgresStore_Create(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := sampleRecord("sig-1", "run-1", now, nil)

	mock.ExpectExec("INSERT INTO signature_records").
		WithArgs(rec.ID, rec.ReportRunID, rec.DataHash, rec.SignatureSVG,
			rec.SignerName, rec.SignerTitle, rec.SignatureRole,
			nil, rec.SignatureHash, rec.HashScheme, rec.SignerID, rec.TenantID, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDuplicate(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("INSERT INTO signature_records").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Create(context.Background(), sampleRecord("sig-1", "run-1", time.Now(), nil))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(signatureCols).AddRow(
		"sig-1", "run-1", runHash, "<svg/>", "Alice Smith", "Controller", "reviewer",
		"I attest.", "abc", "v2", "user-1", "tenant-a", now,
	)
	mock.ExpectQuery("SELECT (.+) FROM signature_records WHERE id = \\$1").
		WithArgs("sig-1").
		WillReturnRows(rows)

	rec, err := s.Get(context.Background(), "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", rec.SignerName)
	require.NotNil(t, rec.AttestationText)
	assert.Equal(t, "I attest.", *rec.AttestationText)
	assert.True(t, now.Equal(rec.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNullAttestation(t *testing.T) {
	s, mock := newMockPostgres(t)
	rows := sqlmock.NewRows(signatureCols).AddRow(
		"sig-1", "run-1", runHash, "<svg/>", "Alice Smith", "Controller", "reviewer",
		nil, "abc", nil, nil, nil, time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM signature_records").WillReturnRows(rows)

	rec, err := s.Get(context.Background(), "sig-1")
	require.NoError(t, err)
	assert.Nil(t, rec.AttestationText)
	assert.Empty(t, rec.HashScheme, "legacy rows have no scheme")
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery("SELECT (.+) FROM signature_records").WillReturnRows(sqlmock.NewRows(signatureCols))

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ListByRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(signatureCols).
		AddRow("sig-1", "run-1", runHash, "<svg/>", "A", "T", "preparer", nil, "h1", "v2", "u1", "t", now).
		AddRow("sig-2", "run-1", runHash, "<svg/>", "B", "T", "approver", "ok", "h2", "v2", "u2", "t", now.Add(time.Second))
	mock.ExpectQuery("WHERE report_run_id = \\$1").WithArgs("run-1").WillReturnRows(rows)

	recs, err := s.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "approver", recs[1].SignatureRole)
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgres(t)
	rows := sqlmock.NewRows(signatureCols).
		AddRow("sig-9", "run-3", runHash, "<svg/>", "A", "T", "reviewer", nil, "h", "v2", "u", "t", time.Now())
	mock.ExpectQuery("ORDER BY created_at DESC").WithArgs("t", 10).WillReturnRows(rows)

	recs, err := s.List(context.Background(), "t", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestPostgresStore_ListNormalisesLimit(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("", DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(signatureCols))

	_, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Seal(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &contracts.SealedRun{ID: "run-1", TenantID: "tenant-a", DataHash: runHash, SealedAt: now, SealedBy: "user-1"}

	mock.ExpectExec("INSERT INTO report_runs").
		WithArgs(run.ID, run.TenantID, run.DataHash, now, run.SealedBy).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := s.Seal(context.Background(), run)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SealExistingSameHash(t *testing.T) {
	s, mock := newMockPostgres(t)
	sealedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO report_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM report_runs WHERE id = \\$1").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(runCols).AddRow("run-1", "tenant-a", runHash, sealedAt, "user-1"))

	run := &contracts.SealedRun{ID: "run-1", DataHash: runHash, SealedAt: time.Now(), SealedBy: "user-2"}
	created, err := s.Seal(context.Background(), run)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "user-1", run.SealedBy)
	assert.True(t, sealedAt.Equal(run.SealedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SealConflict(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("INSERT INTO report_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM report_runs").
		WillReturnRows(sqlmock.NewRows(runCols).AddRow("run-1", "tenant-a", "different", time.Now(), "user-1"))

	_, err := s.Seal(context.Background(), &contracts.SealedRun{ID: "run-1", DataHash: runHash, SealedAt: time.Now()})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}
