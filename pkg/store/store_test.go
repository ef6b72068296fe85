package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

const runHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func sampleRecord(id, runID string, at time.Time, attestation *string) *contracts.SignatureRecord {
	return &contracts.SignatureRecord{
		ID:              id,
		ReportRunID:     runID,
		DataHash:        runHash,
		SignatureSVG:    `<svg><path d="M0 0L10 10"/></svg>`,
		SignerName:      "Alice Smith",
		SignerTitle:     "Controller",
		SignatureRole:   "reviewer",
		AttestationText: attestation,
		SignatureHash:   "502a9b8e8e5bba7e5540f474dffe52084a0f144aa7b09463c20a9d268df71ab0",
		HashScheme:      "v2",
		SignerID:        "user-1",
		TenantID:        "tenant-a",
		CreatedAt:       at,
	}
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return s
}

// runStoreContract exercises behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateGet", func(t *testing.T) {
		s := newStore(t)
		text := "I attest this report is accurate."
		rec := sampleRecord("sig-1", "run-1", base, &text)
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.Get(ctx, "sig-1")
		require.NoError(t, err)
		assert.Equal(t, rec.SignatureHash, got.SignatureHash)
		assert.Equal(t, "v2", got.HashScheme)
		require.NotNil(t, got.AttestationText)
		assert.Equal(t, text, *got.AttestationText)
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("NilAttestationSurvives", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRecord("sig-1", "run-1", base, nil)))

		got, err := s.Get(ctx, "sig-1")
		require.NoError(t, err)
		assert.Nil(t, got.AttestationText)
	})

	t.Run("EmptyAttestationIsNotNil", func(t *testing.T) {
		s := newStore(t)
		empty := ""
		require.NoError(t, s.Create(ctx, sampleRecord("sig-1", "run-1", base, &empty)))

		got, err := s.Get(ctx, "sig-1")
		require.NoError(t, err)
		require.NotNil(t, got.AttestationText)
		assert.Empty(t, *got.AttestationText)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRecord("sig-1", "run-1", base, nil)))
		err := s.Create(ctx, sampleRecord("sig-1", "run-1", base, nil))
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetRun(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListByRunOrdering", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRecord("sig-b", "run-1", base.Add(2*time.Minute), nil)))
		require.NoError(t, s.Create(ctx, sampleRecord("sig-a", "run-1", base.Add(time.Minute), nil)))
		require.NoError(t, s.Create(ctx, sampleRecord("sig-x", "run-2", base, nil)))

		recs, err := s.ListByRun(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "sig-a", recs[0].ID)
		assert.Equal(t, "sig-b", recs[1].ID)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		for i, id := range []string{"sig-1", "sig-2", "sig-3"} {
			require.NoError(t, s.Create(ctx, sampleRecord(id, "run-1", base.Add(time.Duration(i)*time.Minute), nil)))
		}

		recs, err := s.List(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "sig-3", recs[0].ID)
		assert.Equal(t, "sig-2", recs[1].ID)
	})

	t.Run("ListZeroLimitUsesDefault", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRecord("sig-1", "run-1", base, nil)))

		for _, limit := range []int{0, -5} {
			recs, err := s.List(ctx, "", limit)
			require.NoError(t, err)
			assert.Len(t, recs, 1, "limit %d", limit)
		}
	})

	t.Run("ListScopedToTenant", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRecord("sig-a", "run-1", base, nil)))
		foreign := sampleRecord("sig-b", "run-2", base.Add(time.Minute), nil)
		foreign.TenantID = "tenant-b"
		require.NoError(t, s.Create(ctx, foreign))

		recs, err := s.List(ctx, "tenant-a", 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "sig-a", recs[0].ID)

		recs, err = s.List(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("SealIdempotent", func(t *testing.T) {
		s := newStore(t)
		first := &contracts.SealedRun{ID: "run-1", TenantID: "tenant-a", DataHash: runHash, SealedAt: base, SealedBy: "user-1"}
		created, err := s.Seal(ctx, first)
		require.NoError(t, err)
		assert.True(t, created)

		again := &contracts.SealedRun{ID: "run-1", TenantID: "tenant-a", DataHash: runHash, SealedAt: base.Add(time.Hour), SealedBy: "user-2"}
		created, err = s.Seal(ctx, again)
		require.NoError(t, err)
		assert.False(t, created, "re-seal does not insert")
		assert.True(t, base.Equal(again.SealedAt), "existing seal is reported back")
		assert.Equal(t, "user-1", again.SealedBy)

		got, err := s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, runHash, got.DataHash)
	})

	t.Run("SealConflict", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Seal(ctx, &contracts.SealedRun{ID: "run-1", DataHash: runHash, SealedAt: base})
		require.NoError(t, err)
		other := &contracts.SealedRun{ID: "run-1", DataHash: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SealedAt: base}
		created, err := s.Seal(ctx, other)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.False(t, created)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newSQLiteStore(t) })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	text := "original"
	require.NoError(t, s.Create(ctx, sampleRecord("sig-1", "run-1", time.Now(), &text)))

	got, err := s.Get(ctx, "sig-1")
	require.NoError(t, err)
	*got.AttestationText = "mutated"
	got.SignerName = "Mallory"

	again, err := s.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "original", *again.AttestationText)
	assert.Equal(t, "Alice Smith", again.SignerName)
}

func TestMemoryStore_UnsafeOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := sampleRecord("sig-1", "run-1", time.Now(), nil)
	require.NoError(t, s.Create(ctx, rec))

	tampered := *rec
	tampered.SignerName = "Alice Smyth"
	s.UnsafeOverwrite(tampered)

	got, err := s.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smyth", got.SignerName)
	assert.Equal(t, rec.SignatureHash, got.SignatureHash)
}

func TestSQLiteStore_MigrateTwice(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()

	_, err = NewSQLiteStore(db)
	require.NoError(t, err)
	_, err = NewSQLiteStore(db)
	require.NoError(t, err)
}

func TestParseTextTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC)

	got, err := parseTextTime(ts.Format(time.RFC3339Nano))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	got, err = parseTextTime([]byte("2024-03-01T12:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	got, err = parseTextTime(ts)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	got, err = parseTextTime(nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTextTime(42)
	assert.Error(t, err)
	_, err = parseTextTime("yesterday")
	assert.Error(t, err)
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListLimit(0))
	assert.Equal(t, DefaultListLimit, ListLimit(-1))
	assert.Equal(t, 7, ListLimit(7))
	assert.Equal(t, MaxListLimit, ListLimit(MaxListLimit+1))
}
