package store

import (
	"context"
	"errors"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

var (
	// ErrNotFound is returned when a run or signature does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists is returned when a signature ID is reused, or a run is sealed a
	// second time with a different payload hash.
	ErrAlreadyExists = errors.New("store: already exists")
)

// SignatureStore persists signature records. Create writes the record and its
// signature hash in one statement; records are never updated.
type SignatureStore interface {
	Create(ctx context.Context, rec *contracts.SignatureRecord) error
	Get(ctx context.Context, id string) (*contracts.SignatureRecord, error)
	// ListByRun returns a run's signatures, oldest first.
	ListByRun(ctx context.Context, runID string) ([]*contracts.SignatureRecord, error)
	// List returns the most recent signatures across runs visible to tenantID, newest
	// first. An empty tenantID is unscoped; limit is normalised by ListLimit.
	List(ctx context.Context, tenantID string, limit int) ([]*contracts.SignatureRecord, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListLimit maps a requested page size onto the range every backend serves.
func ListLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// RunStore persists sealed report runs.
type RunStore interface {
	// Seal registers a sealed run and reports whether it was newly inserted. Sealing
	// the same run again with the same DataHash loads the stored run into run and
	// returns false; a different DataHash is ErrAlreadyExists.
	Seal(ctx context.Context, run *contracts.SealedRun) (bool, error)
	GetRun(ctx context.Context, id string) (*contracts.SealedRun, error)
}

// Store is implemented by every backend in this package.
type Store interface {
	SignatureStore
	RunStore
}
