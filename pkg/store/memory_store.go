package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/surenss861/riskmate-sub004/pkg/contracts"
)

// MemoryStore is an in-process Store for tests and demos.
type MemoryStore struct {
	mu         sync.RWMutex
	signatures map[string]contracts.SignatureRecord
	runs       map[string]contracts.SealedRun
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signatures: make(map[string]contracts.SignatureRecord),
		runs:       make(map[string]contracts.SealedRun),
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec *contracts.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signatures[rec.ID]; exists {
		return fmt.Errorf("signature %s: %w", rec.ID, ErrAlreadyExists)
	}
	s.signatures[rec.ID] = copyRecord(*rec)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*contracts.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.signatures[id]
	if !ok {
		return nil, fmt.Errorf("signature %s: %w", id, ErrNotFound)
	}
	out := copyRecord(rec)
	return &out, nil
}

func (s *MemoryStore) ListByRun(ctx context.Context, runID string) ([]*contracts.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contracts.SignatureRecord
	for _, rec := range s.signatures {
		if rec.ReportRunID == runID {
			r := copyRecord(rec)
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context, tenantID string, limit int) ([]*contracts.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*contracts.SignatureRecord, 0, len(s.signatures))
	for _, rec := range s.signatures {
		if tenantID != "" && rec.TenantID != "" && rec.TenantID != tenantID {
			continue
		}
		r := copyRecord(rec)
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = ListLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Seal(ctx context.Context, run *contracts.SealedRun) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.runs[run.ID]; ok {
		if existing.DataHash != run.DataHash {
			return false, fmt.Errorf("run %s sealed with a different payload: %w", run.ID, ErrAlreadyExists)
		}
		*run = existing
		return false, nil
	}
	s.runs[run.ID] = *run
	return true, nil
}

func (s *MemoryStore) GetRun(ctx context.Context, id string) (*contracts.SealedRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return &run, nil
}

// UnsafeOverwrite replaces a stored record without recomputing its hash. It exists
// so tests can simulate an out-of-band edit to persisted data.
func (s *MemoryStore) UnsafeOverwrite(rec contracts.SignatureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures[rec.ID] = copyRecord(rec)
}

func copyRecord(rec contracts.SignatureRecord) contracts.SignatureRecord {
	if rec.AttestationText != nil {
		text := *rec.AttestationText
		rec.AttestationText = &text
	}
	return rec
}
