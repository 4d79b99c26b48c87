package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	sets    map[string]store.SetRecord
	blobs   map[string][]store.Blob
	reports map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		sets:    make(map[string]store.SetRecord),
		blobs:   make(map[string][]store.Blob),
		reports: make(map[string][]byte),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// PutSet stores a set and its blobs. IDs cannot be reused.
func (s *Store) PutSet(ctx context.Context, rec store.SetRecord, blobs []store.Blob) error {
	if rec.ID == "" {
		return fmt.Errorf("put set: empty id: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sets[rec.ID]; exists {
		return fmt.Errorf("put set %s: already exists: %w", rec.ID, internalerr.ErrInvalidInput)
	}
	s.sets[rec.ID] = copyRecord(rec)
	cp := make([]store.Blob, len(blobs))
	for i, b := range blobs {
		cp[i] = copyBlob(b)
	}
	s.blobs[rec.ID] = cp
	return nil
}

// GetSet returns a set header.
func (s *Store) GetSet(ctx context.Context, id string) (store.SetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sets[id]
	if !ok {
		return store.SetRecord{}, fmt.Errorf("set %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRecord(rec), nil
}

// GetBlobs returns all blobs of a set ordered by kind.
func (s *Store) GetBlobs(ctx context.Context, id string) ([]store.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("set %s: %w", id, internalerr.ErrNotFound)
	}
	out := make([]store.Blob, len(blobs))
	for i, b := range blobs {
		out[i] = copyBlob(b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// LatestID returns the greatest set id.
func (s *Store) LatestID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := ""
	for id := range s.sets {
		if id > latest {
			latest = id
		}
	}
	if latest == "" {
		return "", fmt.Errorf("latest set: %w", internalerr.ErrNotFound)
	}
	return latest, nil
}

// ListSets returns up to limit sets, newest first. limit <= 0 returns all.
func (s *Store) ListSets(ctx context.Context, limit int) ([]store.SetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.SetRecord, 0, len(s.sets))
	for _, rec := range s.sets {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteSet removes a set with its blobs and report.
func (s *Store) DeleteSet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[id]; !ok {
		return fmt.Errorf("set %s: %w", id, internalerr.ErrNotFound)
	}
	delete(s.sets, id)
	delete(s.blobs, id)
	delete(s.reports, id)
	return nil
}

// PutReport stores or replaces the evaluation report of a set.
func (s *Store) PutReport(ctx context.Context, id string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[id]; !ok {
		return fmt.Errorf("report for set %s: %w", id, internalerr.ErrNotFound)
	}
	s.reports[id] = append([]byte(nil), body...)
	return nil
}

// GetReport returns the evaluation report of a set.
func (s *Store) GetReport(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report for set %s: %w", id, internalerr.ErrNotFound)
	}
	return append([]byte(nil), body...), nil
}

func copyRecord(r store.SetRecord) store.SetRecord {
	r.Manifest = append([]byte(nil), r.Manifest...)
	return r
}

func copyBlob(b store.Blob) store.Blob {
	b.Data = append([]byte(nil), b.Data...)
	return b
}

var _ store.Store = (*Store)(nil)
