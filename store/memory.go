package store

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map. Handy for tests and single-node toys;
// everything is guarded by one RWMutex so the Insert/RecordClick contracts
// hold trivially.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*LinkRecord
}

func CreateMemoryStore() LinkStore {
	return &MemoryStore{records: map[string]*LinkRecord{}}
}

func (s *MemoryStore) IsLikelyOk() bool {
	return true
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[code]
	if !ok {
		return LinkRecord{}, ErrNotFound
	}
	return snapshot(rec), nil
}

func (s *MemoryStore) Exists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[code]
	return ok, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ShortCode]; ok {
		return ErrDuplicateCode
	}
	stored := snapshot(&rec)
	s.records[rec.ShortCode] = &stored
	return nil
}

func (s *MemoryStore) RecordClick(_ context.Context, code string, ev ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[code]
	if !ok {
		return ErrNotFound
	}
	updated := ApplyClick(*rec, ev)
	s.records[code] = &updated
	return nil
}

func (s *MemoryStore) Cleanup() {
	// no op
}

// snapshot copies the record so callers can't alias the stored events slice.
func snapshot(rec *LinkRecord) LinkRecord {
	cp := *rec
	cp.ClickEvents = make([]ClickEvent, len(rec.ClickEvents))
	copy(cp.ClickEvents, rec.ClickEvents)
	return cp
}
