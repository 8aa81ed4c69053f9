// Package store holds the evaluation record stores: in-memory, Postgres,
// and a Redis read-through cache that fronts either of them.
package store

import (
	"context"
	"sync"

	"railclaim/internal/decision"
	"railclaim/pkg/domain"
	"railclaim/pkg/platform/sentinel"
)

// Memory keeps records in process. Records are copied in and out so callers
// cannot mutate stored state.
type Memory struct {
	mu            sync.RWMutex
	byID          map[domain.EvaluationID]decision.Record
	byFingerprint map[string]domain.EvaluationID
}

func NewMemory() *Memory {
	return &Memory{
		byID:          make(map[domain.EvaluationID]decision.Record),
		byFingerprint: make(map[string]domain.EvaluationID),
	}
}

// Save rejects a second record with a known fingerprint.
func (m *Memory) Save(_ context.Context, rec *decision.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byFingerprint[rec.Fingerprint]; ok {
		return sentinel.ErrConflict
	}
	m.byID[rec.ID] = *rec
	m.byFingerprint[rec.Fingerprint] = rec.ID
	return nil
}

func (m *Memory) FindByID(_ context.Context, id domain.EvaluationID) (*decision.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) FindByFingerprint(_ context.Context, fingerprint string) (*decision.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byFingerprint[fingerprint]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := m.byID[id]
	return &rec, nil
}

// Len is the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
