// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-process StateStore for tests and single-node dev runs.
// It honors the same version discipline as the Postgres store.
type MemoryStore struct {
	mu     sync.Mutex
	states map[uuid.UUID]*models.MatchState
	events map[uuid.UUID][]models.MatchEvent
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[uuid.UUID]*models.MatchState),
		events: make(map[uuid.UUID][]models.MatchEvent),
	}
}

// Create stores the version-0 snapshot for a new match.
func (m *MemoryStore) Create(ctx context.Context, matchID uuid.UUID, state *models.MatchState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.states[matchID]; exists {
		return fmt.Errorf("match %s already has a state", matchID)
	}
	m.states[matchID] = state.Clone()
	return nil
}

// Load returns a copy of the latest snapshot.
func (m *MemoryStore) Load(ctx context.Context, matchID uuid.UUID) (*models.MatchState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// CompareAndSwap replaces the snapshot and appends ev atomically if the
// stored version still equals expected.
func (m *MemoryStore) CompareAndSwap(ctx context.Context, matchID uuid.UUID, expected int64, next *models.MatchState, ev *models.MatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.states[matchID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expected {
		return ErrVersionConflict
	}
	m.states[matchID] = next.Clone()
	m.events[matchID] = append(m.events[matchID], *ev)
	return nil
}

// Events returns events with sequenceId greater than after, in order.
func (m *MemoryStore) Events(ctx context.Context, matchID uuid.UUID, after int64) ([]models.MatchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MatchEvent
	for _, ev := range m.events[matchID] {
		if ev.SequenceID > after {
			out = append(out, ev)
		}
	}
	return out, nil
}
