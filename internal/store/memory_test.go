// internal/store/memory_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedState(version int64) *models.MatchState {
	return &models.MatchState{
		Players: models.Players{
			P1: &models.PlayerState{Life: models.StartingLife},
			P2: &models.PlayerState{Life: models.StartingLife},
		},
		Turn:      models.SeatP1,
		Phase:     models.DefaultPhase,
		CreatedAt: time.Now().UTC(),
		Version:   version,
	}
}

func seedEvent(matchID uuid.UUID, seq int64) *models.MatchEvent {
	return &models.MatchEvent{
		SequenceID: seq,
		MatchID:    matchID,
		ActorSeat:  models.SeatP1,
		Type:       models.ActionLifeChange,
		Payload:    models.LifeChangeEvent{Player: models.SeatP1, Delta: 1, Life: 21},
		OccurredAt: time.Now().UTC(),
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	matchID := uuid.New()

	_, err := ms.Load(ctx, matchID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ms.Create(ctx, matchID, seedState(0)))
	assert.Error(t, ms.Create(ctx, matchID, seedState(0)), "duplicate create must fail")

	got, err := ms.Load(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Version)

	// Loads return copies: mutating one must not leak into the store.
	got.Players.P1.Life = -99
	again, err := ms.Load(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, models.StartingLife, again.Players.P1.Life)
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	matchID := uuid.New()
	require.NoError(t, ms.Create(ctx, matchID, seedState(0)))

	next := seedState(1)
	require.NoError(t, ms.CompareAndSwap(ctx, matchID, 0, next, seedEvent(matchID, 1)))

	// A writer that loaded version 0 must now lose.
	stale := seedState(1)
	err := ms.CompareAndSwap(ctx, matchID, 0, stale, seedEvent(matchID, 1))
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := ms.Load(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	err = ms.CompareAndSwap(ctx, uuid.New(), 0, next, seedEvent(matchID, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreEvents(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	matchID := uuid.New()
	require.NoError(t, ms.Create(ctx, matchID, seedState(0)))

	for seq := int64(1); seq <= 5; seq++ {
		require.NoError(t, ms.CompareAndSwap(ctx, matchID, seq-1, seedState(seq), seedEvent(matchID, seq)))
	}

	all, err := ms.Events(ctx, matchID, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, ev := range all {
		assert.Equal(t, int64(i+1), ev.SequenceID, "events come back in sequence order")
	}

	tail, err := ms.Events(ctx, matchID, 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].SequenceID)

	none, err := ms.Events(ctx, matchID, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
