// internal/store/store.go
//
// Package store defines the durable holder of match snapshots and the
// append-only event log behind them. Writes are guarded by optimistic
// concurrency: a snapshot replaces the stored one only if the stored version
// still equals the version the writer read. A blind overwrite is never
// offered by this interface.
package store

import (
	"context"
	"errors"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound means no snapshot exists for the match.
	ErrNotFound = errors.New("match state not found")

	// ErrVersionConflict means the stored version no longer matches the
	// version the writer read. The caller should reload and retry.
	ErrVersionConflict = errors.New("match state version conflict")
)

// StateStore persists match snapshots and their event logs.
type StateStore interface {
	// Create stores the version-0 snapshot for a new match.
	Create(ctx context.Context, matchID uuid.UUID, state *models.MatchState) error

	// Load returns the latest snapshot.
	Load(ctx context.Context, matchID uuid.UUID) (*models.MatchState, error)

	// CompareAndSwap replaces the snapshot and appends ev in one atomic step,
	// but only if the stored version equals expected. On a stale version it
	// returns ErrVersionConflict and leaves both snapshot and log untouched.
	CompareAndSwap(ctx context.Context, matchID uuid.UUID, expected int64, next *models.MatchState, ev *models.MatchEvent) error

	// Events returns the match's events with sequenceId greater than after,
	// in sequence order. after = 0 returns the full log.
	Events(ctx context.Context, matchID uuid.UUID, after int64) ([]models.MatchEvent, error)
}
