// internal/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps snapshots in match_states and the log in match_events.
//
// Expected schema:
//
//	CREATE TABLE match_states (
//	    match_id uuid PRIMARY KEY REFERENCES matches(id),
//	    state    jsonb NOT NULL,
//	    version  bigint NOT NULL
//	);
//	CREATE TABLE match_events (
//	    match_id    uuid NOT NULL REFERENCES matches(id),
//	    sequence_id bigint NOT NULL,
//	    actor_seat  text NOT NULL,
//	    action_type text NOT NULL,
//	    request_id  text NOT NULL DEFAULT '',
//	    payload     jsonb NOT NULL,
//	    occurred_at timestamptz NOT NULL,
//	    PRIMARY KEY (match_id, sequence_id)
//	);
//
// The version column duplicates state->>'version' so the conditional write is
// a plain indexed predicate instead of a jsonb extraction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts the version-0 snapshot for a new match.
func (s *PostgresStore) Create(ctx context.Context, matchID uuid.UUID, state *models.MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal match state: %w", err)
	}
	q := `INSERT INTO match_states (match_id, state, version) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, q, matchID, data, state.Version); err != nil {
		return fmt.Errorf("insert match state: %w", err)
	}
	return nil
}

// Load returns the latest snapshot.
func (s *PostgresStore) Load(ctx context.Context, matchID uuid.UUID) (*models.MatchState, error) {
	var data []byte
	q := `SELECT state FROM match_states WHERE match_id = $1`
	if err := s.pool.QueryRow(ctx, q, matchID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load match state: %w", err)
	}
	var state models.MatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal match state: %w", err)
	}
	return &state, nil
}

// CompareAndSwap runs the conditional snapshot update and the event append in
// a single transaction, so either both are visible to readers or neither is.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, matchID uuid.UUID, expected int64, next *models.MatchState, ev *models.MatchEvent) error {
	stateData, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal match state: %w", err)
	}
	payloadData, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		updQ := `
			UPDATE match_states
			SET state = $1, version = $2
			WHERE match_id = $3 AND version = $4
		`
		ct, err := tx.Exec(ctx, updQ, stateData, next.Version, matchID, expected)
		if err != nil {
			return fmt.Errorf("conditional state write: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// Distinguish a missing row from a stale version.
			var exists bool
			chkQ := `SELECT EXISTS (SELECT 1 FROM match_states WHERE match_id = $1)`
			if err := tx.QueryRow(ctx, chkQ, matchID).Scan(&exists); err != nil {
				return fmt.Errorf("check match state: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		insQ := `
			INSERT INTO match_events (
				match_id, sequence_id, actor_seat, action_type, request_id, payload, occurred_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, insQ,
			ev.MatchID, ev.SequenceID, ev.ActorSeat, ev.Type, ev.RequestID, payloadData, ev.OccurredAt,
		); err != nil {
			return fmt.Errorf("append match event: %w", err)
		}
		return nil
	})
}

// Events returns events with sequenceId greater than after, in sequence order.
func (s *PostgresStore) Events(ctx context.Context, matchID uuid.UUID, after int64) ([]models.MatchEvent, error) {
	q := `
		SELECT sequence_id, actor_seat, action_type, request_id, payload, occurred_at
		FROM match_events
		WHERE match_id = $1 AND sequence_id > $2
		ORDER BY sequence_id
	`
	rows, err := s.pool.Query(ctx, q, matchID, after)
	if err != nil {
		return nil, fmt.Errorf("query match events: %w", err)
	}
	defer rows.Close()

	var events []models.MatchEvent
	for rows.Next() {
		var (
			ev          models.MatchEvent
			payloadData []byte
		)
		ev.MatchID = matchID
		if err := rows.Scan(&ev.SequenceID, &ev.ActorSeat, &ev.Type, &ev.RequestID, &payloadData, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan match event: %w", err)
		}
		payload, err := models.UnmarshalEventPayload(ev.Type, payloadData)
		if err != nil {
			return nil, fmt.Errorf("decode event %d payload: %w", ev.SequenceID, err)
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match events: %w", err)
	}
	return events, nil
}
