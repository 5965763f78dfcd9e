// internal/database/match.go
package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/duelpit/duelpit/internal/gateway"
	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrSeatTaken means the seat a caller tried to occupy is already filled.
var ErrSeatTaken = errors.New("seat is already occupied")

// codeAlphabet excludes lookalike characters so join codes survive being
// read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewMatchCode returns a six-character join code.
func NewMatchCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate match code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// CreateMatch inserts the match metadata row.
func CreateMatch(ctx context.Context, m *models.Match) error {
	q := `
		INSERT INTO matches (id, code, p1_user_id, p2_user_id, allow_spectators, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, m.ID, m.Code, m.P1UserID, m.P2UserID, m.AllowSpectators, m.Status)
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// GetMatchByID loads one match row.
func GetMatchByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return getMatch(ctx, `WHERE id=$1`, id)
}

// GetMatchByCode loads a match by its join code.
func GetMatchByCode(ctx context.Context, code string) (*models.Match, error) {
	return getMatch(ctx, `WHERE code=$1`, code)
}

func getMatch(ctx context.Context, where string, arg interface{}) (*models.Match, error) {
	var m models.Match
	q := `
	SELECT id, code, p1_user_id, p2_user_id, allow_spectators, status, created_at
	FROM matches ` + where
	err := DB.QueryRow(ctx, q, arg).Scan(
		&m.ID, &m.Code, &m.P1UserID, &m.P2UserID,
		&m.AllowSpectators, &m.Status, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// OccupySeat seats userID at seat p2 (the join flow). First writer wins: a
// second join attempt sees the seat filled and fails.
func OccupySeat(ctx context.Context, matchID, userID uuid.UUID) error {
	q := `
		UPDATE matches
		SET p2_user_id = $1
		WHERE id = $2 AND p2_user_id IS NULL
	`
	var taken bool
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, e := tx.Exec(ctx, q, userID, matchID)
		if e != nil {
			return e
		}
		taken = ct.RowsAffected() == 0
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to occupy seat: %w", err)
	}
	if taken {
		return ErrSeatTaken
	}
	return nil
}

// SeatUserInState writes the occupant's user id into the persisted snapshot's
// player record. Seat occupancy is metadata, not a mutation: it neither bumps
// the version nor emits an event.
func SeatUserInState(ctx context.Context, matchID, userID uuid.UUID, seat models.Seat) error {
	q := `
		UPDATE match_states
		SET state = jsonb_set(state, ARRAY['players', $1::text, 'id'], to_jsonb($2::text))
		WHERE match_id = $3
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, string(seat), userID.String(), matchID)
		return e
	})
}

// MarkMatchAbandoned flips an in-progress match to abandoned.
func MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) error {
	q := `
		UPDATE matches
		SET status = 'abandoned'
		WHERE id = $1 AND status = 'in_progress'
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, matchID)
		return e
	})
}

// Seats resolves callers to seats by reading match metadata. It is the
// production gateway.SeatResolver.
type Seats struct{}

// Resolve returns the seat userID occupies in the match, or
// gateway.ErrNotSeated.
func (Seats) Resolve(ctx context.Context, matchID, userID uuid.UUID) (models.Seat, error) {
	m, err := GetMatchByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", gateway.ErrNotSeated
		}
		return "", fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	seat, ok := m.Seat(userID)
	if !ok {
		return "", gateway.ErrNotSeated
	}
	return seat, nil
}
