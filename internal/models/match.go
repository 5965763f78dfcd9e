// internal/models/match.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus tracks a match row's lifecycle in the database.
type MatchStatus string

const (
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchAbandoned  MatchStatus = "abandoned"
)

// Match is the identity/metadata row for a match: join code, seat occupants,
// and spectator policy. The state engine only reads seat occupancy from it;
// the mutable game state lives in MatchState.
type Match struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	P1UserID        *uuid.UUID `json:"p1_user_id"`
	P2UserID        *uuid.UUID `json:"p2_user_id"`
	AllowSpectators bool       `json:"allow_spectators"`

	Status    MatchStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Seat reports which seat the given user occupies, if any.
func (m *Match) Seat(userID uuid.UUID) (Seat, bool) {
	if m.P1UserID != nil && *m.P1UserID == userID {
		return SeatP1, true
	}
	if m.P2UserID != nil && *m.P2UserID == userID {
		return SeatP2, true
	}
	return "", false
}
