// internal/models/match_state.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Seat identifies one of the two fixed player positions in a match.
type Seat string

const (
	SeatP1 Seat = "p1"
	SeatP2 Seat = "p2"
)

// Valid reports whether s names a real seat.
func (s Seat) Valid() bool {
	return s == SeatP1 || s == SeatP2
}

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatP1 {
		return SeatP2
	}
	return SeatP1
}

// ZoneKind names one of the four ordered card collections a seat owns.
type ZoneKind string

const (
	ZoneDeck        ZoneKind = "deck"
	ZoneHand        ZoneKind = "hand"
	ZoneBattlefield ZoneKind = "battlefield"
	ZoneDiscard     ZoneKind = "discard"
)

// Valid reports whether k names a real zone.
func (k ZoneKind) Valid() bool {
	switch k {
	case ZoneDeck, ZoneHand, ZoneBattlefield, ZoneDiscard:
		return true
	}
	return false
}

// Position says where a moved card lands in its destination zone.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// Valid reports whether p is a recognized insert position.
func (p Position) Valid() bool {
	return p == PositionTop || p == PositionBottom
}

// DefaultPhase is the phase label a match starts in and resets to on end-turn.
const DefaultPhase = "main"

// StartingLife is each seat's life total at match creation.
const StartingLife = 20

// MatchCard is a single card instance inside a match. The UID is unique for
// the lifetime of the match and survives moves between zones and seats.
type MatchCard struct {
	UID  string  `json:"uid"`
	Name string  `json:"name"`
	Img  *string `json:"img"`
}

// CardSpec is the client-facing shape used to build a deck at match creation.
type CardSpec struct {
	Name string  `json:"name"`
	Img  *string `json:"img,omitempty"`
}

// NewDeck mints a MatchCard with a fresh uid for every spec, preserving order.
func NewDeck(specs []CardSpec) []MatchCard {
	deck := make([]MatchCard, len(specs))
	for i, sp := range specs {
		deck[i] = MatchCard{
			UID:  uuid.NewString(),
			Name: sp.Name,
			Img:  sp.Img,
		}
	}
	return deck
}

// Zones holds the four ordered card collections belonging to one seat.
// Index 0 is the top of the deck and the front of the hand.
type Zones struct {
	Deck        []MatchCard `json:"deck"`
	Hand        []MatchCard `json:"hand"`
	Battlefield []MatchCard `json:"battlefield"`
	Discard     []MatchCard `json:"discard"`
}

// Zone returns a pointer to the slice backing the named zone, or nil for an
// unknown kind. Mutating through the pointer mutates the player's state.
func (z *Zones) Zone(kind ZoneKind) *[]MatchCard {
	switch kind {
	case ZoneDeck:
		return &z.Deck
	case ZoneHand:
		return &z.Hand
	case ZoneBattlefield:
		return &z.Battlefield
	case ZoneDiscard:
		return &z.Discard
	}
	return nil
}

func (z *Zones) clone() Zones {
	return Zones{
		Deck:        cloneCards(z.Deck),
		Hand:        cloneCards(z.Hand),
		Battlefield: cloneCards(z.Battlefield),
		Discard:     cloneCards(z.Discard),
	}
}

// cloneCards always returns a non-nil slice so empty zones keep serializing
// as [] rather than null.
func cloneCards(cards []MatchCard) []MatchCard {
	out := make([]MatchCard, len(cards))
	copy(out, cards)
	return out
}

// PlayerState is the mutable per-seat slice of a match: who sits there, their
// life total (unbounded in both directions), and their four zones.
type PlayerState struct {
	ID    *uuid.UUID `json:"id"`
	Life  int        `json:"life"`
	Zones Zones      `json:"zones"`
}

func (p *PlayerState) clone() *PlayerState {
	if p == nil {
		return nil
	}
	cp := &PlayerState{Life: p.Life, Zones: p.Zones.clone()}
	if p.ID != nil {
		id := *p.ID
		cp.ID = &id
	}
	return cp
}

// Players pins the exact two-seat shape of a match.
type Players struct {
	P1 *PlayerState `json:"p1"`
	P2 *PlayerState `json:"p2"`
}

// MatchState is the full snapshot of a match's mutable state. Version
// increases by exactly 1 on every accepted mutation and never decreases.
type MatchState struct {
	Players   Players   `json:"players"`
	Turn      Seat      `json:"turn"`
	Phase     string    `json:"phase"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int64     `json:"version"`
}

// Player returns the state for the given seat, or nil for an invalid seat.
func (s *MatchState) Player(seat Seat) *PlayerState {
	switch seat {
	case SeatP1:
		return s.Players.P1
	case SeatP2:
		return s.Players.P2
	}
	return nil
}

// Clone deep-copies the snapshot so mutations never alias the original.
func (s *MatchState) Clone() *MatchState {
	cp := *s
	cp.Players.P1 = s.Players.P1.clone()
	cp.Players.P2 = s.Players.P2.clone()
	return &cp
}

// FindCard scans the named zone of the given seat for a card uid and returns
// its index. O(zone length).
func (s *MatchState) FindCard(seat Seat, kind ZoneKind, uid string) (int, bool) {
	p := s.Player(seat)
	if p == nil {
		return 0, false
	}
	zone := p.Zones.Zone(kind)
	if zone == nil {
		return 0, false
	}
	for i, c := range *zone {
		if c.UID == uid {
			return i, true
		}
	}
	return 0, false
}

// CardUIDs returns every card uid across all zones of both seats, in a fixed
// traversal order. Useful for uniqueness and conservation checks.
func (s *MatchState) CardUIDs() []string {
	var uids []string
	for _, p := range []*PlayerState{s.Players.P1, s.Players.P2} {
		if p == nil {
			continue
		}
		for _, kind := range []ZoneKind{ZoneDeck, ZoneHand, ZoneBattlefield, ZoneDiscard} {
			for _, c := range *p.Zones.Zone(kind) {
				uids = append(uids, c.UID)
			}
		}
	}
	return uids
}
