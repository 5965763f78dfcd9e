// internal/models/event.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventPayload is the tagged union of per-action event detail. Exactly one
// variant exists per ActionType so the engine and log stay exhaustively
// checked against the action taxonomy.
type EventPayload interface {
	isEventPayload()
}

// DrawCardEvent records a draw: which uids left the deck, in drawn order.
type DrawCardEvent struct {
	Player    Seat     `json:"player"`
	Requested int      `json:"requested"`
	Drawn     []string `json:"drawn"`
}

// ShuffleDeckEvent records a deck shuffle. Card identities are unchanged, so
// only the deck size is worth logging.
type ShuffleDeckEvent struct {
	Player   Seat `json:"player"`
	DeckSize int  `json:"deckSize"`
}

// MoveCardEvent records a single card relocation.
type MoveCardEvent struct {
	CardUID  string   `json:"cardUid"`
	FromSlot Seat     `json:"fromSlot"`
	FromZone ZoneKind `json:"fromZone"`
	ToSlot   Seat     `json:"toSlot"`
	ToZone   ZoneKind `json:"toZone"`
	Position Position `json:"position"`
}

// MulliganEvent records a hand returned to the deck before the reshuffle.
type MulliganEvent struct {
	Player   Seat `json:"player"`
	Returned int  `json:"returned"`
}

// LifeChangeEvent records a life adjustment and the resulting total.
type LifeChangeEvent struct {
	Player Seat `json:"player"`
	Delta  int  `json:"delta"`
	Life   int  `json:"life"`
}

// EndTurnEvent records the seat and phase now active after the turn passed.
type EndTurnEvent struct {
	ActiveSeat Seat   `json:"activeSeat"`
	Phase      string `json:"phase"`
}

func (DrawCardEvent) isEventPayload()    {}
func (ShuffleDeckEvent) isEventPayload() {}
func (MoveCardEvent) isEventPayload()    {}
func (MulliganEvent) isEventPayload()    {}
func (LifeChangeEvent) isEventPayload()  {}
func (EndTurnEvent) isEventPayload()     {}

// MatchEvent is one record in a match's append-only log. SequenceID is
// strictly increasing per match and moves in lockstep with MatchState.Version.
// Events are never mutated or deleted.
type MatchEvent struct {
	SequenceID int64        `json:"sequenceId"`
	MatchID    uuid.UUID    `json:"matchId"`
	ActorSeat  Seat         `json:"actorSeat"`
	Type       ActionType   `json:"type"`
	RequestID  string       `json:"requestId,omitempty"`
	Payload    EventPayload `json:"payload"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// matchEventWire mirrors MatchEvent with a raw payload for two-phase decoding.
type matchEventWire struct {
	SequenceID int64           `json:"sequenceId"`
	MatchID    uuid.UUID       `json:"matchId"`
	ActorSeat  Seat            `json:"actorSeat"`
	Type       ActionType      `json:"type"`
	RequestID  string          `json:"requestId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// UnmarshalJSON decodes the payload into the concrete variant selected by the
// event's type tag.
func (e *MatchEvent) UnmarshalJSON(data []byte) error {
	var w matchEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	payload, err := UnmarshalEventPayload(w.Type, w.Payload)
	if err != nil {
		return err
	}

	e.SequenceID = w.SequenceID
	e.MatchID = w.MatchID
	e.ActorSeat = w.ActorSeat
	e.Type = w.Type
	e.RequestID = w.RequestID
	e.Payload = payload
	e.OccurredAt = w.OccurredAt
	return nil
}

// UnmarshalEventPayload decodes raw payload bytes into the variant matching
// the given action type.
func UnmarshalEventPayload(t ActionType, data []byte) (EventPayload, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	switch t {
	case ActionDrawCard:
		var p DrawCardEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionShuffleDeck:
		var p ShuffleDeckEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionMoveCard:
		var p MoveCardEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionMulligan:
		var p MulliganEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionLifeChange:
		var p LifeChangeEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionEndTurn:
		var p EndTurnEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown event type %q", t)
}
