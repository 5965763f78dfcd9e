// internal/models/action.go
package models

// ActionType discriminates the action taxonomy on the wire and in the event
// log. One engine function exists per type.
type ActionType string

const (
	ActionDrawCard    ActionType = "draw-card"
	ActionShuffleDeck ActionType = "shuffle-deck"
	ActionMoveCard    ActionType = "move-card"
	ActionMulligan    ActionType = "mulligan"
	ActionLifeChange  ActionType = "life-change"
	ActionEndTurn     ActionType = "end-turn"
)

// Action is a validated, typed player action ready for the mutation engine.
// The gateway is responsible for producing these from raw requests; the
// engine assumes the fields are well-formed.
type Action interface {
	ActionType() ActionType
}

// ZoneRef addresses one zone of one seat.
type ZoneRef struct {
	Seat Seat
	Zone ZoneKind
}

// DrawCard moves up to Count cards from the front of Player's deck to the
// front of their hand.
type DrawCard struct {
	Player Seat
	Count  int
}

func (DrawCard) ActionType() ActionType { return ActionDrawCard }

// ShuffleDeck randomizes the order of Player's deck.
type ShuffleDeck struct {
	Player Seat
}

func (ShuffleDeck) ActionType() ActionType { return ActionShuffleDeck }

// MoveCard relocates one card between (or within) zones, inserting at the
// top or bottom of the destination.
type MoveCard struct {
	CardUID  string
	From     ZoneRef
	To       ZoneRef
	Position Position
}

func (MoveCard) ActionType() ActionType { return ActionMoveCard }

// Mulligan returns Player's whole hand to the front of their deck and
// shuffles the deck. It does not redraw.
type Mulligan struct {
	Player Seat
}

func (Mulligan) ActionType() ActionType { return ActionMulligan }

// LifeChange applies a non-zero delta to Player's life total.
type LifeChange struct {
	Player Seat
	Delta  int
}

func (LifeChange) ActionType() ActionType { return ActionLifeChange }

// EndTurn flips the active seat and resets the phase. Match-global, not
// seat-scoped.
type EndTurn struct{}

func (EndTurn) ActionType() ActionType { return ActionEndTurn }
