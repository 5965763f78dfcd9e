// internal/engine/engine.go
//
// Package engine holds the pure mutation functions for match state. Every
// function takes a snapshot and returns a new one; the input is never
// modified. No function here blocks, performs I/O, or reads ambient
// randomness: shuffling takes an explicit *rand.Rand so mutations are
// reproducible from a seed.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/duelpit/duelpit/internal/models"
)

var (
	// ErrInvalidAction marks an action whose parameters cannot be applied to
	// any state (bad seat, bad zone, zero delta).
	ErrInvalidAction = errors.New("invalid action")

	// ErrCardNotFound marks a move whose card uid is absent from the declared
	// source zone. The caller's view of the match is stale.
	ErrCardNotFound = errors.New("card not found in source zone")
)

// Result is the outcome of one accepted mutation: the next snapshot (version
// bumped by exactly 1) and the event detail describing what changed.
type Result struct {
	State   *models.MatchState
	Payload models.EventPayload
}

// Apply dispatches a typed action to its mutation function. It is the single
// entry point the gateway uses; rng is only consulted by shuffle and mulligan.
func Apply(state *models.MatchState, act models.Action, rng *rand.Rand) (Result, error) {
	switch a := act.(type) {
	case models.DrawCard:
		return DrawCards(state, a.Player, a.Count)
	case models.ShuffleDeck:
		return ShuffleDeckOf(state, a.Player, rng)
	case models.MoveCard:
		return MoveCard(state, a.CardUID, a.From, a.To, a.Position)
	case models.Mulligan:
		return MulliganHand(state, a.Player, rng)
	case models.LifeChange:
		return AdjustLife(state, a.Player, a.Delta)
	case models.EndTurn:
		return PassTurn(state)
	}
	return Result{}, fmt.Errorf("%w: unhandled action %T", ErrInvalidAction, act)
}

// DrawCards moves up to count cards from the front of the seat's deck to the
// front of their hand, preserving relative order among the drawn cards.
// Drawing from an empty or short deck draws what is available; it never fails.
func DrawCards(state *models.MatchState, seat models.Seat, count int) (Result, error) {
	if count < 1 {
		return Result{}, fmt.Errorf("%w: draw count must be >= 1, got %d", ErrInvalidAction, count)
	}
	next := state.Clone()
	p := next.Player(seat)
	if p == nil {
		return Result{}, fmt.Errorf("%w: unknown seat %q", ErrInvalidAction, seat)
	}

	n := count
	if n > len(p.Zones.Deck) {
		n = len(p.Zones.Deck)
	}
	drawn := p.Zones.Deck[:n]
	uids := make([]string, n)
	for i, c := range drawn {
		uids[i] = c.UID
	}

	hand := make([]models.MatchCard, 0, n+len(p.Zones.Hand))
	hand = append(hand, drawn...)
	hand = append(hand, p.Zones.Hand...)
	p.Zones.Hand = hand
	remaining := make([]models.MatchCard, len(p.Zones.Deck)-n)
	copy(remaining, p.Zones.Deck[n:])
	p.Zones.Deck = remaining

	next.Version++
	return Result{
		State:   next,
		Payload: models.DrawCardEvent{Player: seat, Requested: count, Drawn: uids},
	}, nil
}

// ShuffleDeckOf produces a uniformly random permutation of the seat's deck.
// Card identities are preserved; only order changes.
func ShuffleDeckOf(state *models.MatchState, seat models.Seat, rng *rand.Rand) (Result, error) {
	next := state.Clone()
	p := next.Player(seat)
	if p == nil {
		return Result{}, fmt.Errorf("%w: unknown seat %q", ErrInvalidAction, seat)
	}

	fisherYates(p.Zones.Deck, rng)

	next.Version++
	return Result{
		State:   next,
		Payload: models.ShuffleDeckEvent{Player: seat, DeckSize: len(p.Zones.Deck)},
	}, nil
}

// MoveCard removes the card from the source zone and inserts it at the top or
// bottom of the destination zone. Any zone-to-zone move is legal, including
// within the same zone; the engine is deliberately rule-agnostic.
func MoveCard(state *models.MatchState, cardUID string, from, to models.ZoneRef, pos models.Position) (Result, error) {
	if !from.Seat.Valid() || !to.Seat.Valid() || !from.Zone.Valid() || !to.Zone.Valid() {
		return Result{}, fmt.Errorf("%w: bad zone reference", ErrInvalidAction)
	}
	if !pos.Valid() {
		return Result{}, fmt.Errorf("%w: bad position %q", ErrInvalidAction, pos)
	}

	idx, ok := state.FindCard(from.Seat, from.Zone, cardUID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s not in %s/%s", ErrCardNotFound, cardUID, from.Seat, from.Zone)
	}

	next := state.Clone()
	src := next.Player(from.Seat).Zones.Zone(from.Zone)
	card := (*src)[idx]
	*src = append((*src)[:idx], (*src)[idx+1:]...)

	dst := next.Player(to.Seat).Zones.Zone(to.Zone)
	if pos == models.PositionTop {
		*dst = append([]models.MatchCard{card}, *dst...)
	} else {
		*dst = append(*dst, card)
	}

	next.Version++
	return Result{
		State: next,
		Payload: models.MoveCardEvent{
			CardUID:  cardUID,
			FromSlot: from.Seat,
			FromZone: from.Zone,
			ToSlot:   to.Seat,
			ToZone:   to.Zone,
			Position: pos,
		},
	}, nil
}

// MulliganHand returns the seat's whole hand to the front of their deck,
// preserving relative order, then shuffles the deck. It does not redraw.
func MulliganHand(state *models.MatchState, seat models.Seat, rng *rand.Rand) (Result, error) {
	next := state.Clone()
	p := next.Player(seat)
	if p == nil {
		return Result{}, fmt.Errorf("%w: unknown seat %q", ErrInvalidAction, seat)
	}

	returned := len(p.Zones.Hand)
	deck := make([]models.MatchCard, 0, returned+len(p.Zones.Deck))
	deck = append(deck, p.Zones.Hand...)
	deck = append(deck, p.Zones.Deck...)
	p.Zones.Hand = []models.MatchCard{}
	p.Zones.Deck = deck
	fisherYates(p.Zones.Deck, rng)

	next.Version++
	return Result{
		State:   next,
		Payload: models.MulliganEvent{Player: seat, Returned: returned},
	}, nil
}

// AdjustLife applies a non-zero delta to the seat's life total. There is no
// floor or ceiling; negative totals are fine.
func AdjustLife(state *models.MatchState, seat models.Seat, delta int) (Result, error) {
	if delta == 0 {
		return Result{}, fmt.Errorf("%w: life delta must be non-zero", ErrInvalidAction)
	}
	next := state.Clone()
	p := next.Player(seat)
	if p == nil {
		return Result{}, fmt.Errorf("%w: unknown seat %q", ErrInvalidAction, seat)
	}

	p.Life += delta

	next.Version++
	return Result{
		State:   next,
		Payload: models.LifeChangeEvent{Player: seat, Delta: delta, Life: p.Life},
	}, nil
}

// PassTurn flips the active seat and resets the phase to the default label.
func PassTurn(state *models.MatchState) (Result, error) {
	next := state.Clone()
	next.Turn = next.Turn.Other()
	next.Phase = models.DefaultPhase

	next.Version++
	return Result{
		State:   next,
		Payload: models.EndTurnEvent{ActiveSeat: next.Turn, Phase: next.Phase},
	}, nil
}

// NewMatchState builds the version-0 snapshot for a fresh match: both decks
// shuffled, empty hands, starting life, p1 to act.
func NewMatchState(deckP1, deckP2 []models.MatchCard, rng *rand.Rand) *models.MatchState {
	p1 := newPlayerState(deckP1, rng)
	p2 := newPlayerState(deckP2, rng)
	return &models.MatchState{
		Players:   models.Players{P1: p1, P2: p2},
		Turn:      models.SeatP1,
		Phase:     models.DefaultPhase,
		CreatedAt: time.Now().UTC(),
		Version:   0,
	}
}

func newPlayerState(deck []models.MatchCard, rng *rand.Rand) *models.PlayerState {
	d := make([]models.MatchCard, len(deck))
	copy(d, deck)
	fisherYates(d, rng)
	return &models.PlayerState{
		Life: models.StartingLife,
		Zones: models.Zones{
			Deck:        d,
			Hand:        []models.MatchCard{},
			Battlefield: []models.MatchCard{},
			Discard:     []models.MatchCard{},
		},
	}
}

// fisherYates shuffles cards in place: for i from the last index down to 1,
// swap element i with a uniformly chosen element in [0, i].
func fisherYates(cards []models.MatchCard, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
