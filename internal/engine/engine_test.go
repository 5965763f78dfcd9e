// internal/engine/engine_test.go
package engine

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestState builds a fresh snapshot with deckSize cards per seat, using a
// fixed seed so card order is reproducible.
func newTestState(t *testing.T, deckSize int, seed int64) *models.MatchState {
	t.Helper()
	specs := make([]models.CardSpec, deckSize)
	for i := range specs {
		specs[i] = models.CardSpec{Name: "Card"}
	}
	rng := rand.New(rand.NewSource(seed))
	return NewMatchState(models.NewDeck(specs), models.NewDeck(specs), rng)
}

func sortedUIDs(s *models.MatchState) []string {
	uids := s.CardUIDs()
	sort.Strings(uids)
	return uids
}

func TestNewMatchState(t *testing.T) {
	s := newTestState(t, 40, 1)

	assert.Equal(t, int64(0), s.Version)
	assert.Equal(t, models.SeatP1, s.Turn)
	assert.Equal(t, models.DefaultPhase, s.Phase)
	for _, seat := range []models.Seat{models.SeatP1, models.SeatP2} {
		p := s.Player(seat)
		require.NotNil(t, p)
		assert.Equal(t, models.StartingLife, p.Life)
		assert.Len(t, p.Zones.Deck, 40)
		assert.Empty(t, p.Zones.Hand)
		assert.Empty(t, p.Zones.Battlefield)
		assert.Empty(t, p.Zones.Discard)
	}

	uids := s.CardUIDs()
	seen := make(map[string]bool, len(uids))
	for _, uid := range uids {
		assert.False(t, seen[uid], "duplicate uid %s", uid)
		seen[uid] = true
	}
}

func TestDrawCards(t *testing.T) {
	s := newTestState(t, 40, 1)
	top5 := make([]string, 5)
	for i, c := range s.Players.P1.Zones.Deck[:5] {
		top5[i] = c.UID
	}

	res, err := DrawCards(s, models.SeatP1, 5)
	require.NoError(t, err)

	next := res.State
	assert.Equal(t, int64(1), next.Version)
	assert.Len(t, next.Players.P1.Zones.Deck, 35)
	assert.Len(t, next.Players.P1.Zones.Hand, 5)
	for i, uid := range top5 {
		assert.Equal(t, uid, next.Players.P1.Zones.Hand[i].UID, "drawn cards keep deck order")
	}

	ev, ok := res.Payload.(models.DrawCardEvent)
	require.True(t, ok)
	assert.Equal(t, 5, ev.Requested)
	assert.Equal(t, top5, ev.Drawn)

	// input snapshot untouched
	assert.Equal(t, int64(0), s.Version)
	assert.Len(t, s.Players.P1.Zones.Deck, 40)
}

func TestDrawCardsShortDeck(t *testing.T) {
	s := newTestState(t, 3, 1)

	res, err := DrawCards(s, models.SeatP2, 10)
	require.NoError(t, err)
	assert.Len(t, res.State.Players.P2.Zones.Hand, 3)
	assert.Empty(t, res.State.Players.P2.Zones.Deck)

	ev := res.Payload.(models.DrawCardEvent)
	assert.Equal(t, 10, ev.Requested)
	assert.Len(t, ev.Drawn, 3)

	// Drawing from the now-empty deck still succeeds and bumps the version.
	res2, err := DrawCards(res.State, models.SeatP2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res2.State.Version)
	assert.Empty(t, res2.Payload.(models.DrawCardEvent).Drawn)
}

func TestDrawCardsBadInput(t *testing.T) {
	s := newTestState(t, 10, 1)

	_, err := DrawCards(s, models.SeatP1, 0)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = DrawCards(s, models.Seat("p3"), 1)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestShuffleDeterministic(t *testing.T) {
	s := newTestState(t, 40, 1)

	resA, err := ShuffleDeckOf(s, models.SeatP1, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	resB, err := ShuffleDeckOf(s, models.SeatP1, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, resA.State.Players.P1.Zones.Deck, resB.State.Players.P1.Zones.Deck,
		"same seed must yield the same permutation")
	assert.ElementsMatch(t, s.CardUIDs(), resA.State.CardUIDs(), "shuffle preserves identities")
	assert.Equal(t, int64(1), resA.State.Version)
}

func TestMoveCard(t *testing.T) {
	s := newTestState(t, 10, 1)
	uid := s.Players.P1.Zones.Deck[3].UID

	res, err := MoveCard(s, uid,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDeck},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneBattlefield},
		models.PositionTop)
	require.NoError(t, err)

	next := res.State
	assert.Len(t, next.Players.P1.Zones.Deck, 9)
	require.Len(t, next.Players.P1.Zones.Battlefield, 1)
	assert.Equal(t, uid, next.Players.P1.Zones.Battlefield[0].UID)

	// across seats, to the bottom
	res2, err := MoveCard(next, uid,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneBattlefield},
		models.ZoneRef{Seat: models.SeatP2, Zone: models.ZoneDiscard},
		models.PositionBottom)
	require.NoError(t, err)
	assert.Empty(t, res2.State.Players.P1.Zones.Battlefield)
	require.Len(t, res2.State.Players.P2.Zones.Discard, 1)
	assert.Equal(t, uid, res2.State.Players.P2.Zones.Discard[0].UID)
	assert.Equal(t, int64(2), res2.State.Version)
}

func TestMoveCardPositions(t *testing.T) {
	s := newTestState(t, 5, 1)
	first := s.Players.P1.Zones.Deck[4].UID
	second := s.Players.P1.Zones.Deck[0].UID

	res, err := MoveCard(s, first,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDeck},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneHand},
		models.PositionBottom)
	require.NoError(t, err)
	res, err = MoveCard(res.State, second,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDeck},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneHand},
		models.PositionTop)
	require.NoError(t, err)

	hand := res.State.Players.P1.Zones.Hand
	require.Len(t, hand, 2)
	assert.Equal(t, second, hand[0].UID, "top insert lands at index 0")
	assert.Equal(t, first, hand[1].UID)
}

func TestMoveCardNotFound(t *testing.T) {
	s := newTestState(t, 10, 1)
	uid := s.Players.P1.Zones.Deck[0].UID

	// wrong source zone
	_, err := MoveCard(s, uid,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneHand},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDiscard},
		models.PositionTop)
	assert.ErrorIs(t, err, ErrCardNotFound)

	// wrong seat
	_, err = MoveCard(s, uid,
		models.ZoneRef{Seat: models.SeatP2, Zone: models.ZoneDeck},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDiscard},
		models.PositionTop)
	assert.ErrorIs(t, err, ErrCardNotFound)

	// the failed move left the input snapshot untouched
	assert.Equal(t, int64(0), s.Version)
	assert.Len(t, s.Players.P1.Zones.Deck, 10)
}

func TestMoveCardBadRefs(t *testing.T) {
	s := newTestState(t, 10, 1)
	uid := s.Players.P1.Zones.Deck[0].UID

	_, err := MoveCard(s, uid,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneKind("graveyard")},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDiscard},
		models.PositionTop)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = MoveCard(s, uid,
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDeck},
		models.ZoneRef{Seat: models.SeatP1, Zone: models.ZoneDiscard},
		models.Position("middle"))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestMulligan(t *testing.T) {
	s := newTestState(t, 40, 1)
	res, err := DrawCards(s, models.SeatP1, 7)
	require.NoError(t, err)
	require.Len(t, res.State.Players.P1.Zones.Hand, 7)
	require.Len(t, res.State.Players.P1.Zones.Deck, 33)

	res2, err := MulliganHand(res.State, models.SeatP1, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	next := res2.State
	assert.Empty(t, next.Players.P1.Zones.Hand)
	assert.Len(t, next.Players.P1.Zones.Deck, 40)
	assert.Equal(t, int64(2), next.Version)
	assert.Equal(t, 7, res2.Payload.(models.MulliganEvent).Returned)
	assert.ElementsMatch(t, s.CardUIDs(), next.CardUIDs())

	// redraw after mulligan works on the reshuffled deck
	res3, err := DrawCards(next, models.SeatP1, 7)
	require.NoError(t, err)
	assert.Len(t, res3.State.Players.P1.Zones.Hand, 7)
}

func TestMulliganEmptyHand(t *testing.T) {
	s := newTestState(t, 40, 1)
	res, err := MulliganHand(s, models.SeatP2, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Payload.(models.MulliganEvent).Returned)
	assert.Equal(t, int64(1), res.State.Version)
}

func TestAdjustLife(t *testing.T) {
	s := newTestState(t, 10, 1)

	res, err := AdjustLife(s, models.SeatP1, -25)
	require.NoError(t, err)
	assert.Equal(t, -5, res.State.Players.P1.Life, "life may go negative")

	ev := res.Payload.(models.LifeChangeEvent)
	assert.Equal(t, -25, ev.Delta)
	assert.Equal(t, -5, ev.Life)

	_, err = AdjustLife(s, models.SeatP1, 0)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestPassTurn(t *testing.T) {
	s := newTestState(t, 10, 1)
	s.Phase = "combat"

	res, err := PassTurn(s)
	require.NoError(t, err)
	assert.Equal(t, models.SeatP2, res.State.Turn)
	assert.Equal(t, models.DefaultPhase, res.State.Phase)

	res2, err := PassTurn(res.State)
	require.NoError(t, err)
	assert.Equal(t, models.SeatP1, res2.State.Turn, "double end-turn returns the turn")
	assert.Equal(t, int64(2), res2.State.Version)
}

func TestApplyDispatch(t *testing.T) {
	s := newTestState(t, 10, 1)
	rng := rand.New(rand.NewSource(3))

	actions := []models.Action{
		models.DrawCard{Player: models.SeatP1, Count: 2},
		models.ShuffleDeck{Player: models.SeatP2},
		models.Mulligan{Player: models.SeatP1},
		models.LifeChange{Player: models.SeatP2, Delta: 4},
		models.EndTurn{},
	}

	cur := s
	for i, act := range actions {
		res, err := Apply(cur, act, rng)
		require.NoError(t, err, "action %d", i)
		assert.Equal(t, cur.Version+1, res.State.Version, "each mutation bumps version by exactly 1")
		assert.Equal(t, sortedUIDs(cur), sortedUIDs(res.State), "card multiset is conserved")
		cur = res.State
	}
	assert.Equal(t, int64(len(actions)), cur.Version)
	assert.Equal(t, 24, cur.Players.P2.Life)
}
