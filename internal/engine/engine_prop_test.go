// internal/engine/engine_prop_test.go
package engine

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// genAction draws a random well-formed action against the given snapshot.
// Move targets an existing card so the sequence stays on the happy path.
func genAction(t *rapid.T, s *models.MatchState) models.Action {
	seat := rapid.SampledFrom([]models.Seat{models.SeatP1, models.SeatP2}).Draw(t, "seat")

	switch rapid.IntRange(0, 5).Draw(t, "kind") {
	case 0:
		return models.DrawCard{Player: seat, Count: rapid.IntRange(1, 10).Draw(t, "count")}
	case 1:
		return models.ShuffleDeck{Player: seat}
	case 2:
		uids := s.CardUIDs()
		if len(uids) == 0 {
			return models.EndTurn{}
		}
		uid := rapid.SampledFrom(uids).Draw(t, "uid")
		fromSeat, fromZone, ok := locateCard(s, uid)
		if !ok {
			return models.EndTurn{}
		}
		return models.MoveCard{
			CardUID: uid,
			From:    models.ZoneRef{Seat: fromSeat, Zone: fromZone},
			To: models.ZoneRef{
				Seat: rapid.SampledFrom([]models.Seat{models.SeatP1, models.SeatP2}).Draw(t, "toSeat"),
				Zone: rapid.SampledFrom([]models.ZoneKind{
					models.ZoneDeck, models.ZoneHand, models.ZoneBattlefield, models.ZoneDiscard,
				}).Draw(t, "toZone"),
			},
			Position: rapid.SampledFrom([]models.Position{models.PositionTop, models.PositionBottom}).Draw(t, "pos"),
		}
	case 3:
		return models.Mulligan{Player: seat}
	case 4:
		delta := rapid.IntRange(1, 12).Draw(t, "delta")
		if rapid.Bool().Draw(t, "neg") {
			delta = -delta
		}
		return models.LifeChange{Player: seat, Delta: delta}
	default:
		return models.EndTurn{}
	}
}

func locateCard(s *models.MatchState, uid string) (models.Seat, models.ZoneKind, bool) {
	for _, seat := range []models.Seat{models.SeatP1, models.SeatP2} {
		for _, kind := range []models.ZoneKind{
			models.ZoneDeck, models.ZoneHand, models.ZoneBattlefield, models.ZoneDiscard,
		} {
			if _, ok := s.FindCard(seat, kind, uid); ok {
				return seat, kind, true
			}
		}
	}
	return "", "", false
}

// TestMutationSequenceInvariants applies a random sequence of valid actions
// and checks the structural invariants that must survive any history: the
// card multiset never changes, version counts accepted mutations, and the
// input snapshot of each step is never mutated.
func TestMutationSequenceInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		deckSize := rapid.IntRange(0, 30).Draw(t, "deckSize")
		seed := rapid.Int64().Draw(t, "seed")
		steps := rapid.IntRange(1, 25).Draw(t, "steps")

		specs := make([]models.CardSpec, deckSize)
		for i := range specs {
			specs[i] = models.CardSpec{Name: "Card"}
		}
		rng := rand.New(rand.NewSource(seed))
		cur := NewMatchState(models.NewDeck(specs), models.NewDeck(specs), rng)

		initial := append([]string(nil), cur.CardUIDs()...)
		sort.Strings(initial)

		for i := 0; i < steps; i++ {
			act := genAction(t, cur)
			before := cur.Version

			res, err := Apply(cur, act, rng)
			if err != nil {
				t.Fatalf("step %d: valid action %T rejected: %v", i, act, err)
			}
			if cur.Version != before {
				t.Fatalf("step %d: input snapshot version mutated in place", i)
			}
			if res.State.Version != before+1 {
				t.Fatalf("step %d: version went %d -> %d", i, before, res.State.Version)
			}

			uids := res.State.CardUIDs()
			sort.Strings(uids)
			if len(uids) != len(initial) {
				t.Fatalf("step %d: card count changed from %d to %d", i, len(initial), len(uids))
			}
			for j := range uids {
				if uids[j] != initial[j] {
					t.Fatalf("step %d: card multiset changed at %d", i, j)
				}
			}
			cur = res.State
		}
	})
}

// TestShufflePreservesDeck checks that shuffling is a permutation for any
// deck size and seed.
func TestShufflePreservesDeck(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		deckSize := rapid.IntRange(0, 60).Draw(t, "deckSize")
		seed := rapid.Int64().Draw(t, "seed")

		cards := make([]models.MatchCard, deckSize)
		for i := range cards {
			cards[i] = models.MatchCard{UID: uuid.NewString(), Name: "c"}
		}
		before := make([]string, deckSize)
		for i, c := range cards {
			before[i] = c.UID
		}

		fisherYates(cards, rand.New(rand.NewSource(seed)))

		after := make([]string, deckSize)
		for i, c := range cards {
			after[i] = c.UID
		}
		sort.Strings(before)
		sort.Strings(after)
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("shuffle lost or duplicated a card at %d", i)
			}
		}
	})
}
