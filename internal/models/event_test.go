// internal/models/event_test.go
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEventDecodeByTypeTag(t *testing.T) {
	matchID := uuid.New()
	ev := MatchEvent{
		SequenceID: 7,
		MatchID:    matchID,
		ActorSeat:  SeatP2,
		Type:       ActionMoveCard,
		RequestID:  "req-9",
		Payload: MoveCardEvent{
			CardUID:  "card-1",
			FromSlot: SeatP2,
			FromZone: ZoneHand,
			ToSlot:   SeatP1,
			ToZone:   ZoneBattlefield,
			Position: PositionTop,
		},
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got MatchEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ev, got, "payload decodes into the concrete variant")

	_, ok := got.Payload.(MoveCardEvent)
	assert.True(t, ok)
}

func TestMatchEventDecodeUnknownType(t *testing.T) {
	raw := `{"sequenceId":1,"matchId":"` + uuid.NewString() + `","actorSeat":"p1","type":"teleport","payload":{}}`
	var got MatchEvent
	assert.Error(t, json.Unmarshal([]byte(raw), &got))
}

func TestMatchStateJSONShape(t *testing.T) {
	s := &MatchState{
		Players: Players{
			P1: &PlayerState{Life: StartingLife, Zones: Zones{
				Deck:        []MatchCard{},
				Hand:        []MatchCard{},
				Battlefield: []MatchCard{},
				Discard:     []MatchCard{},
			}},
			P2: &PlayerState{Life: StartingLife, Zones: Zones{
				Deck:        []MatchCard{},
				Hand:        []MatchCard{},
				Battlefield: []MatchCard{},
				Discard:     []MatchCard{},
			}},
		},
		Turn:  SeatP1,
		Phase: DefaultPhase,
	}

	data, err := json.Marshal(s.Clone())
	require.NoError(t, err)

	// Empty zones serialize as arrays, never null.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	players := decoded["players"].(map[string]any)
	p1 := players["p1"].(map[string]any)
	zones := p1["zones"].(map[string]any)
	for _, zone := range []string{"deck", "hand", "battlefield", "discard"} {
		_, isArray := zones[zone].([]any)
		assert.True(t, isArray, "zone %s must be a JSON array", zone)
	}
}
