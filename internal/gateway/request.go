// internal/gateway/request.go
package gateway

import (
	"encoding/json"

	"github.com/duelpit/duelpit/internal/models"
)

// actionEnvelope is the wire shape of every action request. RequestID is an
// optional client-supplied reference echoed into the resulting event so a
// caller that timed out can check whether its attempt committed.
type actionEnvelope struct {
	Type      models.ActionType `json:"type"`
	RequestID string            `json:"requestId,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
}

type drawCardPayload struct {
	Player models.Seat `json:"player"`
	Count  int         `json:"count"`
}

type shuffleDeckPayload struct {
	Player models.Seat `json:"player"`
}

type moveCardPayload struct {
	CardUID  string          `json:"cardUid"`
	FromSlot models.Seat     `json:"fromSlot"`
	FromZone models.ZoneKind `json:"fromZone"`
	ToSlot   models.Seat     `json:"toSlot"`
	ToZone   models.ZoneKind `json:"toZone"`
	Position models.Position `json:"position"`
}

type mulliganPayload struct {
	Player models.Seat `json:"player"`
}

type lifeChangePayload struct {
	Player models.Seat `json:"player"`
	Delta  int         `json:"delta"`
}

// ParseAction validates a raw request against its action-specific shape and
// returns the typed action plus the optional request reference. All failures
// are KindInvalidRequest: they must be reported before any mutation runs.
func ParseAction(raw []byte) (models.Action, string, error) {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fail(KindInvalidRequest, "malformed action request: %v", err)
	}
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	switch env.Type {
	case models.ActionDrawCard:
		var p drawCardPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, "", fail(KindInvalidRequest, "malformed draw-card payload: %v", err)
		}
		if !p.Player.Valid() {
			return nil, "", fail(KindInvalidRequest, "draw-card: unknown player %q", p.Player)
		}
		if p.Count < 1 {
			return nil, "", fail(KindInvalidRequest, "draw-card: count must be >= 1, got %d", p.Count)
		}
		return models.DrawCard{Player: p.Player, Count: p.Count}, env.RequestID, nil

	case models.ActionShuffleDeck:
		var p shuffleDeckPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, "", fail(KindInvalidRequest, "malformed shuffle-deck payload: %v", err)
		}
		if !p.Player.Valid() {
			return nil, "", fail(KindInvalidRequest, "shuffle-deck: unknown player %q", p.Player)
		}
		return models.ShuffleDeck{Player: p.Player}, env.RequestID, nil

	case models.ActionMoveCard:
		var p moveCardPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, "", fail(KindInvalidRequest, "malformed move-card payload: %v", err)
		}
		if p.CardUID == "" {
			return nil, "", fail(KindInvalidRequest, "move-card: missing cardUid")
		}
		if !p.FromSlot.Valid() || !p.ToSlot.Valid() {
			return nil, "", fail(KindInvalidRequest, "move-card: unknown seat")
		}
		if !p.FromZone.Valid() {
			return nil, "", fail(KindInvalidRequest, "move-card: unknown zone %q", p.FromZone)
		}
		if !p.ToZone.Valid() {
			return nil, "", fail(KindInvalidRequest, "move-card: unknown zone %q", p.ToZone)
		}
		if !p.Position.Valid() {
			return nil, "", fail(KindInvalidRequest, "move-card: position must be top or bottom, got %q", p.Position)
		}
		return models.MoveCard{
			CardUID:  p.CardUID,
			From:     models.ZoneRef{Seat: p.FromSlot, Zone: p.FromZone},
			To:       models.ZoneRef{Seat: p.ToSlot, Zone: p.ToZone},
			Position: p.Position,
		}, env.RequestID, nil

	case models.ActionMulligan:
		var p mulliganPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, "", fail(KindInvalidRequest, "malformed mulligan payload: %v", err)
		}
		if !p.Player.Valid() {
			return nil, "", fail(KindInvalidRequest, "mulligan: unknown player %q", p.Player)
		}
		return models.Mulligan{Player: p.Player}, env.RequestID, nil

	case models.ActionLifeChange:
		var p lifeChangePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, "", fail(KindInvalidRequest, "malformed life-change payload: %v", err)
		}
		if !p.Player.Valid() {
			return nil, "", fail(KindInvalidRequest, "life-change: unknown player %q", p.Player)
		}
		if p.Delta == 0 {
			return nil, "", fail(KindInvalidRequest, "life-change: delta must be non-zero")
		}
		return models.LifeChange{Player: p.Player, Delta: p.Delta}, env.RequestID, nil

	case models.ActionEndTurn:
		return models.EndTurn{}, env.RequestID, nil
	}

	return nil, "", fail(KindInvalidRequest, "unknown action type %q", env.Type)
}
