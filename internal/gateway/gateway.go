// internal/gateway/gateway.go
//
// Package gateway is the only component allowed to drive the mutation engine
// against the durable store. It resolves the caller's seat, validates the
// action payload, applies the mutation to a freshly loaded snapshot, and
// commits with a conditional write retried across version conflicts.
package gateway

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/duelpit/duelpit/internal/engine"
	"github.com/duelpit/duelpit/internal/models"
	"github.com/duelpit/duelpit/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotSeated is returned by SeatResolver implementations when the caller
// occupies neither seat of the match.
var ErrNotSeated = errors.New("caller is not seated in this match")

// defaultMaxAttempts bounds the internal conflict-retry loop. Contention
// between two well-behaved players resolves well within this.
const defaultMaxAttempts = 3

// SeatResolver maps an authenticated caller to their seat in a match.
type SeatResolver interface {
	Resolve(ctx context.Context, matchID, userID uuid.UUID) (models.Seat, error)
}

// Publisher fans a committed mutation out to observers. Publication happens
// after the durable write; a publish failure never unwinds the mutation.
type Publisher interface {
	Publish(ctx context.Context, matchID uuid.UUID, ev *models.MatchEvent, state *models.MatchState) error
}

// Gateway is stateless between calls; all match state lives in the store.
// Zero-value optional fields fall back to sensible defaults.
type Gateway struct {
	Store     store.StateStore
	Seats     SeatResolver
	Publisher Publisher // optional
	Logger    *logrus.Logger

	// MaxAttempts overrides the conflict-retry bound (default 3).
	MaxAttempts int

	// NewRand supplies the random source for shuffles. Tests inject a seeded
	// generator here; the default seeds from the clock per submission.
	NewRand func() *rand.Rand

	// Now supplies event timestamps (default time.Now).
	Now func() time.Time
}

// Submit runs one action request end to end and returns the committed
// snapshot plus the event it produced. Every error is an *ActionError.
func (gw *Gateway) Submit(ctx context.Context, matchID, callerID uuid.UUID, raw []byte) (*models.MatchState, *models.MatchEvent, error) {
	seat, err := gw.Seats.Resolve(ctx, matchID, callerID)
	if err != nil {
		if errors.Is(err, ErrNotSeated) {
			return nil, nil, fail(KindUnauthorized, "user %s holds no seat in match %s", callerID, matchID)
		}
		return nil, nil, fail(KindStoreUnavailable, "resolve seat: %v", err)
	}

	act, requestID, err := ParseAction(raw)
	if err != nil {
		return nil, nil, err
	}

	rng := gw.newRand()
	attempts := gw.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		state, err := gw.Store.Load(ctx, matchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, fail(KindInvalidRequest, "no state for match %s", matchID)
			}
			return nil, nil, fail(KindStoreUnavailable, "load match state: %v", err)
		}

		res, err := engine.Apply(state, act, rng)
		if err != nil {
			if errors.Is(err, engine.ErrCardNotFound) {
				return nil, nil, &ActionError{Kind: KindCardNotFound, Err: err}
			}
			return nil, nil, &ActionError{Kind: KindInvalidRequest, Err: err}
		}

		ev := &models.MatchEvent{
			SequenceID: res.State.Version,
			MatchID:    matchID,
			ActorSeat:  seat,
			Type:       act.ActionType(),
			RequestID:  requestID,
			Payload:    res.Payload,
			OccurredAt: gw.now().UTC(),
		}

		err = gw.Store.CompareAndSwap(ctx, matchID, state.Version, res.State, ev)
		if err == nil {
			gw.publish(ctx, matchID, ev, res.State)
			return res.State, ev, nil
		}
		if errors.Is(err, store.ErrVersionConflict) {
			if gw.Logger != nil {
				gw.Logger.WithFields(logrus.Fields{
					"match":   matchID,
					"action":  act.ActionType(),
					"attempt": attempt,
				}).Debug("version conflict, retrying")
			}
			continue
		}
		return nil, nil, fail(KindStoreUnavailable, "commit mutation: %v", err)
	}

	return nil, nil, fail(KindConflict, "match %s stayed contended for %d attempts", matchID, attempts)
}

func (gw *Gateway) publish(ctx context.Context, matchID uuid.UUID, ev *models.MatchEvent, state *models.MatchState) {
	if gw.Publisher == nil {
		return
	}
	if err := gw.Publisher.Publish(ctx, matchID, ev, state); err != nil && gw.Logger != nil {
		gw.Logger.WithFields(logrus.Fields{
			"match":    matchID,
			"sequence": ev.SequenceID,
		}).Warnf("broadcast publish failed: %v", err)
	}
}

func (gw *Gateway) newRand() *rand.Rand {
	if gw.NewRand != nil {
		return gw.NewRand()
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func (gw *Gateway) now() time.Time {
	if gw.Now != nil {
		return gw.Now()
	}
	return time.Now()
}
