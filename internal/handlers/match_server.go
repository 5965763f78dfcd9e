// internal/handlers/match_server.go
package handlers

import (
	"context"
	"math/rand"
	"time"

	"github.com/duelpit/duelpit/internal/gateway"
	"github.com/duelpit/duelpit/internal/store"
	"github.com/google/uuid"
)

// Subscriber is the read side of the broadcast channel: it yields raw
// BroadcastMessage bytes for one match until stop is called.
type Subscriber interface {
	Subscribe(ctx context.Context, matchID uuid.UUID) (<-chan []byte, func(), error)
}

// MatchServer bundles the dependencies the match endpoints share.
type MatchServer struct {
	Gateway    *gateway.Gateway
	Store      store.StateStore
	Subscriber Subscriber

	// NewRand seeds the deck shuffle at match creation. Defaults to a
	// clock-seeded generator.
	NewRand func() *rand.Rand
}

func (s *MatchServer) newRand() *rand.Rand {
	if s.NewRand != nil {
		return s.NewRand()
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
