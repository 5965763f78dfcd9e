// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultActivityQueue is the Redis list the janitor consumes to track
// per-match activity.
var DefaultActivityQueue = "duelpit_match_activity"

// ActivityRecord is the compact per-mutation note pushed to the janitor
// queue. It carries just enough to attribute activity to a match.
type ActivityRecord struct {
	MatchID    uuid.UUID         `json:"match_id"`
	SequenceID int64             `json:"sequence_id"`
	ActorSeat  models.Seat       `json:"actor_seat"`
	ActionType models.ActionType `json:"action_type"`
	Timestamp  int64             `json:"timestamp"`
}

// BroadcastMessage is the envelope published on a match's pub/sub channel
// after every committed mutation. Consumers must order by the event's
// sequenceId, not by arrival: pub/sub may reorder or duplicate under retry.
type BroadcastMessage struct {
	Event *models.MatchEvent `json:"event"`
	State *models.MatchState `json:"state"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// MatchChannel names the pub/sub channel for a match's event stream.
func MatchChannel(matchID uuid.UUID) string {
	return "duelpit:match:" + matchID.String()
}

// Broadcaster implements the gateway's Publisher over Redis pub/sub and
// doubles as the subscriber side for websocket observers.
type Broadcaster struct {
	rdb *redis.Client
}

// NewBroadcaster wraps an existing Redis client.
func NewBroadcaster(rdb *redis.Client) *Broadcaster {
	return &Broadcaster{rdb: rdb}
}

// Publish pushes the committed mutation to the match's pub/sub channel and
// notes the activity on the janitor queue. Best-effort: the mutation is
// already durable by the time this runs.
func (b *Broadcaster) Publish(ctx context.Context, matchID uuid.UUID, ev *models.MatchEvent, state *models.MatchState) error {
	msg, err := json.Marshal(BroadcastMessage{Event: ev, State: state})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}
	if err := b.rdb.Publish(ctx, MatchChannel(matchID), msg).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", MatchChannel(matchID), err)
	}

	rec := ActivityRecord{
		MatchID:    matchID,
		SequenceID: ev.SequenceID,
		ActorSeat:  ev.ActorSeat,
		ActionType: ev.Type,
		Timestamp:  ev.OccurredAt.UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActivityRecord: %w", err)
	}
	queueName := getEnv("JANITOR_QUEUE_NAME", DefaultActivityQueue)
	if err := b.rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// Subscribe opens the match's event stream and returns a channel of raw
// BroadcastMessage bytes. The returned stop function must be called to
// release the subscription; the channel closes shortly after.
func (b *Broadcaster) Subscribe(ctx context.Context, matchID uuid.UUID) (<-chan []byte, func(), error) {
	ps := b.rdb.Subscribe(ctx, MatchChannel(matchID))
	// Force the subscription to be established before reporting success.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", MatchChannel(matchID), err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { ps.Close() }
	return out, stop, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
