// cmd/janitor/main.go is an asynchronous janitor service that watches the
// match activity queue in Redis and marks idle matches as abandoned.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/duelpit/duelpit/internal/cache"
	"github.com/duelpit/duelpit/internal/database"
	_ "github.com/joho/godotenv/autoload"
)

// JanitorService consumes ActivityRecords from the Redis queue to track the
// last mutation time per match, and sweeps matches past the inactivity
// threshold. Events themselves are already durable in Postgres by the time
// an ActivityRecord is queued, so the janitor only manages lifecycle.
type JanitorService struct {
	redisClient  *redis.Client
	queueName    string
	inactivity   time.Duration
	sweepEvery   time.Duration
	lastActivity sync.Map // map[uuid.UUID]time.Time

	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewJanitorService constructs a JanitorService from environment variables
// or defaults.
func NewJanitorService() *JanitorService {
	inactivitySec := getEnvInt("MATCH_INACTIVITY_TIMEOUT_SEC", 600) // default 10 min
	sweepSec := getEnvInt("JANITOR_SWEEP_SEC", 60)

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &JanitorService{
		redisClient: rdb,
		queueName:   getEnv("JANITOR_QUEUE_NAME", cache.DefaultActivityQueue),
		inactivity:  time.Duration(inactivitySec) * time.Second,
		sweepEvery:  time.Duration(sweepSec) * time.Second,
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two loops: the queue consumer and the periodic sweep.
func (js *JanitorService) Run() {
	database.ConnectDB()

	go js.readQueueLoop()
	go js.sweepLoop()

	log.Println("duelpit-janitor service started.")
	<-js.ctx.Done()
	log.Println("duelpit-janitor shutting down.")
}

// readQueueLoop continuously pops ActivityRecords from the Redis queue and
// refreshes the last-seen timestamp for each match.
func (js *JanitorService) readQueueLoop() {
	for {
		select {
		case <-js.ctx.Done():
			return
		default:
			// BLPop with a 3-second timeout so context cancellation is handled.
			res, err := js.redisClient.BLPop(js.ctx, 3*time.Second, js.queueName).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && js.ctx.Err() == nil {
					log.Printf("[ERROR] BLPop: %v\n", err)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var rec cache.ActivityRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				log.Printf("invalid activity record: %v\n", err)
				continue
			}
			js.lastActivity.Store(rec.MatchID, time.UnixMilli(rec.Timestamp))
		}
	}
}

// sweepLoop periodically marks matches inactive beyond the threshold as
// abandoned and forgets them.
func (js *JanitorService) sweepLoop() {
	ticker := time.NewTicker(js.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-js.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			js.lastActivity.Range(func(key, val interface{}) bool {
				matchID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > js.inactivity {
					js.abandonMatch(matchID)
					js.lastActivity.Delete(matchID)
				}
				return true
			})
		}
	}
}

// abandonMatch flips a still-running match to 'abandoned'.
func (js *JanitorService) abandonMatch(matchID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.MarkMatchAbandoned(ctx, matchID); err != nil {
		log.Printf("failed to mark match %v abandoned: %v", matchID, err)
		return
	}
	log.Printf("Marked match %v as 'abandoned' due to inactivity.", matchID)
}

// Stop gracefully stops the janitor service.
func (js *JanitorService) Stop() {
	js.cancelFn()
}

func main() {
	js := NewJanitorService()
	go js.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	js.Stop()
	log.Println("Janitor shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or
// returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
