// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/duelpit/duelpit/internal/auth"
	"github.com/duelpit/duelpit/internal/cache"
	"github.com/duelpit/duelpit/internal/database"
	"github.com/duelpit/duelpit/internal/gateway"
	"github.com/duelpit/duelpit/internal/handlers"
	"github.com/duelpit/duelpit/internal/middleware"
	"github.com/duelpit/duelpit/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	auth.Init()
	database.ConnectDB()
	defer database.DB.Close()
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	stateStore := store.NewPostgresStore(database.DB)
	broadcaster := cache.NewBroadcaster(cache.Rdb)

	gw := &gateway.Gateway{
		Store:     stateStore,
		Seats:     database.Seats{},
		Publisher: broadcaster,
		Logger:    logger,
	}

	s := &handlers.MatchServer{
		Gateway:    gw,
		Store:      stateStore,
		Subscriber: broadcaster,
	}

	logged := middleware.LogMiddleware(logger)
	recovered := middleware.RecoverMiddleware(logger)
	wrap := func(h http.HandlerFunc) http.Handler {
		return recovered(logged(h))
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.Handle("/user/create", wrap(handlers.CreateUserHandler))
	mux.Handle("/user/login", wrap(handlers.LoginHandler))

	// match lifecycle
	mux.Handle("/match/create", wrap(handlers.CreateMatchHandler(logger, s)))
	mux.Handle("/match/join", wrap(handlers.JoinMatchHandler(logger, s)))

	// match state, history and actions
	mux.Handle("/match/state/", wrap(handlers.MatchStateHandler(logger, s)))
	mux.Handle("/match/events/", wrap(handlers.MatchEventsHandler(logger, s)))
	mux.Handle("/match/action/", wrap(handlers.MatchActionHandler(logger, s)))

	// match websocket
	mux.Handle("/match/ws/", wrap(handlers.MatchWSHandler(logger, s)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
