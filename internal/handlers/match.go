// internal/handlers/match.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/duelpit/duelpit/internal/database"
	"github.com/duelpit/duelpit/internal/engine"
	"github.com/duelpit/duelpit/internal/gateway"
	"github.com/duelpit/duelpit/internal/models"
	"github.com/duelpit/duelpit/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// placeholderDeckSize is the deck dealt when a creator submits no deck list.
const placeholderDeckSize = 40

type createMatchRequest struct {
	AllowSpectators bool `json:"allowSpectators"`
	Decks           struct {
		P1 []models.CardSpec `json:"p1"`
		P2 []models.CardSpec `json:"p2"`
	} `json:"decks"`
}

type createMatchResponse struct {
	MatchID uuid.UUID          `json:"match_id"`
	Code    string             `json:"code"`
	State   *models.MatchState `json:"state"`
}

// CreateMatchHandler creates the match row and its version-0 snapshot. The
// caller takes seat p1; missing deck lists fall back to placeholder cards.
func CreateMatchHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		// An empty body is fine; everything defaults.
		var req createMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		code, err := database.NewMatchCode()
		if err != nil {
			logger.Errorf("failed to generate match code: %v", err)
			http.Error(w, "error creating match", http.StatusInternalServerError)
			return
		}

		m := &models.Match{
			ID:              uuid.New(),
			Code:            code,
			P1UserID:        &userID,
			AllowSpectators: req.AllowSpectators,
			Status:          models.MatchInProgress,
		}
		if err := database.CreateMatch(r.Context(), m); err != nil {
			logger.Errorf("failed to create match: %v", err)
			http.Error(w, "error creating match", http.StatusInternalServerError)
			return
		}

		state := engine.NewMatchState(
			buildDeck(req.Decks.P1),
			buildDeck(req.Decks.P2),
			s.newRand(),
		)
		state.Players.P1.ID = &userID

		if err := s.Store.Create(r.Context(), m.ID, state); err != nil {
			logger.Errorf("failed to store initial state for match %s: %v", m.ID, err)
			http.Error(w, "error creating match", http.StatusInternalServerError)
			return
		}

		logger.WithFields(logrus.Fields{"match": m.ID, "code": m.Code}).Info("match created")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createMatchResponse{MatchID: m.ID, Code: m.Code, State: state})
	}
}

type joinMatchRequest struct {
	Code string `json:"code"`
}

// JoinMatchHandler seats the caller at p2 of the match with the given code.
func JoinMatchHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		var req joinMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		m, err := database.GetMatchByCode(r.Context(), strings.ToUpper(req.Code))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "match not found", http.StatusNotFound)
				return
			}
			logger.Errorf("failed to load match by code: %v", err)
			http.Error(w, "error joining match", http.StatusInternalServerError)
			return
		}

		// Rejoining your own seat is fine.
		if seat, ok := m.Seat(userID); ok {
			writeMatchState(w, r, s, m.ID, seat, logger)
			return
		}

		if err := database.OccupySeat(r.Context(), m.ID, userID); err != nil {
			if errors.Is(err, database.ErrSeatTaken) {
				http.Error(w, "match is full", http.StatusConflict)
				return
			}
			logger.Errorf("failed to occupy seat in match %s: %v", m.ID, err)
			http.Error(w, "error joining match", http.StatusInternalServerError)
			return
		}
		if err := database.SeatUserInState(r.Context(), m.ID, userID, models.SeatP2); err != nil {
			logger.Errorf("failed to record seat occupant in state for match %s: %v", m.ID, err)
		}

		logger.WithFields(logrus.Fields{"match": m.ID, "user": userID}).Info("player joined match")
		writeMatchState(w, r, s, m.ID, models.SeatP2, logger)
	}
}

// MatchStateHandler returns the latest snapshot: GET /match/state/{id}.
func MatchStateHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, ok := matchIDFromPath(w, r, "/match/state/")
		if !ok {
			return
		}
		state, err := s.Store.Load(r.Context(), matchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "match not found", http.StatusNotFound)
				return
			}
			logger.Errorf("failed to load state for match %s: %v", matchID, err)
			http.Error(w, "error loading match state", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	}
}

// MatchEventsHandler returns the event log: GET /match/events/{id}?after=N.
// The log is the authoritative causal order; clients reconcile against it
// after reconnects or submission timeouts.
func MatchEventsHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, ok := matchIDFromPath(w, r, "/match/events/")
		if !ok {
			return
		}
		var after int64
		if v := r.URL.Query().Get("after"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				http.Error(w, "invalid after parameter", http.StatusBadRequest)
				return
			}
			after = n
		}
		events, err := s.Store.Events(r.Context(), matchID, after)
		if err != nil {
			logger.Errorf("failed to load events for match %s: %v", matchID, err)
			http.Error(w, "error loading match events", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []models.MatchEvent{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	}
}

// MatchActionHandler submits one action: POST /match/action/{id} with the
// action envelope as the body. Responds with the committed snapshot and event.
func MatchActionHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		matchID, ok := matchIDFromPath(w, r, "/match/action/")
		if !ok {
			return
		}
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		raw, err := readBody(r)
		if err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		state, ev, err := s.Gateway.Submit(r.Context(), matchID, userID, raw)
		if err != nil {
			writeActionError(w, logger, matchID, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"state": state,
			"event": ev,
		})
	}
}

func writeMatchState(w http.ResponseWriter, r *http.Request, s *MatchServer, matchID uuid.UUID, seat models.Seat, logger *logrus.Logger) {
	state, err := s.Store.Load(r.Context(), matchID)
	if err != nil {
		logger.Errorf("failed to load state for match %s: %v", matchID, err)
		http.Error(w, "error loading match state", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"match_id": matchID,
		"seat":     seat,
		"state":    state,
	})
}

// writeActionError maps a gateway rejection onto an HTTP status and a
// structured JSON body carrying the error kind.
func writeActionError(w http.ResponseWriter, logger *logrus.Logger, matchID uuid.UUID, err error) {
	var actionErr *gateway.ActionError
	if !errors.As(err, &actionErr) {
		logger.Errorf("unexpected action failure for match %s: %v", matchID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch actionErr.Kind {
	case gateway.KindUnauthorized:
		status = http.StatusForbidden
	case gateway.KindInvalidRequest:
		status = http.StatusBadRequest
	case gateway.KindCardNotFound:
		status = http.StatusUnprocessableEntity
	case gateway.KindConflict:
		status = http.StatusConflict
	case gateway.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"kind":    string(actionErr.Kind),
		"message": actionErr.Error(),
	})
}

func matchIDFromPath(w http.ResponseWriter, r *http.Request, prefix string) (uuid.UUID, bool) {
	idStr := strings.TrimPrefix(r.URL.Path, prefix)
	if i := strings.Index(idStr, "/"); i != -1 {
		idStr = idStr[:i]
	}
	matchID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid match id (%s{match_id})", prefix), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return matchID, true
}

func buildDeck(specs []models.CardSpec) []models.MatchCard {
	if len(specs) == 0 {
		specs = make([]models.CardSpec, placeholderDeckSize)
		for i := range specs {
			specs[i] = models.CardSpec{Name: fmt.Sprintf("Card %d", i+1)}
		}
	}
	return models.NewDeck(specs)
}
