// internal/handlers/match_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/duelpit/duelpit/internal/database"
	"github.com/duelpit/duelpit/internal/gateway"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// Custom WebSocket close codes for the match socket.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	SpectatorsClosedCode = 3004 // Match does not admit spectators.
)

// wsClientMessage is what players and spectators send on the match socket.
// Only "action" (players) and "ping" are recognized.
type wsClientMessage struct {
	Type   string          `json:"type"`
	Action json.RawMessage `json:"action,omitempty"`
}

// MatchWSHandler upgrades to WebSocket for one match: /match/ws/{match_id}.
// Seated players may submit actions; everyone receives the snapshot on
// connect and every committed mutation afterwards. Consumers must order
// updates by the event's sequenceId, not by arrival.
func MatchWSHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, ok := matchIDFromPath(w, r, "/match/ws/")
		if !ok {
			return
		}

		m, err := database.GetMatchByID(r.Context(), matchID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "match not found", http.StatusNotFound)
				return
			}
			logger.Errorf("failed to load match %s: %v", matchID, err)
			http.Error(w, "error loading match", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"match"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for match %s: %v", matchID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal server error during handler exit")

		if c.Subprotocol() != "match" {
			c.Close(websocket.StatusPolicyViolation, "client must use the 'match' subprotocol")
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("user authentication failed for match %s: %v", matchID, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		seat, seated := m.Seat(userID)
		if !seated && !m.AllowSpectators {
			c.Close(SpectatorsClosedCode, "this match does not admit spectators")
			return
		}
		logger.WithFields(logrus.Fields{
			"match":     matchID,
			"user":      userID,
			"seat":      seat,
			"spectator": !seated,
		}).Info("WebSocket connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Subscribe before sending the snapshot so no committed mutation can
		// fall between the snapshot read and the first streamed update.
		updates, stop, err := s.Subscriber.Subscribe(ctx, matchID)
		if err != nil {
			logger.Errorf("failed to subscribe to match %s: %v", matchID, err)
			c.Close(websocket.StatusInternalError, "subscription failed")
			return
		}
		defer stop()

		state, err := s.Store.Load(ctx, matchID)
		if err != nil {
			logger.Errorf("failed to load state for match %s: %v", matchID, err)
			c.Close(websocket.StatusInternalError, "state load failed")
			return
		}
		sendWsMessage(ctx, c, logger, map[string]interface{}{
			"type":  "snapshot",
			"seat":  seat,
			"state": state,
		})

		go forwardUpdates(ctx, c, logger, updates)

		readMatchMessages(ctx, c, s, logger, matchID, userID, seated)
		logger.WithFields(logrus.Fields{"match": matchID, "user": userID}).Info("WebSocket disconnected")
	}
}

// forwardUpdates copies broadcast envelopes to one client until the
// subscription channel closes or the connection context ends.
func forwardUpdates(ctx context.Context, c *websocket.Conn, logger *logrus.Logger, updates <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, wrapUpdate(msg))
			cancel()
			if err != nil {
				logger.Debugf("dropping update write: %v", err)
				return
			}
		}
	}
}

// wrapUpdate tags a raw BroadcastMessage as an update frame without
// re-decoding it.
func wrapUpdate(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+24)
	out = append(out, `{"type":"update","data":`...)
	out = append(out, msg...)
	out = append(out, '}')
	return out
}

// readMatchMessages is the per-connection read loop. Spectators may only
// ping; action frames from them are rejected without touching the gateway.
func readMatchMessages(ctx context.Context, c *websocket.Conn, s *MatchServer, logger *logrus.Logger, matchID, userID uuid.UUID, seated bool) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return
			}
			logger.Warnf("error reading from WebSocket for user %s in match %s: %v", userID, matchID, err)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, logger, gateway.KindInvalidRequest, "invalid JSON format")
			continue
		}

		switch msg.Type {
		case "action":
			if !seated {
				sendWsError(ctx, c, logger, gateway.KindUnauthorized, "spectators cannot submit actions")
				continue
			}
			_, _, err := s.Gateway.Submit(ctx, matchID, userID, msg.Action)
			if err != nil {
				var actionErr *gateway.ActionError
				if errors.As(err, &actionErr) {
					sendWsError(ctx, c, logger, actionErr.Kind, actionErr.Error())
				} else {
					sendWsError(ctx, c, logger, gateway.KindStoreUnavailable, "action failed")
				}
			}
			// The committed mutation reaches this client through the
			// broadcast stream like everyone else.

		case "ping":
			sendWsMessage(ctx, c, logger, map[string]string{"type": "pong"})

		default:
			sendWsError(ctx, c, logger, gateway.KindInvalidRequest, "unknown message type "+msg.Type)
		}
	}
}

// sendWsMessage marshals and writes one frame with a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, logger *logrus.Logger, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("failed to marshal WebSocket message: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			logger.Debugf("error writing WebSocket message: %v", err)
		}
	}
}

// sendWsError sends a structured error frame mirroring the gateway taxonomy.
func sendWsError(ctx context.Context, c *websocket.Conn, logger *logrus.Logger, kind gateway.Kind, errorMsg string) {
	sendWsMessage(ctx, c, logger, map[string]interface{}{
		"type":    "error",
		"kind":    string(kind),
		"message": errorMsg,
	})
}
