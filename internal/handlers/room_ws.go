// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/virus/internal/game"
	"github.com/jason-s-yu/virus/internal/middleware"
	"github.com/jason-s-yu/virus/internal/room"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "virus"

// Room-level message types handled alongside game actions.
const (
	msgStartGame   = "start-game"
	msgUpdateRules = "update-rules"
	msgSync        = "sync"
	msgLeave       = "leave"
)

// Inbound messages are throttled per connection: bursts of 10, then one per 100ms.
const (
	inboundBurst = 10
	inboundEvery = 100 * time.Millisecond
)

type inboundMessage struct {
	Type  string                 `json:"type"`
	Rules map[string]interface{} `json:"rules,omitempty"`
}

// RoomWSHandler upgrades a seated player's connection and runs its read and write pumps.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	remoteAddr := r.RemoteAddr

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: s.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the virus subprotocol")
		return
	}

	rm, ok := s.Registry.GetRoom(roomID)
	if !ok {
		c.Close(InvalidRoomIDError, "room does not exist")
		return
	}
	seat, err := s.Tokens.AuthenticateForRoom(requestToken(r), rm.ID)
	if err != nil {
		s.logger.WithError(err).WithField("room", rm.ID).Warn("websocket authentication failed")
		c.Close(InvalidAuthTokenError, "invalid session token")
		return
	}

	// A token may outlive a lobby seat, so the player is re-seated if needed.
	if _, err := s.Registry.JoinRoom(rm.ID, seat.PlayerID, r.URL.Query().Get("name")); err != nil {
		c.Close(NotSeatedError, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn := room.NewConnection(seat.PlayerID, cancel)
	if err := s.Registry.Connect(rm, conn); err != nil {
		c.Close(NotSeatedError, err.Error())
		return
	}

	logger := s.logger.WithFields(logrus.Fields{"room": rm.ID, "player": seat.PlayerID})
	middleware.LogWebSocketConnect(s.logger, remoteAddr, r.URL.Path)

	if g := rm.Game(); g != nil {
		g.SendSyncState(seat.PlayerID)
	}

	go writePump(ctx, c, conn, logger)
	err = s.readPump(ctx, c, rm, conn, logger)

	s.Registry.Disconnect(rm, conn)
	middleware.LogWebSocketDisconnect(s.logger, remoteAddr, r.URL.Path, err)
	if ctx.Err() != nil && r.Context().Err() == nil {
		c.Close(ReplacedError, "connection replaced by a newer one")
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// readPump decodes inbound messages until the connection closes. Every message
// is handled to completion before the next is read, so one player's actions
// apply in the order they were sent.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, rm *room.Room, conn *room.Connection, logger logrus.FieldLogger) error {
	l := rate.NewLimiter(rate.Every(inboundEvery), inboundBurst)
	for {
		if err := l.Wait(ctx); err != nil {
			return nil
		}
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("received non-text message type %d, ignoring", typ)
			continue
		}

		var packet inboundMessage
		if err := json.Unmarshal(msg, &packet); err != nil {
			conn.WriteError("Invalid JSON format")
			continue
		}
		if packet.Type == msgLeave {
			return nil
		}
		s.handleMessage(rm, conn, packet, msg, logger)
	}
}

func (s *Server) handleMessage(rm *room.Room, conn *room.Connection, packet inboundMessage, raw []byte, logger logrus.FieldLogger) {
	playerID := conn.PlayerID

	switch packet.Type {
	case msgStartGame:
		if err := s.Registry.StartGameAs(rm.ID, playerID); err != nil {
			conn.WriteError(err.Error())
		}
	case msgUpdateRules:
		if err := s.Registry.UpdateRules(rm.ID, playerID, packet.Rules); err != nil {
			conn.WriteError(err.Error())
		}
	case msgSync:
		if g := rm.Game(); g != nil {
			g.SendSyncState(playerID)
		} else {
			rm.BroadcastRoomUpdate()
		}
	default:
		action, err := game.DecodeAction(raw)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		out, err := s.Registry.Apply(rm.ID, playerID, action)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		if !out.Applied && len(out.Notifications) == 0 && out.Reason != "" {
			conn.Write(game.GameEvent{
				Type: game.EventNotification,
				Notification: &game.Notification{
					PlayerID: playerID,
					Message:  out.Reason,
					Severity: game.SeverityWarning,
				},
			})
		}
		logger.WithFields(logrus.Fields{"action": action.Type(), "applied": out.Applied}).Debug("action handled")
	}
}

// writePump drains the connection's outbound channel onto the socket and pings
// periodically so dead peers are noticed.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Connection, logger logrus.FieldLogger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-conn.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket: %v", err)
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed: %v", err)
				conn.Cancel()
				return
			}
		}
	}
}
