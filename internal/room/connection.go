package room

import (
	"context"

	"github.com/jason-s-yu/virus/internal/game"
)

// outboundBuffer is how many events a slow client may fall behind before
// further events are dropped. Every game_state is a full snapshot, so the next
// one resynchronizes a client that lost some.
const outboundBuffer = 64

// Connection wraps a single player's active WebSocket connection for a room.
type Connection struct {
	PlayerID string
	Cancel   context.CancelFunc
	OutChan  chan []byte
}

// NewConnection returns a connection with a buffered outbound channel.
func NewConnection(playerID string, cancel context.CancelFunc) *Connection {
	return &Connection{
		PlayerID: playerID,
		Cancel:   cancel,
		OutChan:  make(chan []byte, outboundBuffer),
	}
}

// Write queues an event without blocking. It reports false if the buffer was full.
func (conn *Connection) Write(ev game.GameEvent) bool {
	select {
	case conn.OutChan <- ev.Bytes():
		return true
	default:
		return false
	}
}

// WriteError queues an error event for the client.
func (conn *Connection) WriteError(msg string) {
	conn.Write(game.GameEvent{Type: game.EventError, Message: msg})
}
