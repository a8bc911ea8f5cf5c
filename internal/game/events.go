package game

import (
	"encoding/json"
)

// GameEventType is the "type" field of every outbound message.
type GameEventType string

const (
	EventGameState    GameEventType = "game_state"   // per-viewer snapshot
	EventNotification GameEventType = "notification" // private message to one player
	EventNarration    GameEventType = "narration"    // description of the last action, sent to everyone
	EventRoomUpdate   GameEventType = "room_update"  // roster change
	EventGameEnd      GameEventType = "game_end"     // winner announcement
	EventError        GameEventType = "error"        // malformed or rejected message
)

// Severity is how a client should style a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Notification is addressed to a single player.
type Notification struct {
	PlayerID string   `json:"playerId"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// EventUser identifies a player inside an event payload.
type EventUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GameEvent holds data about an event that can be broadcast to the clients in a consistent format.
type GameEvent struct {
	Type         GameEventType `json:"type"`
	State        *Snapshot     `json:"state,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Message      string        `json:"message,omitempty"`
	Winner       *EventUser    `json:"winner,omitempty"`
	Players      []EventUser   `json:"players,omitempty"`

	// Payload carries miscellaneous fields, e.g. the room code or host on room_update.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bytes marshals the event, falling back to an empty object.
func (ev GameEvent) Bytes() []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		return []byte("{}")
	}
	return data
}
