package room

import (
	"sync"
	"time"

	"github.com/jason-s-yu/virus/internal/game"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle stage of a room.
type Status string

const (
	StatusLobby  Status = "lobby"
	StatusInGame Status = "in_game"
	StatusEnded  Status = "ended"
)

// Member is one entry of a room's roster.
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Info is the public description of a room.
type Info struct {
	ID         string          `json:"id"`
	HostID     string          `json:"hostId"`
	Status     Status          `json:"status"`
	Players    []Member        `json:"players"`
	Rules      game.HouseRules `json:"rules"`
	MaxPlayers int             `json:"maxPlayers"`
}

// Room is a registry entry: a roster in join order, its host and its game.
//
// Lock order is Registry.mu, then Room.mu, then Game.Mu. connMu is a leaf: it
// is taken from game callbacks while Game.Mu is held and never held while
// acquiring another lock.
type Room struct {
	ID string

	mu         sync.Mutex
	live       *game.VirusGame // nil until the first start
	hostID     string
	rules      game.HouseRules
	members    []*Member
	emptySince *time.Time
	gcTimer    *time.Timer
	maxPlayers int

	connMu sync.Mutex
	conns  map[string]*Connection

	logger logrus.FieldLogger
}

func newRoom(id, hostID string, rules game.HouseRules, maxPlayers int, logger logrus.FieldLogger) *Room {
	return &Room{
		ID:         id,
		hostID:     hostID,
		rules:      rules,
		maxPlayers: maxPlayers,
		conns:      make(map[string]*Connection),
		logger:     logger.WithField("room", id),
	}
}

// HostID returns the current host.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Rules returns the room's house rules.
func (r *Room) Rules() game.HouseRules {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules
}

// EmptySince returns when the room last became empty, or nil while anyone is connected.
func (r *Room) EmptySince() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emptySince == nil {
		return nil
	}
	t := *r.emptySince
	return &t
}

// Game returns the live game, or nil while the room is a lobby.
func (r *Room) Game() *game.VirusGame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Status derives the lifecycle stage from the game.
func (r *Room) Status() Status {
	g := r.Game()
	if g == nil {
		return StatusLobby
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.State.GameEnded {
		return StatusEnded
	}
	return StatusInGame
}

// Info snapshots the room for HTTP responses and room_update events.
func (r *Room) Info() Info {
	status := r.Status()
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		ID:         r.ID,
		HostID:     r.hostID,
		Status:     status,
		Players:    r.membersLocked(),
		Rules:      r.rules,
		MaxPlayers: r.maxPlayers,
	}
}

// HasMember reports whether playerID is on the roster.
func (r *Room) HasMember(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberLocked(playerID) != nil
}

func (r *Room) membersLocked() []Member {
	out := make([]Member, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

func (r *Room) memberLocked(playerID string) *Member {
	for _, m := range r.members {
		if m.ID == playerID {
			return m
		}
	}
	return nil
}

func (r *Room) connectedLocked() int {
	n := 0
	for _, m := range r.members {
		if m.Connected {
			n++
		}
	}
	return n
}

func (r *Room) removeMemberLocked(playerID string) {
	for i, m := range r.members {
		if m.ID == playerID {
			r.members = append(r.members[:i:i], r.members[i+1:]...)
			break
		}
	}
	if r.hostID == playerID && len(r.members) > 0 {
		r.hostID = r.members[0].ID
	}
}

// cancelGCLocked clears the empty marker and stops a pending GC.
func (r *Room) cancelGCLocked() {
	r.emptySince = nil
	if r.gcTimer != nil {
		r.gcTimer.Stop()
		r.gcTimer = nil
	}
}

// Attach registers the player's live connection, replacing and closing any older one.
func (r *Room) Attach(conn *Connection) {
	r.connMu.Lock()
	old := r.conns[conn.PlayerID]
	r.conns[conn.PlayerID] = conn
	r.connMu.Unlock()

	if old != nil && old != conn && old.Cancel != nil {
		old.Cancel()
	}
}

// Detach removes conn if it is still the player's active connection.
func (r *Room) Detach(conn *Connection) bool {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conns[conn.PlayerID] != conn {
		return false
	}
	delete(r.conns, conn.PlayerID)
	return true
}

// SendTo delivers ev to one player's connection, if any.
func (r *Room) SendTo(playerID string, ev game.GameEvent) {
	r.connMu.Lock()
	conn := r.conns[playerID]
	r.connMu.Unlock()

	if conn == nil {
		return
	}
	if !conn.Write(ev) {
		r.logger.WithFields(logrus.Fields{"player": playerID, "type": ev.Type}).Warn("outbound buffer full, event dropped")
	}
}

// Broadcast delivers ev to every attached connection.
func (r *Room) Broadcast(ev game.GameEvent) {
	r.connMu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.connMu.Unlock()

	for _, c := range conns {
		c.Write(ev)
	}
}

// BroadcastRoomUpdate sends the roster to everyone.
func (r *Room) BroadcastRoomUpdate() {
	info := r.Info()
	players := make([]game.EventUser, len(info.Players))
	for i, m := range info.Players {
		players[i] = game.EventUser{ID: m.ID, Name: m.Name}
	}
	connected := make(map[string]interface{}, len(info.Players))
	for _, m := range info.Players {
		connected[m.ID] = m.Connected
	}
	r.Broadcast(game.GameEvent{
		Type:    game.EventRoomUpdate,
		Players: players,
		Payload: map[string]interface{}{
			"roomId":    info.ID,
			"hostId":    info.HostID,
			"status":    info.Status,
			"connected": connected,
			"rules":     info.Rules,
		},
	})
}

// updateRules applies a host's rule change while the room is still a lobby.
func (r *Room) updateRules(playerID string, changes map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live != nil {
		return ErrGameStarted
	}
	if playerID != r.hostID {
		return ErrNotHost
	}
	rules, err := game.ParseRules(changes, r.rules)
	if err != nil {
		return err
	}
	r.rules = rules
	return nil
}
