// Package room multiplexes many independent games, one per room code.
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/game"
	"github.com/jason-s-yu/virus/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRoomNotFound is returned when no room has the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists is returned by CreateRoom for a code already in use.
	ErrRoomExists = errors.New("room already exists")
	// ErrNotHost is returned for host-only operations attempted by someone else.
	ErrNotHost = errors.New("only the host can do that")
	// ErrGameStarted is returned for lobby-only operations once the game has started.
	ErrGameStarted = errors.New("the game has already started")
	// ErrNotEnoughPlayers is returned when starting with fewer than the minimum.
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	// ErrClosed is returned after the registry has shut down.
	ErrClosed = errors.New("registry is closed")
	// ErrNotMember is returned by Connect for a player who holds no seat.
	ErrNotMember = errors.New("player is not seated in this room")
)

// Join failure reasons.
const (
	ReasonRoomFull           = "room_full"
	ReasonGameAlreadyStarted = "game_already_started"
)

// JoinError is a recoverable join failure the client should show to the user.
type JoinError struct {
	Reason string
}

func (e *JoinError) Error() string {
	return "cannot join room: " + e.Reason
}

// Options configure every room the registry creates.
type Options struct {
	MaxPlayers     int
	MinPlayers     int
	EmptyRoomGrace time.Duration
	Rules          game.HouseRules
	Deck           game.DeckConfig

	// Publisher receives game action records. Optional.
	Publisher game.ActionPublisher
	// Archive stores finished games. Optional.
	Archive database.Archive

	// NewEngine overrides engine construction, e.g. with a seeded source in tests.
	NewEngine func(rules game.HouseRules, deck game.DeckConfig) *game.Engine
}

// DefaultOptions: 2-4 players, five minute grace, standard deck.
func DefaultOptions() Options {
	return Options{
		MaxPlayers:     4,
		MinPlayers:     2,
		EmptyRoomGrace: 5 * time.Minute,
		Rules:          game.DefaultHouseRules(),
		Deck:           game.DefaultDeckConfig(),
	}
}

// Registry owns every live room.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	closed bool

	opts   Options
	logger logrus.FieldLogger
}

// NewRegistry builds an empty registry. Zero-valued options fall back to DefaultOptions.
func NewRegistry(opts Options, logger logrus.FieldLogger) *Registry {
	def := DefaultOptions()
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = def.MaxPlayers
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = def.MinPlayers
	}
	if opts.EmptyRoomGrace <= 0 {
		opts.EmptyRoomGrace = def.EmptyRoomGrace
	}
	if opts.Rules.HandSize <= 0 {
		opts.Rules = def.Rules
	}
	if opts.Deck.Size() == 0 {
		opts.Deck = def.Deck
	}
	if opts.NewEngine == nil {
		opts.NewEngine = game.NewEngine
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		opts:   opts,
		logger: logger,
	}
}

// GetRoom returns the room with the given code.
func (reg *Registry) GetRoom(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[NormalizeCode(roomID)]
	return r, ok
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// CreateRoom opens a lobby with the host as its first member. An empty roomID
// generates a fresh code. Members count as connected only once Connect
// attaches their socket, so a room nobody connects to is collected after the
// grace period.
func (reg *Registry) CreateRoom(roomID, hostID, hostName string) (*Room, error) {
	if hostID == "" {
		return nil, fmt.Errorf("host id is required")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.closed {
		return nil, ErrClosed
	}

	code := NormalizeCode(roomID)
	if code == "" {
		code = reg.freshCodeLocked()
	}
	if _, exists := reg.rooms[code]; exists {
		return nil, ErrRoomExists
	}

	r := newRoom(code, hostID, reg.opts.Rules, reg.opts.MaxPlayers, reg.logger)
	r.mu.Lock()
	r.members = append(r.members, &Member{ID: hostID, Name: displayName(hostName, hostID)})
	reg.scheduleCollectLocked(r)
	r.mu.Unlock()
	reg.rooms[code] = r
	r.logger.WithField("host", hostID).Info("room created")
	return r, nil
}

// JoinRoom seats a player in a lobby. A player already on the roster gets the
// room back unchanged.
func (reg *Registry) JoinRoom(roomID, playerID, playerName string) (*Room, error) {
	if playerID == "" {
		return nil, fmt.Errorf("player id is required")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[NormalizeCode(roomID)]
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	if r.memberLocked(playerID) != nil {
		r.mu.Unlock()
		return r, nil
	}
	if r.live != nil {
		r.mu.Unlock()
		return nil, &JoinError{Reason: ReasonGameAlreadyStarted}
	}
	if len(r.members) >= r.maxPlayers {
		r.mu.Unlock()
		return nil, &JoinError{Reason: ReasonRoomFull}
	}
	r.members = append(r.members, &Member{ID: playerID, Name: displayName(playerName, playerID)})
	if r.memberLocked(r.hostID) == nil {
		// everyone left the lobby before this player arrived
		r.hostID = playerID
	}
	reg.scheduleCollectLocked(r)
	r.mu.Unlock()

	r.logger.WithField("player", playerID).Info("player joined")
	r.BroadcastRoomUpdate()
	return r, nil
}

// Connect attaches conn as its player's live connection and marks the player
// connected, cancelling a pending collection.
func (reg *Registry) Connect(r *Room, conn *Connection) error {
	reg.mu.Lock()
	if reg.rooms[r.ID] != r {
		reg.mu.Unlock()
		return ErrRoomNotFound
	}
	r.mu.Lock()
	m := r.memberLocked(conn.PlayerID)
	if m == nil {
		r.mu.Unlock()
		reg.mu.Unlock()
		return ErrNotMember
	}
	// attach before marking so a replaced connection's Disconnect is a no-op
	r.Attach(conn)
	m.Connected = true
	r.cancelGCLocked()
	live := r.live
	r.mu.Unlock()
	reg.mu.Unlock()

	if live != nil {
		live.SetConnected(conn.PlayerID, true)
	}
	r.logger.WithField("player", conn.PlayerID).Info("player connected")
	r.BroadcastRoomUpdate()
	return nil
}

// StartGame deals the first game of a lobby. It needs at least MinPlayers members.
func (reg *Registry) StartGame(roomID string) bool {
	return reg.startGame(roomID, "") == nil
}

// StartGameAs is StartGame restricted to the room's host.
func (reg *Registry) StartGameAs(roomID, playerID string) error {
	return reg.startGame(roomID, playerID)
}

func (reg *Registry) startGame(roomID, requester string) error {
	r, ok := reg.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	if requester != "" && requester != r.hostID {
		r.mu.Unlock()
		return ErrNotHost
	}
	if r.live != nil {
		r.mu.Unlock()
		return ErrGameStarted
	}
	if len(r.members) < reg.opts.MinPlayers {
		r.mu.Unlock()
		return ErrNotEnoughPlayers
	}

	players := make([]*models.Player, len(r.members))
	for i, m := range r.members {
		p := models.NewPlayer(m.ID, m.Name)
		p.Connected = m.Connected
		players[i] = p
	}
	g := game.NewVirusGame(r.ID, reg.opts.NewEngine(r.rules, reg.opts.Deck), r.logger)
	g.BroadcastToPlayerFn = r.SendTo
	g.Publisher = reg.opts.Publisher
	g.OnGameEnd = reg.archiveResult
	r.live = g
	r.mu.Unlock()

	g.Start(players)
	r.BroadcastRoomUpdate()
	return nil
}

// archiveResult stores a finished game in the background. It runs under the
// game lock, so it must not touch the room or the registry.
func (reg *Registry) archiveResult(result database.GameResult) {
	if reg.opts.Archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reg.opts.Archive.RecordGameResult(ctx, result); err != nil {
			reg.logger.WithError(err).WithField("game", result.GameID).Error("failed to archive game result")
		}
	}()
}

// ApplyAction routes one action to the room's game. It reports whether the
// action changed the state.
func (reg *Registry) ApplyAction(roomID, playerID string, action game.Action) bool {
	out, err := reg.Apply(roomID, playerID, action)
	return err == nil && out.Applied
}

// Apply is ApplyAction returning the full outcome. It errors only when there
// is no room or no game to apply to.
func (reg *Registry) Apply(roomID, playerID string, action game.Action) (game.Outcome, error) {
	r, ok := reg.GetRoom(roomID)
	if !ok {
		return game.Outcome{}, ErrRoomNotFound
	}
	g := r.Game()
	if g == nil {
		return game.Outcome{}, errors.New("the game has not started")
	}
	out := g.HandleAction(playerID, action)
	if out.Applied {
		if _, restarted := action.(game.RestartGame); restarted {
			r.BroadcastRoomUpdate()
		}
	}
	return out, nil
}

// UpdateRules lets the host change house rules before the game starts.
func (reg *Registry) UpdateRules(roomID, playerID string, changes map[string]interface{}) error {
	r, ok := reg.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if err := r.updateRules(playerID, changes); err != nil {
		return err
	}
	r.BroadcastRoomUpdate()
	return nil
}

// DeletePlayerFromRoom handles a player leaving every room they are in. In a
// lobby they leave the roster; during a game they are only marked disconnected
// so they can rejoin.
func (reg *Registry) DeletePlayerFromRoom(playerID string) {
	reg.mu.Lock()
	var holding []*Room
	for _, r := range reg.rooms {
		if r.HasMember(playerID) {
			holding = append(holding, r)
		}
	}
	reg.mu.Unlock()

	for _, r := range holding {
		reg.leave(r, playerID)
	}
}

// Disconnect detaches conn and, if it was the player's active connection,
// treats the player as having left the room.
func (reg *Registry) Disconnect(r *Room, conn *Connection) {
	if !r.Detach(conn) {
		return
	}
	reg.leave(r, conn.PlayerID)
}

func (reg *Registry) leave(r *Room, playerID string) {
	r.mu.Lock()
	m := r.memberLocked(playerID)
	if m == nil {
		r.mu.Unlock()
		return
	}
	live := r.live
	if live == nil {
		r.removeMemberLocked(playerID)
	} else {
		m.Connected = false
	}
	empty := reg.scheduleCollectLocked(r)
	r.mu.Unlock()

	if live != nil {
		live.SetConnected(playerID, false)
	}
	r.logger.WithFields(logrus.Fields{"player": playerID, "empty": empty}).Info("player left")
	r.BroadcastRoomUpdate()
}

// scheduleCollectLocked starts the grace timer if nobody in r is connected and
// none is pending. It reports whether the room is empty.
func (reg *Registry) scheduleCollectLocked(r *Room) bool {
	if r.connectedLocked() > 0 {
		return false
	}
	if r.emptySince == nil {
		now := time.Now()
		r.emptySince = &now
		r.gcTimer = time.AfterFunc(reg.opts.EmptyRoomGrace, func() {
			reg.collect(r, now)
		})
	}
	return true
}

// collect removes r if it is still empty since the same moment.
func (reg *Registry) collect(r *Room, since time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r.mu.Lock()
	stale := r.emptySince == nil || !r.emptySince.Equal(since)
	live := r.live
	if !stale {
		r.gcTimer = nil
	}
	r.mu.Unlock()
	if stale {
		return
	}

	if reg.rooms[r.ID] == r {
		delete(reg.rooms, r.ID)
	}
	if live != nil {
		live.Close()
	}
	r.logger.Info("empty room collected")
}

// Close stops every room timer and game. The registry accepts no new rooms afterwards.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.closed = true
	for id, r := range reg.rooms {
		r.mu.Lock()
		r.cancelGCLocked()
		live := r.live
		r.mu.Unlock()
		if live != nil {
			live.Close()
		}
		delete(reg.rooms, id)
	}
}

// freshCodeLocked returns an unused 6-character room code.
func (reg *Registry) freshCodeLocked() string {
	for {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

// NormalizeCode is the canonical form of a room code: trimmed and upper case.
func NormalizeCode(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

func displayName(name, id string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return id
}
