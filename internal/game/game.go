// internal/game/game.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/virus/internal/cache"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/models"
	"github.com/sirupsen/logrus"
)

// OnGameEndFunc receives the result of a finished game. It runs with the game lock held.
type OnGameEndFunc func(result database.GameResult)

// ActionPublisher ships action records to the historian queue.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// VirusGame is one room's live game: the canonical state plus its lock, turn
// timer, broadcast hooks and action log.
type VirusGame struct {
	ID     uuid.UUID // changes on every restart
	RoomID string

	Engine *Engine
	State  *models.GameState
	Mu     sync.Mutex

	// Turn logic
	TurnID       int // increments each turn; stale timers compare against it
	TurnDuration time.Duration
	turnTimer    *time.Timer
	actionIndex  int // increments for each logged action

	closed bool

	// BroadcastToPlayerFn sends an event to a single player. If nil, nothing is sent.
	BroadcastToPlayerFn func(playerID string, ev GameEvent)

	// OnGameEnd is invoked once per finished game.
	OnGameEnd OnGameEndFunc

	// Publisher receives every logged action. Optional.
	Publisher ActionPublisher

	logger logrus.FieldLogger
}

// NewVirusGame builds an unstarted game for a room.
func NewVirusGame(roomID string, engine *Engine, logger logrus.FieldLogger) *VirusGame {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VirusGame{
		ID:     uuid.New(),
		RoomID: roomID,
		Engine: engine,
		State:  &models.GameState{},
		logger: logger.WithField("room", roomID),
	}
}

func (g *VirusGame) log() logrus.FieldLogger {
	return g.logger.WithField("game", g.ID)
}

// Start deals a new game to players in seating order and sends everyone their snapshot.
func (g *VirusGame) Start(players []*models.Player) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.closed || g.State.GameStarted {
		return
	}
	if g.Engine.Rules.TurnTimerSec > 0 {
		g.TurnDuration = time.Duration(g.Engine.Rules.TurnTimerSec) * time.Second
	}
	g.State = g.Engine.NewGameState(players)
	g.beginGame()
}

// beginGame starts bookkeeping for a freshly dealt state. Assumes lock is held.
func (g *VirusGame) beginGame() {
	g.TurnID++
	g.log().WithField("players", len(g.State.Players)).Info("game started")
	g.logAction("", "game_start", map[string]interface{}{
		"players":  playerIDs(g.State.Players),
		"deckSize": len(g.State.Deck),
	})
	g.broadcastSyncStateToAll()
	g.scheduleTurnTimer()
}

// HandleAction applies one action for playerID and broadcasts the result.
func (g *VirusGame) HandleAction(playerID string, action Action) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.applyLocked(playerID, action)
}

// applyLocked is HandleAction's body. Assumes lock is held.
func (g *VirusGame) applyLocked(playerID string, action Action) Outcome {
	if g.closed {
		return rejected("the room is closed")
	}
	wasEnded := g.State.GameEnded
	prevTurn := g.State.TurnNumber

	out := g.Engine.Apply(g.State, playerID, action)
	for _, n := range out.Notifications {
		g.sendNotification(n)
	}
	if !out.Applied {
		if action != nil {
			g.log().WithFields(logrus.Fields{"player": playerID, "action": action.Type(), "reason": out.Reason}).Debug("action rejected")
		}
		return out
	}

	if _, ok := action.(RestartGame); ok {
		g.ID = uuid.New()
		g.actionIndex = 0
		g.fireNarration(out.Narration)
		g.beginGame()
		return out
	}

	g.logAction(playerID, string(action.Type()), actionPayload(action))
	g.fireNarration(out.Narration)
	g.broadcastSyncStateToAll()

	switch {
	case !wasEnded && g.State.GameEnded:
		g.endGame()
	case g.State.TurnNumber != prevTurn:
		g.TurnID++
		g.scheduleTurnTimer()
	}
	return out
}

// scheduleTurnTimer restarts the turn timer for the current player if TurnDuration > 0.
// Assumes lock is held.
func (g *VirusGame) scheduleTurnTimer() {
	g.stopTurnTimer()
	if g.TurnDuration <= 0 || !g.State.InProgress() {
		return
	}
	current := g.State.CurrentPlayer()
	if current == nil {
		return
	}

	playerID, turnID := current.ID, g.TurnID
	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		g.handleTimeout(playerID, turnID)
	})
}

func (g *VirusGame) stopTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

// handleTimeout ends playerID's turn if the timer that fired is still current.
func (g *VirusGame) handleTimeout(playerID string, turnID int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	current := g.State.CurrentPlayer()
	if g.closed || !g.State.InProgress() || current == nil || current.ID != playerID || g.TurnID != turnID {
		g.log().WithFields(logrus.Fields{"player": playerID, "turn": turnID}).Debug("stale turn timer ignored")
		return
	}
	g.log().WithFields(logrus.Fields{"player": playerID, "turn": turnID}).Info("player timed out")
	g.logAction(playerID, "player_timeout", nil)
	g.sendNotification(Notification{PlayerID: playerID, Message: "Time's up! Your turn was ended.", Severity: SeverityInfo})
	g.applyLocked(playerID, EndTurn{})
}

// endGame stops the timer, announces the winner and reports the result. Assumes lock is held.
func (g *VirusGame) endGame() {
	g.stopTurnTimer()

	ev := GameEvent{Type: EventGameEnd}
	winnerID := ""
	if w := g.State.Winner; w != nil {
		winnerID = w.ID
		ev.Winner = &EventUser{ID: w.ID, Name: w.Name}
		ev.Message = w.Name + " completed a healthy body!"
	}
	g.log().WithField("winner", winnerID).Info("game ended")
	g.logAction("", "game_end", map[string]interface{}{
		"winner": winnerID,
		"turns":  g.State.TurnNumber,
	})
	g.fireEvent(ev)

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.Result())
	}
}

// Result summarizes the current state for the archive. Assumes lock is held.
func (g *VirusGame) Result() database.GameResult {
	res := database.GameResult{
		GameID:  g.ID,
		RoomID:  g.RoomID,
		Turns:   g.State.TurnNumber,
		EndedAt: time.Now(),
		Players: make([]database.PlayerResult, 0, len(g.State.Players)),
	}
	if g.State.Winner != nil {
		res.Winner = g.State.Winner.ID
	}
	for i, p := range g.State.Players {
		healthy := 0
		for j := range p.Body {
			if isHealthyForVictory(&p.Body[j]) {
				healthy++
			}
		}
		res.Players = append(res.Players, database.PlayerResult{
			PlayerID:     p.ID,
			Name:         p.Name,
			Seat:         i,
			Organs:       p.Body.OrganCount(),
			HealthyCount: healthy,
			Won:          g.State.Winner != nil && g.State.Winner.ID == p.ID,
		})
	}
	return res
}

// SetConnected records a player's connection status and refreshes everyone's view.
func (g *VirusGame) SetConnected(playerID string, connected bool) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.State.PlayerByID(playerID)
	if p == nil || p.Connected == connected {
		return
	}
	p.Connected = connected
	g.logAction(playerID, "player_connection", map[string]interface{}{"connected": connected})
	g.broadcastSyncStateToAll()
}

// SendSyncState sends playerID their current snapshot.
func (g *VirusGame) SendSyncState(playerID string) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.sendSyncState(playerID)
}

// Snapshot returns the state as viewerID would receive it.
func (g *VirusGame) Snapshot(viewerID string) Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return SerializeGameState(g.State, viewerID, g.Engine.Rules.HandVisibility)
}

// Started reports whether a game has been dealt (it may have ended since).
func (g *VirusGame) Started() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.State.GameStarted
}

// Close stops the timer; later actions and timeouts are ignored.
func (g *VirusGame) Close() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.closed = true
	g.stopTurnTimer()
}

// sendSyncState assumes lock is held.
func (g *VirusGame) sendSyncState(playerID string) {
	if g.State.PlayerByID(playerID) == nil {
		return
	}
	state := SerializeGameState(g.State, playerID, g.Engine.Rules.HandVisibility)
	g.fireEventToPlayer(playerID, GameEvent{Type: EventGameState, State: &state})
}

// broadcastSyncStateToAll sends each connected player their own snapshot. Assumes lock is held.
func (g *VirusGame) broadcastSyncStateToAll() {
	for _, p := range g.State.Players {
		if p.Connected {
			g.sendSyncState(p.ID)
		}
	}
}

func (g *VirusGame) sendNotification(n Notification) {
	g.fireEventToPlayer(n.PlayerID, GameEvent{Type: EventNotification, Notification: &n})
}

func (g *VirusGame) fireNarration(msg string) {
	if msg == "" {
		return
	}
	g.fireEvent(GameEvent{Type: EventNarration, Message: msg})
}

// fireEvent sends ev to every connected player. Assumes lock is held.
func (g *VirusGame) fireEvent(ev GameEvent) {
	for _, p := range g.State.Players {
		if p.Connected {
			g.fireEventToPlayer(p.ID, ev)
		}
	}
}

func (g *VirusGame) fireEventToPlayer(playerID string, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	g.BroadcastToPlayerFn(playerID, ev)
}

// logAction sends the action details to the historian via Redis.
// Assumes lock is held by caller.
func (g *VirusGame) logAction(actorID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.Publisher == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		RoomID:        g.RoomID,
		ActionIndex:   g.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.Publisher.PublishGameAction(ctx, rec); err != nil {
			g.logger.WithError(err).WithFields(logrus.Fields{"game": rec.GameID, "index": rec.ActionIndex}).Warn("failed to publish game action")
		}
	}(record)
}

func actionPayload(action Action) map[string]interface{} {
	switch a := action.(type) {
	case PlayCard:
		p := map[string]interface{}{"cardId": a.CardID}
		if a.TargetPlayerID != "" {
			p["targetPlayerId"] = a.TargetPlayerID
		}
		if a.TargetColor != "" {
			p["targetColor"] = a.TargetColor
		}
		if a.SourceColor != "" {
			p["sourceColor"] = a.SourceColor
		}
		if a.SourcePlayerID != "" {
			p["sourcePlayerId"] = a.SourcePlayerID
		}
		if a.SecondTargetPlayerID != "" {
			p["secondTargetPlayerId"] = a.SecondTargetPlayerID
		}
		if a.SacrificeCardID != "" {
			p["sacrificeCardId"] = a.SacrificeCardID
		}
		return p
	case DiscardCards:
		return map[string]interface{}{"cardIds": a.CardIDs}
	}
	return nil
}

func playerIDs(players []*models.Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}
