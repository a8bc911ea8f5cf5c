// internal/game/game_test.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/virus/internal/cache"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	playerEvents map[string][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[string][]GameEvent)}
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID string, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents = make(map[string][]GameEvent)
}

func (mb *mockBroadcaster) eventsOfType(playerID string, typ GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEvent
	for _, ev := range mb.playerEvents[playerID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastOfType(playerID string, typ GameEventType) *GameEvent {
	evs := mb.eventsOfType(playerID, typ)
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

// recordingPublisher stands in for the Redis queue.
type recordingPublisher struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (rp *recordingPublisher) PublishGameAction(_ context.Context, rec cache.GameActionRecord) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.records = append(rp.records, rec)
	return nil
}

func (rp *recordingPublisher) types() []string {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	out := make([]string, len(rp.records))
	for i, r := range rp.records {
		out[i] = r.ActionType
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

// setupTestGame starts a seeded game with numPlayers and a mock broadcaster.
func setupTestGame(t *testing.T, numPlayers int, rules HouseRules) (*VirusGame, []*models.Player, *mockBroadcaster) {
	t.Helper()
	engine := NewEngineWithSource(rules, DefaultDeckConfig(), rand.New(rand.NewSource(3)))
	g := NewVirusGame("ROOM01", engine, quietLogger())
	mb := newMockBroadcaster()
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	players := make([]*models.Player, numPlayers)
	for i := range players {
		players[i] = models.NewPlayer(playerNames[i], playerNames[i])
	}
	g.Start(players)
	require.True(t, g.Started())
	t.Cleanup(g.Close)
	return g, players, mb
}

func TestStartSendsEachPlayerTheirSnapshot(t *testing.T) {
	rules := DefaultHouseRules()
	rules.HandVisibility = VisibilityOwnHand
	_, players, mb := setupTestGame(t, 3, rules)

	for _, p := range players {
		ev := mb.lastOfType(p.ID, EventGameState)
		require.NotNil(t, ev, p.ID)
		assert.Equal(t, p.ID, ev.State.ViewerID)
		for _, ps := range ev.State.Players {
			if ps.ID == p.ID {
				assert.Len(t, ps.Hand, 3)
			} else {
				assert.Nil(t, ps.Hand)
				assert.Equal(t, 3, ps.HandCount)
			}
		}
	}
}

func TestStartIsIdempotent(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, DefaultHouseRules())
	deck := len(g.State.Deck)
	g.Start(players)
	assert.Len(t, g.State.Deck, deck)
}

func TestHandleActionBroadcasts(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, DefaultHouseRules())
	alice, bob := players[0], players[1]
	mb.clear()

	out := g.HandleAction(alice.ID, EndTurn{})

	require.True(t, out.Applied)
	for _, p := range players {
		assert.NotNil(t, mb.lastOfType(p.ID, EventNarration), "narration reaches %s", p.ID)
		state := mb.lastOfType(p.ID, EventGameState)
		require.NotNil(t, state)
		assert.Equal(t, bob.ID, state.State.CurrentPlayerID)
	}
}

func TestRejectedActionNotifiesOnlyActor(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, DefaultHouseRules())
	alice, bob := players[0], players[1]
	mb.clear()

	// Bob has no red organ to send back.
	g.Mu.Lock()
	card := treatment(models.TreatmentReturnOrgan)
	give(alice, card)
	g.Mu.Unlock()

	out := g.HandleAction(alice.ID, PlayCard{CardID: card.ID, TargetPlayerID: bob.ID, TargetColor: models.ColorRed})

	assert.False(t, out.Applied)
	require.NotNil(t, mb.lastOfType(alice.ID, EventNotification))
	assert.Nil(t, mb.lastOfType(bob.ID, EventNotification))
	assert.Nil(t, mb.lastOfType(bob.ID, EventGameState), "rejected actions do not broadcast state")

	out = g.HandleAction(bob.ID, EndTurn{})
	assert.False(t, out.Applied)
	assert.Equal(t, "it's not your turn", out.Reason)
}

func TestDisconnectedPlayersReceiveNothing(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, DefaultHouseRules())
	alice, bob := players[0], players[1]

	g.SetConnected(bob.ID, false)
	state := mb.lastOfType(alice.ID, EventGameState)
	require.NotNil(t, state)
	assert.False(t, state.State.Players[1].Connected)

	mb.clear()
	require.True(t, g.HandleAction(alice.ID, EndTurn{}).Applied)
	assert.Empty(t, mb.eventsOfType(bob.ID, EventGameState))

	g.SendSyncState(bob.ID)
	assert.NotNil(t, mb.lastOfType(bob.ID, EventGameState), "explicit sync works while reconnecting")
}

func TestGameEndFiresOnceAndReportsResult(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, DefaultHouseRules())
	alice := players[0]
	var results []database.GameResult
	g.OnGameEnd = func(res database.GameResult) { results = append(results, res) }

	g.Mu.Lock()
	installAll(alice, models.ColorRed)
	heart := organ(models.ColorRed)
	give(alice, heart)
	g.Mu.Unlock()

	out := g.HandleAction(alice.ID, PlayCard{CardID: heart.ID, TargetColor: models.ColorRed})

	require.True(t, out.Applied)
	end := mb.lastOfType(players[1].ID, EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, alice.ID, end.Winner.ID)

	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, g.ID, res.GameID)
	assert.Equal(t, "ROOM01", res.RoomID)
	assert.Equal(t, alice.ID, res.Winner)
	require.Len(t, res.Players, 2)
	assert.True(t, res.Players[0].Won)
	assert.Equal(t, 4, res.Players[0].HealthyCount)
	assert.False(t, res.Players[1].Won)

	assert.False(t, g.HandleAction(alice.ID, EndTurn{}).Applied)
	assert.Len(t, results, 1)
}

func TestRestartStartsAFreshGame(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, DefaultHouseRules())
	pub := &recordingPublisher{}
	g.Publisher = pub

	g.Mu.Lock()
	installAll(players[1])
	require.True(t, latchVictory(g.State))
	g.Mu.Unlock()
	oldID := g.ID

	out := g.HandleAction(players[1].ID, RestartGame{})

	require.True(t, out.Applied)
	assert.NotEqual(t, oldID, g.ID)
	assert.True(t, g.State.InProgress())
	assert.Equal(t, 0, g.State.Players[1].Body.OrganCount())
	assert.Eventually(t, func() bool {
		types := pub.types()
		return len(types) == 1 && types[0] == "game_start"
	}, time.Second, 10*time.Millisecond)
}

func TestActionsArePublished(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, DefaultHouseRules())
	pub := &recordingPublisher{}
	g.Publisher = pub

	require.True(t, g.HandleAction(players[0].ID, EndTurn{}).Applied)
	require.True(t, g.HandleAction(players[1].ID, EndTurn{}).Applied)

	assert.Eventually(t, func() bool { return len(pub.types()) == 2 }, time.Second, 10*time.Millisecond)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	indices := []int{pub.records[0].ActionIndex, pub.records[1].ActionIndex}
	assert.ElementsMatch(t, []int{2, 3}, indices, "game_start took index 1")
	for _, rec := range pub.records {
		assert.Equal(t, g.ID, rec.GameID)
		assert.Equal(t, "end-turn", rec.ActionType)
	}
}

func TestTurnTimerEndsTurn(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, DefaultHouseRules())
	g.Mu.Lock()
	g.TurnDuration = 50 * time.Millisecond
	g.scheduleTurnTimer()
	g.Mu.Unlock()

	assert.Eventually(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.State.TurnNumber >= 1
	}, time.Second, 10*time.Millisecond)

	n := mb.lastOfType(players[0].ID, EventNotification)
	require.NotNil(t, n)
	assert.Contains(t, n.Notification.Message, "Time's up")
}

func TestStaleTimerIsIgnored(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, DefaultHouseRules())

	g.Mu.Lock()
	staleTurn := g.TurnID
	g.Mu.Unlock()
	require.True(t, g.HandleAction(players[0].ID, EndTurn{}).Applied)
	require.True(t, g.HandleAction(players[1].ID, EndTurn{}).Applied)

	// Alice is current again, but the timer belongs to her previous turn.
	g.handleTimeout(players[0].ID, staleTurn)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Equal(t, 0, g.State.CurrentPlayerIndex)
	assert.Equal(t, 2, g.State.TurnNumber)
}

func TestStartUsesRuleTimer(t *testing.T) {
	rules := DefaultHouseRules()
	rules.TurnTimerSec = 30
	g, _, _ := setupTestGame(t, 2, rules)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Equal(t, 30*time.Second, g.TurnDuration)
	assert.NotNil(t, g.turnTimer)
}

func TestClosedGameIgnoresEverything(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, DefaultHouseRules())
	g.Close()
	mb.clear()

	out := g.HandleAction(players[0].ID, EndTurn{})
	assert.False(t, out.Applied)
	g.handleTimeout(players[0].ID, g.TurnID)
	assert.Equal(t, 0, g.State.CurrentPlayerIndex)
	assert.Empty(t, mb.eventsOfType(players[0].ID, EventGameState))
}

func TestNewVirusGameHasID(t *testing.T) {
	g := NewVirusGame("R", NewEngine(DefaultHouseRules(), DefaultDeckConfig()), nil)
	assert.NotEqual(t, uuid.Nil, g.ID)
	assert.False(t, g.Started())
}
