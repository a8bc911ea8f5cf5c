package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/virus/internal/models"
)

// Outcome describes what an action did. Rejected actions leave the state untouched
// and carry a Reason; applied actions carry a Narration for the room.
type Outcome struct {
	Applied       bool
	Reason        string
	Narration     string
	Notifications []Notification
}

func rejected(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Engine applies actions to a GameState. It is not safe for concurrent use;
// callers serialize access per game.
type Engine struct {
	Rules HouseRules
	Deck  DeckConfig

	rng   *rand.Rand
	newID func() string
}

// NewEngine builds an engine with a time-seeded source and uuid card ids.
func NewEngine(rules HouseRules, deck DeckConfig) *Engine {
	return NewEngineWithSource(rules, deck, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithSource is NewEngine with an explicit random source, used for reproducible games.
func NewEngineWithSource(rules HouseRules, deck DeckConfig, rng *rand.Rand) *Engine {
	return &Engine{
		Rules: rules,
		Deck:  deck,
		rng:   rng,
		newID: uuid.NewString,
	}
}

// NewGameState seats players in the given order and deals a fresh game.
func (e *Engine) NewGameState(players []*models.Player) *models.GameState {
	gs := &models.GameState{Players: players}
	e.initialize(gs)
	return gs
}

// initialize resets the whole state: fresh shuffled deck, empty discard, cleared
// bodies and hands, new deal, first player to act.
func (e *Engine) initialize(gs *models.GameState) {
	deck := BuildDeck(e.Deck, e.newID)
	Shuffle(deck, e.rng)

	for _, p := range gs.Players {
		p.Hand = []*models.Card{}
		p.Body = models.Body{}
	}
	gs.Deck = deck
	gs.DiscardPile = []*models.Card{}
	gs.CurrentPlayerIndex = 0
	gs.GameStarted = true
	gs.GameEnded = false
	gs.Winner = nil
	gs.TurnNumber = 0

	Deal(gs, e.Rules.HandSize)
}

// Apply validates and applies one action for playerID. It never returns an error:
// illegal, out-of-turn or malformed actions are no-ops with a Reason.
func (e *Engine) Apply(gs *models.GameState, playerID string, action Action) Outcome {
	actor := gs.PlayerByID(playerID)
	if actor == nil {
		return rejected("you are not seated in this game")
	}

	switch a := action.(type) {
	case RestartGame:
		if !gs.GameEnded {
			return rejected("the game can only be restarted once it has ended")
		}
		e.initialize(gs)
		return Outcome{Applied: true, Narration: fmt.Sprintf("%s started a new game", actor.Name)}
	case PlayCard:
		if reason := checkTurn(gs, actor); reason != "" {
			return rejected(reason)
		}
		return e.playCard(gs, actor, a)
	case DiscardCards:
		if reason := checkTurn(gs, actor); reason != "" {
			return rejected(reason)
		}
		return discardCards(gs, actor, a)
	case EndTurn:
		if reason := checkTurn(gs, actor); reason != "" {
			return rejected(reason)
		}
		return e.endTurn(gs, actor)
	case nil:
		return rejected("missing action")
	default:
		return rejected(fmt.Sprintf("unsupported action %q", action.Type()))
	}
}

func checkTurn(gs *models.GameState, actor *models.Player) string {
	if !gs.InProgress() {
		return "the game is not in progress"
	}
	if cur := gs.CurrentPlayer(); cur == nil || cur.ID != actor.ID {
		return "it's not your turn"
	}
	return ""
}

func (e *Engine) playCard(gs *models.GameState, actor *models.Player, a PlayCard) Outcome {
	idx := actor.HandIndex(a.CardID)
	if idx < 0 {
		return rejected("that card is not in your hand")
	}
	card := actor.Hand[idx]

	target := actor
	if a.TargetPlayerID != "" {
		target = gs.PlayerByID(a.TargetPlayerID)
		if target == nil {
			return rejected("unknown target player")
		}
	}

	if !CanPlayCard(card, actor, target, a.TargetColor, gs, a.PlayOptions) {
		return Outcome{
			Reason: "that card cannot be played there",
			Notifications: []Notification{
				{PlayerID: actor.ID, Message: fmt.Sprintf("%s cannot be played there", card.Name), Severity: SeverityWarning},
			},
		}
	}

	if card.Type == models.CardTreatment {
		return e.playTreatment(gs, actor, target, card, a)
	}

	actor.RemoveFromHand(card.ID)
	slot := target.Body.Slot(a.TargetColor)
	organ := a.TargetColor.OrganName()

	var narration string
	switch card.Type {
	case models.CardOrgan:
		slot.Organ = card
		narration = fmt.Sprintf("%s installed a %s", actor.Name, organ)
		if target != actor {
			narration = fmt.Sprintf("%s installed a %s on %s", actor.Name, organ, target.Name)
		}
	case models.CardVirus:
		switch attachVirus(gs, slot, card) {
		case attachAbsorbed:
			narration = fmt.Sprintf("%s's vaccine on the %s stopped %s's virus", target.Name, organ, actor.Name)
		case attachDestroyed:
			narration = fmt.Sprintf("%s destroyed %s's %s", actor.Name, target.Name, organ)
		default:
			narration = fmt.Sprintf("%s infected %s's %s", actor.Name, target.Name, organ)
		}
	case models.CardMedicine:
		switch attachMedicine(gs, slot, card) {
		case attachAbsorbed:
			narration = fmt.Sprintf("%s cured %s's %s", actor.Name, target.Name, organ)
		case attachImmunized:
			narration = fmt.Sprintf("%s immunized %s's %s", actor.Name, target.Name, organ)
		default:
			narration = fmt.Sprintf("%s vaccinated %s's %s", actor.Name, target.Name, organ)
		}
	}

	out := Outcome{Applied: true, Narration: narration}
	e.finishPlay(gs, &out)
	return out
}

// finishPlay re-checks victory after any successful play.
func (e *Engine) finishPlay(gs *models.GameState, out *Outcome) {
	if latchVictory(gs) {
		out.Notifications = append(out.Notifications, Notification{
			PlayerID: gs.Winner.ID,
			Message:  "You completed a healthy body and won!",
			Severity: SeveritySuccess,
		})
	}
}

type attachResult int

const (
	attachAttached attachResult = iota
	attachAbsorbed
	attachDestroyed
	attachImmunized
)

// attachVirus puts a virus on an occupied slot. A vaccinated organ absorbs it,
// spending its medicine; a second virus destroys the organ.
func attachVirus(gs *models.GameState, slot *models.OrganSlot, virus *models.Card) attachResult {
	if OrganStateOf(slot) == StateVaccinated {
		gs.Discard(slot.Medicines...)
		slot.Medicines = nil
		gs.Discard(virus)
		return attachAbsorbed
	}
	slot.Viruses = append(slot.Viruses, virus)
	if OrganStateOf(slot) == StateRemoved {
		gs.Discard(slot.Clear()...)
		return attachDestroyed
	}
	return attachAttached
}

// attachMedicine puts a medicine on an occupied slot. An infected organ is
// cured, spending both cards; otherwise the medicine stacks toward immunity.
func attachMedicine(gs *models.GameState, slot *models.OrganSlot, medicine *models.Card) attachResult {
	if OrganStateOf(slot) == StateInfected {
		gs.Discard(slot.Viruses...)
		slot.Viruses = nil
		gs.Discard(medicine)
		return attachAbsorbed
	}
	slot.Medicines = append(slot.Medicines, medicine)
	if OrganStateOf(slot) == StateImmunized {
		return attachImmunized
	}
	return attachAttached
}

func discardCards(gs *models.GameState, actor *models.Player, a DiscardCards) Outcome {
	seen := make(map[string]bool, len(a.CardIDs))
	for _, id := range a.CardIDs {
		if seen[id] || actor.HandIndex(id) < 0 {
			return rejected("you can only discard cards from your hand")
		}
		seen[id] = true
	}
	for _, id := range a.CardIDs {
		c, _ := actor.RemoveFromHand(id)
		gs.Discard(c)
	}
	return Outcome{
		Applied:   true,
		Narration: fmt.Sprintf("%s discarded %d card(s)", actor.Name, len(a.CardIDs)),
	}
}
