package game

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/jason-s-yu/virus/internal/models"
	"github.com/stretchr/testify/require"
)

var cardSeq atomic.Int64

func newCard(typ models.CardType, color models.Color) *models.Card {
	return &models.Card{
		ID:    fmt.Sprintf("c%d", cardSeq.Add(1)),
		Type:  typ,
		Color: color,
		Name:  cardName(typ, color),
	}
}

func organ(color models.Color) *models.Card    { return newCard(models.CardOrgan, color) }
func virus(color models.Color) *models.Card    { return newCard(models.CardVirus, color) }
func medicine(color models.Color) *models.Card { return newCard(models.CardMedicine, color) }

func treatment(kind models.TreatmentType) *models.Card {
	c := newCard(models.CardTreatment, "")
	c.Treatment = kind
	c.Name = treatmentName(kind)
	return c
}

var playerNames = []string{"Alice", "Bob", "Carol", "Dan"}

// newTestState seats n players with empty hands and bodies, game in progress,
// Alice to act. The deck is empty unless a test fills it.
func newTestState(t *testing.T, n int) (*Engine, *models.GameState) {
	t.Helper()
	require.LessOrEqual(t, n, len(playerNames))

	e := NewEngineWithSource(DefaultHouseRules(), DefaultDeckConfig(), rand.New(rand.NewSource(1)))
	gs := &models.GameState{
		Deck:        []*models.Card{},
		DiscardPile: []*models.Card{},
		GameStarted: true,
	}
	for i := 0; i < n; i++ {
		gs.Players = append(gs.Players, models.NewPlayer(fmt.Sprintf("p%d", i+1), playerNames[i]))
	}
	return e, gs
}

func give(p *models.Player, cards ...*models.Card) {
	p.Hand = append(p.Hand, cards...)
}

// install puts an organ of the slot's color with the given attachments.
func install(p *models.Player, color models.Color, viruses, medicines int) *models.OrganSlot {
	slot := p.Body.Slot(color)
	slot.Organ = organ(color)
	for i := 0; i < viruses; i++ {
		slot.Viruses = append(slot.Viruses, virus(color))
	}
	for i := 0; i < medicines; i++ {
		slot.Medicines = append(slot.Medicines, medicine(color))
	}
	return slot
}

// installAll gives p a healthy organ in every slot except the skipped colors.
func installAll(p *models.Player, skip ...models.Color) {
outer:
	for _, c := range models.BodyColors {
		for _, s := range skip {
			if s == c {
				continue outer
			}
		}
		install(p, c, 0, 0)
	}
}

// allCards collects every card reachable from the state.
func allCards(gs *models.GameState) []*models.Card {
	cards := append([]*models.Card{}, gs.Deck...)
	cards = append(cards, gs.DiscardPile...)
	for _, p := range gs.Players {
		cards = append(cards, p.Hand...)
		for i := range p.Body {
			slot := &p.Body[i]
			if slot.Organ != nil {
				cards = append(cards, slot.Organ)
			}
			cards = append(cards, slot.Viruses...)
			cards = append(cards, slot.Medicines...)
		}
	}
	return cards
}

// requireConsistent checks the structural invariants every reachable state holds.
func requireConsistent(t *testing.T, gs *models.GameState, total int) {
	t.Helper()
	cards := allCards(gs)
	require.Len(t, cards, total, "cards must be neither lost nor duplicated")

	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		require.False(t, seen[c.ID], "card %s appears twice", c.ID)
		seen[c.ID] = true
	}
	for _, p := range gs.Players {
		for i := range p.Body {
			slot := &p.Body[i]
			if slot.Organ == nil {
				require.Empty(t, slot.Viruses, "%s has viruses on an empty slot", p.Name)
				require.Empty(t, slot.Medicines, "%s has medicines on an empty slot", p.Name)
				continue
			}
			require.NotEqual(t, StateRemoved, OrganStateOf(slot), "%s kept a destroyed organ", p.Name)
		}
	}
}
