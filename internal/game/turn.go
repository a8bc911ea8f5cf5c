package game

import (
	"fmt"

	"github.com/jason-s-yu/virus/internal/models"
)

// CheckVictory reports whether a player has an organ in every body slot and
// none of them is infected.
func CheckVictory(p *models.Player) bool {
	if p == nil {
		return false
	}
	for i := range p.Body {
		if !isHealthyForVictory(&p.Body[i]) {
			return false
		}
	}
	return true
}

// latchVictory ends the game on the first player, in seating order, with a
// complete body. It returns true only on the transition to ended.
func latchVictory(gs *models.GameState) bool {
	if gs.GameEnded {
		return false
	}
	for _, p := range gs.Players {
		if CheckVictory(p) {
			gs.GameEnded = true
			gs.Winner = p
			return true
		}
	}
	return false
}

// endTurn refills the actor's hand, passes the turn and re-checks victory.
func (e *Engine) endTurn(gs *models.GameState, actor *models.Player) Outcome {
	drawn := refillHand(gs, actor, e.Rules.HandSize)
	if len(gs.Players) > 0 {
		gs.CurrentPlayerIndex = (gs.CurrentPlayerIndex + 1) % len(gs.Players)
	}
	gs.TurnNumber++

	narration := fmt.Sprintf("%s ended their turn", actor.Name)
	if drawn > 0 {
		narration = fmt.Sprintf("%s drew %d card(s) and ended their turn", actor.Name, drawn)
	}
	out := Outcome{Applied: true, Narration: narration}
	e.finishPlay(gs, &out)
	return out
}

// refillHand draws from the end of the deck until the hand holds n cards or
// the deck runs out. The discard pile is never reshuffled.
func refillHand(gs *models.GameState, p *models.Player, n int) int {
	drawn := 0
	for len(p.Hand) < n && len(gs.Deck) > 0 {
		top := gs.Deck[len(gs.Deck)-1]
		gs.Deck = gs.Deck[:len(gs.Deck)-1]
		p.Hand = append(p.Hand, top)
		drawn++
	}
	return drawn
}
