package models

// GameState is the canonical state of one room's game.
type GameState struct {
	Players            []*Player
	Deck               []*Card // draw pops from the end
	DiscardPile        []*Card
	CurrentPlayerIndex int
	GameStarted        bool
	GameEnded          bool
	Winner             *Player

	// TurnNumber counts completed end-turns since the last (re)start.
	TurnNumber int
}

// PlayerByID returns the seated player with the given id, or nil.
func (gs *GameState) PlayerByID(id string) *Player {
	for _, p := range gs.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil if there are no players.
func (gs *GameState) CurrentPlayer() *Player {
	if gs.CurrentPlayerIndex < 0 || gs.CurrentPlayerIndex >= len(gs.Players) {
		return nil
	}
	return gs.Players[gs.CurrentPlayerIndex]
}

// InProgress reports whether play-card, discard and end-turn actions are accepted.
func (gs *GameState) InProgress() bool {
	return gs.GameStarted && !gs.GameEnded
}

// Discard appends cards to the discard pile.
func (gs *GameState) Discard(cards ...*Card) {
	gs.DiscardPile = append(gs.DiscardPile, cards...)
}
