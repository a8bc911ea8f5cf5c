package models

// Player is a seated participant. ID is chosen by the client and survives reconnects.
type Player struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Hand      []*Card `json:"hand"`
	Body      Body    `json:"-"`
	Connected bool    `json:"connected"`
}

// NewPlayer returns a player with an empty hand and four empty slots.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Hand:      []*Card{},
		Connected: true,
	}
}

// HandIndex returns the index of a card in the player's hand, or -1.
func (p *Player) HandIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// RemoveFromHand removes a card by id and returns it with its former index.
func (p *Player) RemoveFromHand(cardID string) (*Card, int) {
	idx := p.HandIndex(cardID)
	if idx < 0 {
		return nil, -1
	}
	c := p.Hand[idx]
	p.Hand = append(p.Hand[:idx:idx], p.Hand[idx+1:]...)
	return c, idx
}

// InsertIntoHand puts a card back at idx, clamped to the hand bounds.
func (p *Player) InsertIntoHand(c *Card, idx int) {
	if idx < 0 || idx > len(p.Hand) {
		idx = len(p.Hand)
	}
	p.Hand = append(p.Hand[:idx:idx], append([]*Card{c}, p.Hand[idx:]...)...)
}
