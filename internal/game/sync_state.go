package game

import (
	"github.com/jason-s-yu/virus/internal/models"
)

// SlotSnapshot is one body slot as sent to clients, with its derived state.
type SlotSnapshot struct {
	Organ     *models.Card   `json:"organ"`
	Viruses   []*models.Card `json:"viruses"`
	Medicines []*models.Card `json:"medicines"`
	State     OrganState     `json:"state"`
}

// PlayerSnapshot is a player from the perspective of the viewer.
type PlayerSnapshot struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Connected bool                    `json:"connected"`
	HandCount int                     `json:"handCount"`
	Hand      []*models.Card          `json:"hand,omitempty"` // omitted when hidden from the viewer
	Body      map[string]SlotSnapshot `json:"body"`
}

// Snapshot is the serialized game state for one viewer.
type Snapshot struct {
	Players            []PlayerSnapshot `json:"players"`
	DeckCount          int              `json:"deckCount"`
	DiscardPile        []*models.Card   `json:"discardPile"`
	CurrentPlayerIndex int              `json:"currentPlayerIndex"`
	CurrentPlayerID    string           `json:"currentPlayerId,omitempty"`
	GameStarted        bool             `json:"gameStarted"`
	GameEnded          bool             `json:"gameEnded"`
	Winner             *EventUser       `json:"winner"`
	TurnNumber         int              `json:"turnNumber"`
	ViewerID           string           `json:"viewerId"`
}

// SerializeGameState builds the snapshot viewerID receives. Bodies are keyed by
// color name. Under VisibilityOwnHand, other players' hands are reduced to counts.
// Slices are never nil so they encode as [] rather than null.
func SerializeGameState(gs *models.GameState, viewerID string, visibility Visibility) Snapshot {
	snap := Snapshot{
		Players:            make([]PlayerSnapshot, 0, len(gs.Players)),
		DeckCount:          len(gs.Deck),
		DiscardPile:        nonNil(gs.DiscardPile),
		CurrentPlayerIndex: gs.CurrentPlayerIndex,
		GameStarted:        gs.GameStarted,
		GameEnded:          gs.GameEnded,
		TurnNumber:         gs.TurnNumber,
		ViewerID:           viewerID,
	}
	if cur := gs.CurrentPlayer(); cur != nil {
		snap.CurrentPlayerID = cur.ID
	}
	if gs.Winner != nil {
		snap.Winner = &EventUser{ID: gs.Winner.ID, Name: gs.Winner.Name}
	}

	for _, p := range gs.Players {
		ps := PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			Connected: p.Connected,
			HandCount: len(p.Hand),
			Body:      make(map[string]SlotSnapshot, models.BodySize),
		}
		if visibility != VisibilityOwnHand || p.ID == viewerID {
			ps.Hand = nonNil(p.Hand)
		}
		for i, color := range models.BodyColors {
			slot := &p.Body[i]
			ps.Body[string(color)] = SlotSnapshot{
				Organ:     slot.Organ,
				Viruses:   nonNil(slot.Viruses),
				Medicines: nonNil(slot.Medicines),
				State:     OrganStateOf(slot),
			}
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}

func nonNil(cards []*models.Card) []*models.Card {
	out := make([]*models.Card, len(cards))
	copy(out, cards)
	return out
}
