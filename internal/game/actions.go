package game

import (
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/virus/internal/models"
)

// ActionType is the wire name of a player action.
type ActionType string

const (
	ActionPlayCard     ActionType = "play-card"
	ActionDiscardCards ActionType = "discard-cards"
	ActionEndTurn      ActionType = "end-turn"
	ActionRestartGame  ActionType = "restart-game"
)

// Action is one of PlayCard, DiscardCards, EndTurn or RestartGame. The
// interface is sealed so the resolver's type switch covers every variant.
type Action interface {
	Type() ActionType
	sealed()
}

// PlayOptions carries the optional targeting fields of a play-card action.
type PlayOptions struct {
	// SourceColor is the slot an energy transfer takes from; defaults to the target color.
	SourceColor models.Color
	// SourcePlayerID owns the source slot of an energy transfer; defaults to the target player.
	SourcePlayerID string
	// SecondTargetPlayerID is the other party of a body swap.
	SecondTargetPlayerID string
	// SacrificeCardID is the card discarded by discard-to-cure; defaults to the last other card.
	SacrificeCardID string
}

// PlayCard plays a card from the actor's hand.
type PlayCard struct {
	CardID         string
	TargetPlayerID string // defaults to the actor
	TargetColor    models.Color
	PlayOptions
}

// DiscardCards moves the named cards from the actor's hand to the discard pile.
type DiscardCards struct {
	CardIDs []string
}

// EndTurn refills the actor's hand and passes the turn.
type EndTurn struct{}

// RestartGame deals a fresh game once the current one has ended.
type RestartGame struct{}

func (PlayCard) Type() ActionType     { return ActionPlayCard }
func (DiscardCards) Type() ActionType { return ActionDiscardCards }
func (EndTurn) Type() ActionType      { return ActionEndTurn }
func (RestartGame) Type() ActionType  { return ActionRestartGame }

func (PlayCard) sealed()     {}
func (DiscardCards) sealed() {}
func (EndTurn) sealed()      {}
func (RestartGame) sealed()  {}

// cardRef is how clients refer to a card: the full object is accepted but only the id is trusted.
type cardRef struct {
	ID string `json:"id"`
}

// ActionMessage is the JSON shape of an inbound action.
type ActionMessage struct {
	Type                 ActionType   `json:"type"`
	Card                 *cardRef     `json:"card,omitempty"`
	Cards                []cardRef    `json:"cards,omitempty"`
	TargetPlayerID       string       `json:"targetPlayerId,omitempty"`
	TargetColor          models.Color `json:"targetColor,omitempty"`
	SourceColor          models.Color `json:"sourceColor,omitempty"`
	SourcePlayerID       string       `json:"sourcePlayerId,omitempty"`
	SecondTargetPlayerID string       `json:"secondTargetPlayerId,omitempty"`
	SacrificeCardID      string       `json:"sacrificeCardId,omitempty"`
}

// ToAction validates required fields per variant and builds the typed action.
func (m ActionMessage) ToAction() (Action, error) {
	switch m.Type {
	case ActionPlayCard:
		if m.Card == nil || m.Card.ID == "" {
			return nil, fmt.Errorf("play-card requires a card id")
		}
		return PlayCard{
			CardID:         m.Card.ID,
			TargetPlayerID: m.TargetPlayerID,
			TargetColor:    m.TargetColor,
			PlayOptions: PlayOptions{
				SourceColor:          m.SourceColor,
				SourcePlayerID:       m.SourcePlayerID,
				SecondTargetPlayerID: m.SecondTargetPlayerID,
				SacrificeCardID:      m.SacrificeCardID,
			},
		}, nil
	case ActionDiscardCards:
		if len(m.Cards) == 0 {
			return nil, fmt.Errorf("discard-cards requires at least one card")
		}
		ids := make([]string, 0, len(m.Cards))
		for _, c := range m.Cards {
			ids = append(ids, c.ID)
		}
		return DiscardCards{CardIDs: ids}, nil
	case ActionEndTurn:
		return EndTurn{}, nil
	case ActionRestartGame:
		return RestartGame{}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", m.Type)
	}
}

// DecodeAction parses a JSON action message.
func DecodeAction(data []byte) (Action, error) {
	var msg ActionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	return msg.ToAction()
}
