package game

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/virus/internal/models"
)

// TreatmentCount is how many copies of a treatment go into the deck.
type TreatmentCount struct {
	Kind   models.TreatmentType `json:"kind"`
	Copies int                  `json:"copies"`
}

// DeckConfig describes deck composition. Every color in Colors gets
// CopiesPerColor organs, viruses and medicines.
type DeckConfig struct {
	CopiesPerColor int              `json:"copiesPerColor"`
	Colors         []models.Color   `json:"colors"`
	Treatments     []TreatmentCount `json:"treatments"`
}

// DefaultDeckConfig is the standard 86-card deck.
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		CopiesPerColor: 5,
		Colors: []models.Color{
			models.ColorRed, models.ColorBlue, models.ColorGreen, models.ColorYellow, models.ColorMulticolor,
		},
		Treatments: []TreatmentCount{
			{Kind: models.TreatmentEnergyTransfer, Copies: 2},
			{Kind: models.TreatmentReturnOrgan, Copies: 1},
			{Kind: models.TreatmentOrganThief, Copies: 2},
			{Kind: models.TreatmentForcedDiscard, Copies: 1},
			{Kind: models.TreatmentDiscardToCure, Copies: 1},
			{Kind: models.TreatmentBodySwap, Copies: 1},
			{Kind: models.TreatmentMassDiscard, Copies: 1},
			{Kind: models.TreatmentRecoverOrgan, Copies: 2},
		},
	}
}

// Size returns the number of cards BuildDeck produces for cfg.
func (cfg DeckConfig) Size() int {
	n := 3 * cfg.CopiesPerColor * len(cfg.Colors)
	for _, t := range cfg.Treatments {
		n += t.Copies
	}
	return n
}

// BuildDeck creates the unshuffled deck. Order is deterministic: per color,
// organs then viruses then medicines, followed by treatments in config order.
func BuildDeck(cfg DeckConfig, newID func() string) []*models.Card {
	deck := make([]*models.Card, 0, cfg.Size())
	for _, color := range cfg.Colors {
		for _, typ := range []models.CardType{models.CardOrgan, models.CardVirus, models.CardMedicine} {
			for i := 0; i < cfg.CopiesPerColor; i++ {
				deck = append(deck, &models.Card{
					ID:    newID(),
					Type:  typ,
					Color: color,
					Name:  cardName(typ, color),
				})
			}
		}
	}
	for _, t := range cfg.Treatments {
		for i := 0; i < t.Copies; i++ {
			deck = append(deck, &models.Card{
				ID:        newID(),
				Type:      models.CardTreatment,
				Treatment: t.Kind,
				Name:      treatmentName(t.Kind),
			})
		}
	}
	return deck
}

func cardName(typ models.CardType, color models.Color) string {
	switch typ {
	case models.CardOrgan:
		if color == models.ColorMulticolor {
			return "Wildcard Organ"
		}
		return fmt.Sprintf("%s %s", titled(string(color)), titled(color.OrganName()))
	case models.CardVirus:
		return fmt.Sprintf("%s Virus", titled(string(color)))
	case models.CardMedicine:
		return fmt.Sprintf("%s Medicine", titled(string(color)))
	}
	return string(typ)
}

func treatmentName(kind models.TreatmentType) string {
	switch kind {
	case models.TreatmentEnergyTransfer:
		return "Transplant"
	case models.TreatmentReturnOrgan:
		return "Medical Error"
	case models.TreatmentOrganThief:
		return "Organ Thief"
	case models.TreatmentForcedDiscard:
		return "Latex Glove"
	case models.TreatmentDiscardToCure:
		return "Experimental Cure"
	case models.TreatmentBodySwap:
		return "Body Swap"
	case models.TreatmentMassDiscard:
		return "Contagion"
	case models.TreatmentRecoverOrgan:
		return "Organ Donor"
	}
	return string(kind)
}

func titled(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// Shuffle permutes deck in place (Fisher-Yates via rand.Shuffle).
func Shuffle(deck []*models.Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// Deal gives each player up to n cards from the end of the deck, one player at
// a time in seating order. A short deck deals fewer cards.
func Deal(gs *models.GameState, n int) {
	for _, p := range gs.Players {
		refillHand(gs, p, len(p.Hand)+n)
	}
}
