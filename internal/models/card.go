package models

// Color identifies both a card's color and, for the four body colors, a body system.
type Color string

const (
	ColorRed        Color = "red"
	ColorBlue       Color = "blue"
	ColorGreen      Color = "green"
	ColorYellow     Color = "yellow"
	ColorMulticolor Color = "multicolor" // wildcard; never a slot
	ColorPurple     Color = "purple"     // legacy value, never dealt
)

// BodyColors lists the four body systems in slot order.
var BodyColors = [BodySize]Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// IsBodyColor reports whether c names one of the four body slots.
func (c Color) IsBodyColor() bool {
	return c.slotIndex() >= 0
}

func (c Color) slotIndex() int {
	for i, bc := range BodyColors {
		if bc == c {
			return i
		}
	}
	return -1
}

// OrganName is the display name of the body system for a color.
func (c Color) OrganName() string {
	switch c {
	case ColorRed:
		return "heart"
	case ColorBlue:
		return "brain"
	case ColorGreen:
		return "stomach"
	case ColorYellow:
		return "bone"
	case ColorMulticolor:
		return "wildcard organ"
	default:
		return string(c)
	}
}

// CardType is one of organ, virus, medicine or treatment.
type CardType string

const (
	CardOrgan     CardType = "organ"
	CardVirus     CardType = "virus"
	CardMedicine  CardType = "medicine"
	CardTreatment CardType = "treatment"
)

// TreatmentType identifies the special effect of a treatment card.
type TreatmentType string

const (
	TreatmentEnergyTransfer TreatmentType = "energy-transfer" // move a virus or medicine between slots
	TreatmentReturnOrgan    TreatmentType = "return-organ"    // send an organ back to its owner's hand
	TreatmentOrganThief     TreatmentType = "organ-thief"     // steal an organ and its attachments
	TreatmentForcedDiscard  TreatmentType = "forced-discard"  // target discards one card
	TreatmentDiscardToCure  TreatmentType = "discard-to-cure" // sacrifice a card to remove a virus
	TreatmentBodySwap       TreatmentType = "body-swap"       // two players exchange bodies
	TreatmentMassDiscard    TreatmentType = "mass-discard"    // every opponent discards their hand
	TreatmentRecoverOrgan   TreatmentType = "recover-organ"   // pull an organ back from the discard pile
)

// TreatmentTypes lists every treatment kind in a stable order.
var TreatmentTypes = []TreatmentType{
	TreatmentEnergyTransfer,
	TreatmentReturnOrgan,
	TreatmentOrganThief,
	TreatmentForcedDiscard,
	TreatmentDiscardToCure,
	TreatmentBodySwap,
	TreatmentMassDiscard,
	TreatmentRecoverOrgan,
}

// Card is immutable once dealt; identity is by ID.
type Card struct {
	ID        string        `json:"id"`
	Type      CardType      `json:"type"`
	Color     Color         `json:"color,omitempty"` // empty for treatments
	Treatment TreatmentType `json:"treatmentType,omitempty"`
	Name      string        `json:"name,omitempty"`
}
