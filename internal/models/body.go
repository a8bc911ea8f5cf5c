package models

// BodySize is the number of body systems each player has.
const BodySize = 4

// OrganSlot is one body-system position. A slot without an organ never holds
// virus or medicine cards.
type OrganSlot struct {
	Organ     *Card   `json:"organ,omitempty"`
	Viruses   []*Card `json:"viruses"`
	Medicines []*Card `json:"medicines"`
}

// IsEmpty reports whether no organ is installed.
func (s *OrganSlot) IsEmpty() bool {
	return s.Organ == nil
}

// Clear empties the slot and returns every card it held, organ first.
func (s *OrganSlot) Clear() []*Card {
	var cards []*Card
	if s.Organ != nil {
		cards = append(cards, s.Organ)
	}
	cards = append(cards, s.Viruses...)
	cards = append(cards, s.Medicines...)
	*s = OrganSlot{}
	return cards
}

// Clone returns a copy that shares no slices with s.
func (s OrganSlot) Clone() OrganSlot {
	return OrganSlot{
		Organ:     s.Organ,
		Viruses:   append([]*Card(nil), s.Viruses...),
		Medicines: append([]*Card(nil), s.Medicines...),
	}
}

// Body holds one slot per body color, indexed in BodyColors order.
type Body [BodySize]OrganSlot

// Slot returns the slot for a body color, or nil for multicolor and unknown colors.
func (b *Body) Slot(c Color) *OrganSlot {
	idx := c.slotIndex()
	if idx < 0 {
		return nil
	}
	return &b[idx]
}

// Clone deep-copies the body so later mutation of either copy is independent.
func (b Body) Clone() Body {
	var out Body
	for i := range b {
		out[i] = b[i].Clone()
	}
	return out
}

// OrganCount returns how many slots currently hold an organ.
func (b *Body) OrganCount() int {
	n := 0
	for i := range b {
		if b[i].Organ != nil {
			n++
		}
	}
	return n
}
