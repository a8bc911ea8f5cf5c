package game

import "github.com/jason-s-yu/virus/internal/models"

// CanPlayCard reports whether card may be played by actor onto target's
// targetColor slot. It never mutates state.
func CanPlayCard(card *models.Card, actor, target *models.Player, targetColor models.Color, gs *models.GameState, opts PlayOptions) bool {
	if card == nil || actor == nil || target == nil || gs == nil {
		return false
	}
	switch card.Type {
	case models.CardOrgan:
		return canPlayOrgan(card, target, targetColor)
	case models.CardVirus, models.CardMedicine:
		return canAttach(card, target, targetColor)
	case models.CardTreatment:
		return canPlayTreatment(card, actor, target, targetColor, gs, opts)
	}
	return false
}

// canPlayOrgan: matching (or wildcard) color onto a slot with no organ card.
func canPlayOrgan(card *models.Card, target *models.Player, targetColor models.Color) bool {
	slot := target.Body.Slot(targetColor)
	if slot == nil || slot.Organ != nil {
		return false
	}
	return card.Color == models.ColorMulticolor || card.Color == targetColor
}

// canAttach is shared by viruses and medicines. Color matching is against the
// slot, not the organ card, so a wildcard organ is attacked via its slot color.
func canAttach(card *models.Card, target *models.Player, targetColor models.Color) bool {
	slot := target.Body.Slot(targetColor)
	if slot == nil || slot.Organ == nil {
		return false
	}
	switch OrganStateOf(slot) {
	case StateImmunized, StateRemoved:
		return false
	}
	return card.Color == models.ColorMulticolor || card.Color == targetColor
}

func canPlayTreatment(card *models.Card, actor, target *models.Player, targetColor models.Color, gs *models.GameState, opts PlayOptions) bool {
	switch card.Treatment {
	case models.TreatmentEnergyTransfer:
		return canEnergyTransfer(target, targetColor, gs, opts)
	case models.TreatmentReturnOrgan:
		slot := target.Body.Slot(targetColor)
		return slot != nil && slot.Organ != nil
	case models.TreatmentOrganThief:
		return canStealOrgan(actor, target, targetColor)
	case models.TreatmentForcedDiscard:
		return holdsOtherThan(target, card.ID)
	case models.TreatmentDiscardToCure:
		return canDiscardToCure(card, actor, target, targetColor, opts)
	case models.TreatmentBodySwap:
		return canBodySwap(target, gs, opts)
	case models.TreatmentMassDiscard:
		// Legal even when no opponent holds cards; the effect is then empty.
		return true
	case models.TreatmentRecoverOrgan:
		return canRecoverOrgan(actor, targetColor, gs)
	}
	return false
}

// transferEndpoints resolves the source and destination of an energy transfer.
func transferEndpoints(target *models.Player, targetColor models.Color, gs *models.GameState, opts PlayOptions) (src, dst *models.OrganSlot, srcOwner *models.Player, srcColor models.Color) {
	srcColor = opts.SourceColor
	if srcColor == "" {
		srcColor = targetColor
	}
	srcOwner = target
	if opts.SourcePlayerID != "" {
		srcOwner = gs.PlayerByID(opts.SourcePlayerID)
	}
	if srcOwner == nil {
		return nil, nil, nil, srcColor
	}
	return srcOwner.Body.Slot(srcColor), target.Body.Slot(targetColor), srcOwner, srcColor
}

func canEnergyTransfer(target *models.Player, targetColor models.Color, gs *models.GameState, opts PlayOptions) bool {
	if targetColor == "" {
		return false
	}
	src, dst, srcOwner, srcColor := transferEndpoints(target, targetColor, gs, opts)
	if src == nil || dst == nil {
		return false
	}
	if srcOwner.ID == target.ID && srcColor == targetColor {
		return false
	}
	if src.Organ == nil || (len(src.Viruses) == 0 && len(src.Medicines) == 0) {
		return false
	}
	if dst.Organ == nil {
		return false
	}
	// A virus moves in preference to a medicine. The destination follows the
	// same rules as playing the card there: a transferred virus cannot land on
	// an immunized organ, and a medicine cannot join two others.
	if len(src.Viruses) > 0 {
		return OrganStateOf(dst) != StateImmunized
	}
	return len(dst.Medicines) < 2
}

func canStealOrgan(actor, target *models.Player, targetColor models.Color) bool {
	own := actor.Body.Slot(targetColor)
	theirs := target.Body.Slot(targetColor)
	if own == nil || theirs == nil {
		return false
	}
	if own.Organ != nil || theirs.Organ == nil {
		return false
	}
	return OrganStateOf(theirs) != StateImmunized
}

func canDiscardToCure(card *models.Card, actor, target *models.Player, targetColor models.Color, opts PlayOptions) bool {
	slot := target.Body.Slot(targetColor)
	if slot == nil || len(slot.Viruses) == 0 {
		return false
	}
	if opts.SacrificeCardID != "" {
		return opts.SacrificeCardID != card.ID && actor.HandIndex(opts.SacrificeCardID) >= 0
	}
	return holdsOtherThan(actor, card.ID)
}

// holdsOtherThan reports whether p's hand has a card besides cardID, which is
// about to leave the hand.
func holdsOtherThan(p *models.Player, cardID string) bool {
	for _, c := range p.Hand {
		if c.ID != cardID {
			return true
		}
	}
	return false
}

func canBodySwap(target *models.Player, gs *models.GameState, opts PlayOptions) bool {
	if len(gs.Players) < 2 {
		return false
	}
	second := gs.PlayerByID(opts.SecondTargetPlayerID)
	return second != nil && second.ID != target.ID
}

func canRecoverOrgan(actor *models.Player, targetColor models.Color, gs *models.GameState) bool {
	slot := actor.Body.Slot(targetColor)
	if slot == nil || slot.Organ != nil {
		return false
	}
	return findDiscardedOrgan(gs, targetColor) >= 0
}

// findDiscardedOrgan returns the index of the first organ in the discard pile
// matching color or multicolor, or -1.
func findDiscardedOrgan(gs *models.GameState, color models.Color) int {
	for i, c := range gs.DiscardPile {
		if c.Type != models.CardOrgan {
			continue
		}
		if c.Color == color || c.Color == models.ColorMulticolor {
			return i
		}
	}
	return -1
}
