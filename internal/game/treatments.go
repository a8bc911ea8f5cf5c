package game

import (
	"fmt"

	"github.com/jason-s-yu/virus/internal/models"
)

// playTreatment takes the treatment out of the actor's hand, runs its effect and
// discards it. If the effect cannot run, the card goes back where it was.
func (e *Engine) playTreatment(gs *models.GameState, actor, target *models.Player, card *models.Card, a PlayCard) Outcome {
	_, idx := actor.RemoveFromHand(card.ID)

	narration, ok := e.resolveTreatment(gs, actor, target, card, a)
	if !ok {
		actor.InsertIntoHand(card, idx)
		return Outcome{
			Reason: "treatment could not be executed",
			Notifications: []Notification{
				{PlayerID: actor.ID, Message: fmt.Sprintf("%s failed: could not execute", card.Name), Severity: SeverityWarning},
			},
		}
	}
	gs.Discard(card)

	out := Outcome{Applied: true, Narration: narration}
	e.finishPlay(gs, &out)
	return out
}

// resolveTreatment runs a treatment's effect. Every branch checks its own
// preconditions before mutating, so a false return means nothing changed.
func (e *Engine) resolveTreatment(gs *models.GameState, actor, target *models.Player, card *models.Card, a PlayCard) (string, bool) {
	switch card.Treatment {
	case models.TreatmentEnergyTransfer:
		return energyTransfer(gs, actor, target, a)
	case models.TreatmentReturnOrgan:
		return e.returnOrgan(gs, actor, target, a.TargetColor)
	case models.TreatmentOrganThief:
		return stealOrgan(actor, target, a.TargetColor)
	case models.TreatmentForcedDiscard:
		return forcedDiscard(gs, actor, target)
	case models.TreatmentDiscardToCure:
		return discardToCure(gs, actor, target, a)
	case models.TreatmentBodySwap:
		return bodySwap(gs, actor, target, a.SecondTargetPlayerID)
	case models.TreatmentMassDiscard:
		return massDiscard(gs, actor)
	case models.TreatmentRecoverOrgan:
		return recoverOrgan(gs, actor, a.TargetColor)
	}
	return "", false
}

func energyTransfer(gs *models.GameState, actor, target *models.Player, a PlayCard) (string, bool) {
	src, dst, srcOwner, srcColor := transferEndpoints(target, a.TargetColor, gs, a.PlayOptions)
	if src == nil || dst == nil || src.Organ == nil || dst.Organ == nil {
		return "", false
	}
	if src == dst {
		return "", false
	}

	what := "virus"
	var res attachResult
	switch {
	case len(src.Viruses) > 0:
		moved := src.Viruses[len(src.Viruses)-1]
		src.Viruses = src.Viruses[:len(src.Viruses)-1]
		res = attachVirus(gs, dst, moved)
	case len(src.Medicines) > 0:
		moved := src.Medicines[len(src.Medicines)-1]
		src.Medicines = src.Medicines[:len(src.Medicines)-1]
		res = attachMedicine(gs, dst, moved)
		what = "medicine"
	default:
		return "", false
	}

	narration := fmt.Sprintf("%s moved a %s from %s's %s to %s's %s",
		actor.Name, what, srcOwner.Name, srcColor.OrganName(), target.Name, a.TargetColor.OrganName())
	if res == attachDestroyed {
		narration += ", destroying it"
	}
	return narration, true
}

func (e *Engine) returnOrgan(gs *models.GameState, actor, target *models.Player, color models.Color) (string, bool) {
	slot := target.Body.Slot(color)
	if slot == nil || slot.Organ == nil {
		return "", false
	}
	organ := slot.Organ
	gs.Discard(slot.Viruses...)
	gs.Discard(slot.Medicines...)
	*slot = models.OrganSlot{}
	target.Hand = append(target.Hand, organ)

	dropped := 0
	for len(target.Hand) > e.Rules.HandSize {
		c, _ := target.RemoveFromHand(target.Hand[e.rng.Intn(len(target.Hand))].ID)
		gs.Discard(c)
		dropped++
	}

	narration := fmt.Sprintf("%s returned %s's %s to their hand", actor.Name, target.Name, color.OrganName())
	if dropped > 0 {
		narration += fmt.Sprintf(" (%d card(s) discarded over the hand limit)", dropped)
	}
	return narration, true
}

func stealOrgan(actor, target *models.Player, color models.Color) (string, bool) {
	if !canStealOrgan(actor, target, color) {
		return "", false
	}
	own := actor.Body.Slot(color)
	theirs := target.Body.Slot(color)
	*own = *theirs
	*theirs = models.OrganSlot{}
	return fmt.Sprintf("%s stole %s's %s", actor.Name, target.Name, color.OrganName()), true
}

// forcedDiscard takes the last card of the target's hand.
func forcedDiscard(gs *models.GameState, actor, target *models.Player) (string, bool) {
	if len(target.Hand) == 0 {
		return "", false
	}
	last := target.Hand[len(target.Hand)-1]
	target.Hand = target.Hand[:len(target.Hand)-1]
	gs.Discard(last)
	return fmt.Sprintf("%s made %s discard a card", actor.Name, target.Name), true
}

func discardToCure(gs *models.GameState, actor, target *models.Player, a PlayCard) (string, bool) {
	slot := target.Body.Slot(a.TargetColor)
	if slot == nil || len(slot.Viruses) == 0 {
		return "", false
	}
	sacrificeID := a.SacrificeCardID
	if sacrificeID == "" {
		if len(actor.Hand) == 0 {
			return "", false
		}
		sacrificeID = actor.Hand[len(actor.Hand)-1].ID
	}
	sacrifice, _ := actor.RemoveFromHand(sacrificeID)
	if sacrifice == nil {
		return "", false
	}
	gs.Discard(sacrifice)

	virus := slot.Viruses[len(slot.Viruses)-1]
	slot.Viruses = slot.Viruses[:len(slot.Viruses)-1]
	gs.Discard(virus)
	return fmt.Sprintf("%s sacrificed a card to cure %s's %s", actor.Name, target.Name, a.TargetColor.OrganName()), true
}

// bodySwap exchanges two bodies by value; neither player keeps a slice of the other's.
func bodySwap(gs *models.GameState, actor, target *models.Player, secondID string) (string, bool) {
	second := gs.PlayerByID(secondID)
	if second == nil || second.ID == target.ID {
		return "", false
	}
	first, other := target.Body.Clone(), second.Body.Clone()
	target.Body = other
	second.Body = first
	return fmt.Sprintf("%s swapped the bodies of %s and %s", actor.Name, target.Name, second.Name), true
}

func massDiscard(gs *models.GameState, actor *models.Player) (string, bool) {
	affected := 0
	for _, p := range gs.Players {
		if p.ID == actor.ID || len(p.Hand) == 0 {
			continue
		}
		gs.Discard(p.Hand...)
		p.Hand = []*models.Card{}
		affected++
	}
	return fmt.Sprintf("%s made %d opponent(s) discard their hand", actor.Name, affected), true
}

func recoverOrgan(gs *models.GameState, actor *models.Player, color models.Color) (string, bool) {
	slot := actor.Body.Slot(color)
	if slot == nil || slot.Organ != nil {
		return "", false
	}
	idx := findDiscardedOrgan(gs, color)
	if idx < 0 {
		return "", false
	}
	organ := gs.DiscardPile[idx]
	gs.DiscardPile = append(gs.DiscardPile[:idx:idx], gs.DiscardPile[idx+1:]...)
	slot.Organ = organ
	return fmt.Sprintf("%s recovered a %s from the discard pile", actor.Name, color.OrganName()), true
}
