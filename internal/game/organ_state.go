package game

import "github.com/jason-s-yu/virus/internal/models"

// OrganState is the clinical state of a slot, derived from its attachments.
type OrganState string

const (
	StateHealthy    OrganState = "healthy"
	StateInfected   OrganState = "infected"
	StateVaccinated OrganState = "vaccinated"
	StateImmunized  OrganState = "immunized"
	StateRemoved    OrganState = "removed"
)

// OrganStateOf derives a slot's state. The order of the checks matters: two
// medicines immunize the organ even if a virus is still attached.
func OrganStateOf(slot *models.OrganSlot) OrganState {
	if slot == nil || slot.Organ == nil {
		return StateRemoved
	}
	viruses, medicines := len(slot.Viruses), len(slot.Medicines)
	switch {
	case medicines >= 2:
		return StateImmunized
	case viruses >= 2:
		return StateRemoved
	case viruses == 1 && medicines == 1:
		return StateHealthy
	case viruses == 1:
		return StateInfected
	case medicines == 1:
		return StateVaccinated
	default:
		return StateHealthy
	}
}

// isHealthyForVictory reports whether a slot counts toward a complete body.
func isHealthyForVictory(slot *models.OrganSlot) bool {
	switch OrganStateOf(slot) {
	case StateHealthy, StateVaccinated, StateImmunized:
		return true
	}
	return false
}
