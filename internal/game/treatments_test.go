package game

import (
	"testing"

	"github.com/jason-s-yu/virus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playTreatmentCard(t *testing.T, e *Engine, gs *models.GameState, kind models.TreatmentType, a PlayCard) (*models.Card, Outcome) {
	t.Helper()
	actor := gs.CurrentPlayer()
	card := treatment(kind)
	give(actor, card)
	a.CardID = card.ID
	return card, e.Apply(gs, actor.ID, a)
}

func TestEnergyTransferMovesVirusFirst(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	src := install(alice, models.ColorRed, 1, 1)
	moved := src.Viruses[0]
	dst := install(bob, models.ColorBlue, 0, 0)

	card, out := playTreatmentCard(t, e, gs, models.TreatmentEnergyTransfer, PlayCard{
		TargetPlayerID: bob.ID,
		TargetColor:    models.ColorBlue,
		PlayOptions:    PlayOptions{SourcePlayerID: alice.ID, SourceColor: models.ColorRed},
	})

	require.True(t, out.Applied, out.Reason)
	assert.Equal(t, StateVaccinated, OrganStateOf(src))
	assert.Equal(t, []*models.Card{moved}, dst.Viruses)
	assert.Equal(t, []*models.Card{card}, gs.DiscardPile, "the treatment is discarded")
	assert.Equal(t, "Alice moved a virus from Alice's heart to Bob's brain", out.Narration)
}

func TestEnergyTransferMedicineCuresDestination(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	src := install(bob, models.ColorGreen, 0, 1)
	dst := install(alice, models.ColorYellow, 1, 0)

	_, out := playTreatmentCard(t, e, gs, models.TreatmentEnergyTransfer, PlayCard{
		TargetColor: models.ColorYellow,
		PlayOptions: PlayOptions{SourcePlayerID: bob.ID, SourceColor: models.ColorGreen},
	})

	require.True(t, out.Applied, out.Reason)
	assert.Equal(t, StateHealthy, OrganStateOf(src))
	assert.Equal(t, StateHealthy, OrganStateOf(dst), "moved medicine absorbs the virus")
	assert.Len(t, gs.DiscardPile, 3)
}

func TestEnergyTransferCanDestroy(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	install(alice, models.ColorRed, 1, 0)
	dst := install(bob, models.ColorRed, 1, 0)

	_, out := playTreatmentCard(t, e, gs, models.TreatmentEnergyTransfer, PlayCard{
		TargetPlayerID: bob.ID,
		TargetColor:    models.ColorRed,
		PlayOptions:    PlayOptions{SourcePlayerID: alice.ID},
	})

	require.True(t, out.Applied)
	assert.True(t, dst.IsEmpty())
	assert.Contains(t, out.Narration, "destroying it")
}

func TestFailedTreatmentStaysInHand(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice := gs.Players[0]
	first, last := organ(models.ColorRed), organ(models.ColorBlue)
	give(alice, first)
	card := treatment(models.TreatmentReturnOrgan)
	give(alice, card, last)

	out := e.Apply(gs, alice.ID, PlayCard{CardID: card.ID, TargetColor: models.ColorRed})

	assert.False(t, out.Applied)
	assert.Equal(t, []*models.Card{first, card, last}, alice.Hand)
	assert.Empty(t, gs.DiscardPile)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, alice.ID, out.Notifications[0].PlayerID)
}

func TestResolveFailureReinsertsCardAtIndex(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	card := treatment(models.TreatmentBodySwap)
	other := organ(models.ColorRed)
	give(alice, card, other)

	// Bypass legality to exercise the resolver's own failure path.
	out := e.playTreatment(gs, alice, bob, card, PlayCard{CardID: card.ID})

	assert.False(t, out.Applied)
	assert.Equal(t, "treatment could not be executed", out.Reason)
	assert.Equal(t, []*models.Card{card, other}, alice.Hand)
	assert.Equal(t, "Body Swap failed: could not execute", out.Notifications[0].Message)
}

func TestReturnOrganToHand(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	slot := install(bob, models.ColorBlue, 1, 0)
	brain := slot.Organ
	give(bob, virus(models.ColorRed))

	_, out := playTreatmentCard(t, e, gs, models.TreatmentReturnOrgan, PlayCard{TargetPlayerID: bob.ID, TargetColor: models.ColorBlue})

	require.True(t, out.Applied, out.Reason)
	assert.True(t, slot.IsEmpty())
	assert.Empty(t, slot.Viruses)
	assert.Contains(t, bob.Hand, brain)
	assert.Len(t, bob.Hand, 2)
	assert.Len(t, gs.DiscardPile, 2, "virus plus the treatment")
	assert.Equal(t, 0, alice.Body.OrganCount())
}

func TestReturnOrganTrimsHandToCap(t *testing.T) {
	e, gs := newTestState(t, 2)
	bob := gs.Players[1]
	install(bob, models.ColorRed, 0, 0)
	give(bob, virus(models.ColorRed), virus(models.ColorBlue), virus(models.ColorGreen))

	_, out := playTreatmentCard(t, e, gs, models.TreatmentReturnOrgan, PlayCard{TargetPlayerID: bob.ID, TargetColor: models.ColorRed})

	require.True(t, out.Applied)
	assert.Len(t, bob.Hand, e.Rules.HandSize)
	assert.Len(t, gs.DiscardPile, 2, "one excess card plus the treatment")
	assert.Contains(t, out.Narration, "over the hand limit")
}

func TestStealOrganTakesWholeSlot(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	theirs := install(bob, models.ColorGreen, 1, 0)
	want := theirs.Clone()

	_, out := playTreatmentCard(t, e, gs, models.TreatmentOrganThief, PlayCard{TargetPlayerID: bob.ID, TargetColor: models.ColorGreen})

	require.True(t, out.Applied, out.Reason)
	mine := alice.Body.Slot(models.ColorGreen)
	assert.Same(t, want.Organ, mine.Organ)
	assert.Equal(t, want.Viruses, mine.Viruses)
	assert.True(t, theirs.IsEmpty())
	assert.Empty(t, theirs.Viruses)
	assert.Equal(t, "Alice stole Bob's stomach", out.Narration)
}

func TestForcedDiscardTakesLastCard(t *testing.T) {
	e, gs := newTestState(t, 2)
	bob := gs.Players[1]
	first, last := organ(models.ColorRed), organ(models.ColorBlue)
	give(bob, first, last)

	card, out := playTreatmentCard(t, e, gs, models.TreatmentForcedDiscard, PlayCard{TargetPlayerID: bob.ID})

	require.True(t, out.Applied)
	assert.Equal(t, []*models.Card{first}, bob.Hand)
	assert.Equal(t, []*models.Card{last, card}, gs.DiscardPile)
}

func TestForcedDiscardOnSelfNeedsAnotherCard(t *testing.T) {
	e, gs := newTestState(t, 2)
	_, out := playTreatmentCard(t, e, gs, models.TreatmentForcedDiscard, PlayCard{})
	assert.False(t, out.Applied)
}

func TestDiscardToCure(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	slot := install(bob, models.ColorRed, 1, 0)
	v := slot.Viruses[0]
	keep, sacrifice := organ(models.ColorBlue), organ(models.ColorGreen)
	give(alice, keep, sacrifice)

	card, out := playTreatmentCard(t, e, gs, models.TreatmentDiscardToCure, PlayCard{
		TargetPlayerID: bob.ID,
		TargetColor:    models.ColorRed,
		PlayOptions:    PlayOptions{SacrificeCardID: sacrifice.ID},
	})

	require.True(t, out.Applied, out.Reason)
	assert.Equal(t, StateHealthy, OrganStateOf(slot))
	assert.Equal(t, []*models.Card{keep}, alice.Hand)
	assert.Equal(t, []*models.Card{sacrifice, v, card}, gs.DiscardPile)
}

func TestDiscardToCureDefaultsToLastOtherCard(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice := gs.Players[0]
	install(alice, models.ColorYellow, 1, 0)
	first, last := organ(models.ColorBlue), organ(models.ColorGreen)
	give(alice, first, last)

	_, out := playTreatmentCard(t, e, gs, models.TreatmentDiscardToCure, PlayCard{TargetColor: models.ColorYellow})

	require.True(t, out.Applied, out.Reason)
	assert.Equal(t, []*models.Card{first}, alice.Hand)
	assert.Same(t, last, gs.DiscardPile[0])
}

func TestBodySwapIsDeep(t *testing.T) {
	e, gs := newTestState(t, 3)
	alice, bob, carol := gs.Players[0], gs.Players[1], gs.Players[2]
	install(bob, models.ColorRed, 1, 0)
	install(bob, models.ColorBlue, 0, 1)
	install(carol, models.ColorGreen, 0, 2)
	bobBefore, carolBefore := bob.Body.Clone(), carol.Body.Clone()
	carolGreen := carol.Body.Slot(models.ColorGreen).Medicines
	firstMedicine := carolGreen[0]

	_, out := playTreatmentCard(t, e, gs, models.TreatmentBodySwap, PlayCard{
		TargetPlayerID: bob.ID,
		PlayOptions:    PlayOptions{SecondTargetPlayerID: carol.ID},
	})

	require.True(t, out.Applied, out.Reason)
	assert.Equal(t, carolBefore, bob.Body)
	assert.Equal(t, bobBefore, carol.Body)
	assert.Equal(t, "Alice swapped the bodies of Bob and Carol", out.Narration)
	assert.Equal(t, 0, alice.Body.OrganCount())

	// Mutating the swapped-in body must not reach the slices it came from.
	bob.Body.Slot(models.ColorGreen).Medicines[0] = medicine(models.ColorMulticolor)
	assert.Same(t, firstMedicine, carolGreen[0])
	assert.Empty(t, carol.Body.Slot(models.ColorGreen).Medicines)
	assert.Equal(t, StateInfected, OrganStateOf(carol.Body.Slot(models.ColorRed)))
}

func TestMassDiscard(t *testing.T) {
	e, gs := newTestState(t, 3)
	alice, bob, carol := gs.Players[0], gs.Players[1], gs.Players[2]
	mine := organ(models.ColorRed)
	give(alice, mine)
	give(bob, organ(models.ColorBlue), virus(models.ColorBlue))

	card, out := playTreatmentCard(t, e, gs, models.TreatmentMassDiscard, PlayCard{})

	require.True(t, out.Applied)
	assert.Equal(t, []*models.Card{mine}, alice.Hand, "the actor keeps their hand")
	assert.Empty(t, bob.Hand)
	assert.Empty(t, carol.Hand)
	assert.Len(t, gs.DiscardPile, 3)
	assert.Same(t, card, gs.DiscardPile[2])
	assert.Equal(t, "Alice made 1 opponent(s) discard their hand", out.Narration)
}

func TestMassDiscardWithEmptyHandsSucceeds(t *testing.T) {
	e, gs := newTestState(t, 2)
	_, out := playTreatmentCard(t, e, gs, models.TreatmentMassDiscard, PlayCard{})
	require.True(t, out.Applied)
	assert.Equal(t, "Alice made 0 opponent(s) discard their hand", out.Narration)
}

func TestRecoverOrganRoundTrip(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice, bob := gs.Players[0], gs.Players[1]
	install(alice, models.ColorRed, 1, 0)
	heart := alice.Body.Slot(models.ColorRed).Organ

	// Bob destroys Alice's heart, sending it to the discard pile.
	gs.CurrentPlayerIndex = 1
	v := virus(models.ColorRed)
	give(bob, v)
	require.True(t, e.Apply(gs, bob.ID, PlayCard{CardID: v.ID, TargetPlayerID: alice.ID, TargetColor: models.ColorRed}).Applied)
	require.Contains(t, gs.DiscardPile, heart)

	gs.CurrentPlayerIndex = 0
	_, out := playTreatmentCard(t, e, gs, models.TreatmentRecoverOrgan, PlayCard{TargetColor: models.ColorRed})

	require.True(t, out.Applied, out.Reason)
	slot := alice.Body.Slot(models.ColorRed)
	assert.Same(t, heart, slot.Organ)
	assert.Empty(t, slot.Viruses)
	assert.NotContains(t, gs.DiscardPile, heart)
	assert.Equal(t, StateHealthy, OrganStateOf(slot))
}

func TestRecoverOrganTakesFirstMatch(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice := gs.Players[0]
	wild, red := organ(models.ColorMulticolor), organ(models.ColorRed)
	gs.Discard(organ(models.ColorBlue), wild, red)

	_, out := playTreatmentCard(t, e, gs, models.TreatmentRecoverOrgan, PlayCard{TargetColor: models.ColorRed})

	require.True(t, out.Applied)
	assert.Same(t, wild, alice.Body.Slot(models.ColorRed).Organ)
	assert.Contains(t, gs.DiscardPile, red)
}

func TestTreatmentCanWinTheGame(t *testing.T) {
	e, gs := newTestState(t, 2)
	alice := gs.Players[0]
	installAll(alice, models.ColorBlue)
	gs.Discard(organ(models.ColorBlue))

	_, out := playTreatmentCard(t, e, gs, models.TreatmentRecoverOrgan, PlayCard{TargetColor: models.ColorBlue})

	require.True(t, out.Applied)
	assert.True(t, gs.GameEnded)
	assert.Equal(t, alice.ID, gs.Winner.ID)
}
