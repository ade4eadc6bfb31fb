package engage

import (
	"math/rand"
	"testing"

	"kindred/internal/model"
)

func TestFreeLowFirstEntryBaseRate(t *testing.T) {
	p := ShouldRespond(model.TierFree, model.LevelLow, 1, ContextReaction)
	if p != 0.50 {
		t.Errorf("free/low/entry-1 reaction base rate: expected 0.50, got %v", p)
	}
}

func TestDecayIsMonotonic(t *testing.T) {
	tiers := []model.Tier{model.TierFree, model.TierPremium, model.TierBeta}
	levels := []model.InteractionLevel{model.LevelLow, model.LevelNormal, model.LevelHigh}
	contexts := []ResponseContext{ContextReaction, ContextReply}

	for _, tier := range tiers {
		for _, level := range levels {
			for _, rctx := range contexts {
				prev := ShouldRespond(tier, level, 1, rctx)
				for ordinal := 2; ordinal <= 6; ordinal++ {
					cur := ShouldRespond(tier, level, ordinal, rctx)
					if cur > prev {
						t.Errorf("%s/%s ordinal %d: probability %v exceeds previous %v", tier, level, ordinal, cur, prev)
					}
					prev = cur
				}
			}
		}
	}
}

func TestThirdEntryStrictlyLowerThanFirst(t *testing.T) {
	first := ShouldRespond(model.TierFree, model.LevelLow, 1, ContextReaction)
	third := ShouldRespond(model.TierFree, model.LevelLow, 3, ContextReaction)
	if third >= first {
		t.Errorf("expected entry-3 probability %v < entry-1 probability %v", third, first)
	}
}

func TestDecayFloorsAtThirdEntry(t *testing.T) {
	third := ShouldRespond(model.TierPremium, model.LevelHigh, 3, ContextReaction)
	tenth := ShouldRespond(model.TierPremium, model.LevelHigh, 10, ContextReaction)
	if third != tenth {
		t.Errorf("entries beyond the 3rd must use the same floor: got %v vs %v", third, tenth)
	}
}

func TestUnknownProfileDegradesToConservative(t *testing.T) {
	got := ShouldRespond(model.ParseTier("platinum"), model.ParseLevel("max"), 1, ContextReaction)
	want := ShouldRespond(model.TierFree, model.LevelLow, 1, ContextReaction)
	if got != want {
		t.Errorf("unknown tier/level must use the most conservative row: got %v want %v", got, want)
	}
}

func TestRollBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	if Roll(0, rng) {
		t.Error("probability 0 must never pass")
	}
	if !Roll(1, rng) {
		t.Error("probability 1 must always pass")
	}
}

func TestRollIsSeededDeterministic(t *testing.T) {
	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		if Roll(0.5, a) != Roll(0.5, b) {
			t.Fatal("same seed must produce the same roll sequence")
		}
	}
}

func TestPersonasToRollFanOut(t *testing.T) {
	ordered := []model.Persona{model.PersonaTheo, model.PersonaNova, model.PersonaMira, model.PersonaSage}

	if got := PersonasToRoll(model.TierPremium, ordered); len(got) != 4 {
		t.Errorf("premium rolls every eligible persona, got %d", len(got))
	}
	if got := PersonasToRoll(model.TierBeta, ordered); len(got) != 4 {
		t.Errorf("beta rolls every eligible persona, got %d", len(got))
	}

	got := PersonasToRoll(model.TierFree, ordered)
	if len(got) != 1 || got[0] != model.DefaultPersona {
		t.Errorf("free rolls only the default persona, got %v", got)
	}

	// Default persona already answered: free users get nothing.
	withoutDefault := []model.Persona{model.PersonaTheo, model.PersonaSage}
	if got := PersonasToRoll(model.TierFree, withoutDefault); got != nil {
		t.Errorf("free with default persona ineligible must roll nothing, got %v", got)
	}
}
