package engage

import (
	"math/rand"

	"kindred/internal/model"
)

// ResponseContext distinguishes a reaction to a fresh entry from a reply
// inside an existing conversation thread; the probability table has separate
// columns for the two.
type ResponseContext int

const (
	ContextReaction ResponseContext = iota
	ContextReply
)

type probKey struct {
	tier  model.Tier
	level model.InteractionLevel
	rctx  ResponseContext
}

// baseProbability is the fixed table (tier × interaction level × context).
// Premium/beta values are per persona: they roll once for each persona
// independently, so the per-roll base sits lower than the free tier's single
// default-persona roll.
var baseProbability = map[probKey]float64{
	{model.TierFree, model.LevelLow, ContextReaction}:    0.50,
	{model.TierFree, model.LevelNormal, ContextReaction}: 0.70,
	{model.TierFree, model.LevelHigh, ContextReaction}:   0.85,
	{model.TierFree, model.LevelLow, ContextReply}:       0.30,
	{model.TierFree, model.LevelNormal, ContextReply}:    0.50,
	{model.TierFree, model.LevelHigh, ContextReply}:      0.70,

	{model.TierPremium, model.LevelLow, ContextReaction}:    0.35,
	{model.TierPremium, model.LevelNormal, ContextReaction}: 0.50,
	{model.TierPremium, model.LevelHigh, ContextReaction}:   0.65,
	{model.TierPremium, model.LevelLow, ContextReply}:       0.25,
	{model.TierPremium, model.LevelNormal, ContextReply}:    0.40,
	{model.TierPremium, model.LevelHigh, ContextReply}:      0.55,

	{model.TierBeta, model.LevelLow, ContextReaction}:    0.40,
	{model.TierBeta, model.LevelNormal, ContextReaction}: 0.55,
	{model.TierBeta, model.LevelHigh, ContextReaction}:   0.70,
	{model.TierBeta, model.LevelLow, ContextReply}:       0.30,
	{model.TierBeta, model.LevelNormal, ContextReply}:    0.45,
	{model.TierBeta, model.LevelHigh, ContextReply}:      0.60,
}

// Ordinal decay: full probability for the user's first entry of the day,
// reduced for the second, floor from the third onward. The floor holds for
// all later entries rather than decaying further.
const (
	decaySecondEntry = 0.6
	decayFloor       = 0.35
)

func decayFactor(dailyOrdinal int) float64 {
	switch {
	case dailyOrdinal <= 1:
		return 1.0
	case dailyOrdinal == 2:
		return decaySecondEntry
	default:
		return decayFloor
	}
}

// ShouldRespond maps (tier, level, daily ordinal, context) to a response
// probability. The table lookup cannot miss because Tier and InteractionLevel
// are closed enums whose parsers already degraded unknown input to the most
// conservative values.
func ShouldRespond(tier model.Tier, level model.InteractionLevel, dailyOrdinal int, rctx ResponseContext) float64 {
	base, ok := baseProbability[probKey{tier, level, rctx}]
	if !ok {
		base = baseProbability[probKey{model.TierFree, model.LevelLow, rctx}]
	}
	return base * decayFactor(dailyOrdinal)
}

// Roll draws once against probability p. Each persona gets an independent
// roll per candidate; the rng is injected so tests can seed it.
func Roll(p float64, rng *rand.Rand) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// PersonasToRoll returns which personas roll for this candidate: premium and
// beta tiers roll the whole (affinity-ordered) eligible list independently,
// free users only the default persona when it is still eligible.
func PersonasToRoll(tier model.Tier, ordered []model.Persona) []model.Persona {
	if tier.MultiPersona() {
		return ordered
	}
	for _, p := range ordered {
		if p == model.DefaultPersona {
			return []model.Persona{p}
		}
	}
	return nil
}
