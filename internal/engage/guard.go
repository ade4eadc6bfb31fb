package engage

import (
	"context"
	"log"
	"time"
)

// Guard enforces the hard engagement invariants on dispatches that survived
// the policy rolls. Check order matters: AI-target and duplicate rejections
// are unconditional; cooldown and the per-entry cap may be bypassed by
// testing mode.
type Guard struct {
	insights Insights
	// Cooldown is the minimum gap between any two AI responses to one user.
	Cooldown time.Duration
	// MaxPerEntry caps how many personas answer a single entry in one batch.
	MaxPerEntry int
}

func NewGuard(insights Insights, cooldown time.Duration, maxPerEntry int) *Guard {
	if maxPerEntry < 1 {
		maxPerEntry = 1
	}
	return &Guard{insights: insights, Cooldown: cooldown, MaxPerEntry: maxPerEntry}
}

// Filter returns the dispatches allowed to proceed. Rejections are expected
// filtering behavior, never errors; a store failure on the duplicate check
// rejects the dispatch (fail-closed, the candidate returns next cycle).
func (g *Guard) Filter(ctx context.Context, dispatches []Dispatch, testing bool, now time.Time) []Dispatch {
	perEntry := make(map[string]int)
	perUserAccepted := make(map[string]time.Time)

	var out []Dispatch
	for _, d := range dispatches {
		entry := d.Candidate.Entry

		// 1. Never respond to AI-generated content. No override.
		if entry.IsAIGenerated() {
			log.Printf("[ENGAGE] guard reject entry=%s persona=%s reason=ai_target", entry.ID, d.Persona)
			continue
		}

		// 2. One response per persona per entry. No override.
		exists, err := g.insights.HasInsight(ctx, entry.ID, d.Persona)
		if err != nil {
			log.Printf("[ENGAGE] guard duplicate check failed entry=%s persona=%s: %v", entry.ID, d.Persona, err)
			continue
		}
		if exists {
			log.Printf("[ENGAGE] guard reject entry=%s persona=%s reason=duplicate", entry.ID, d.Persona)
			continue
		}

		if !testing {
			// 3. Bombardment prevention: respect the user's cooldown window.
			// Fan-out onto an entry that already has an acceptance this batch
			// is governed by the cap below, not the cooldown; acceptances on
			// the user's *other* entries do count against the window.
			if perEntry[entry.ID] == 0 {
				last := d.Candidate.Profile.LastResponseAt
				if t, ok := perUserAccepted[entry.UserID]; ok && t.After(last) {
					last = t
				}
				if !last.IsZero() && now.Sub(last) < g.Cooldown {
					log.Printf("[ENGAGE] guard reject entry=%s persona=%s reason=cooldown", entry.ID, d.Persona)
					continue
				}
			}

			// 4. Bounded simultaneous reactions per entry.
			if perEntry[entry.ID] >= g.MaxPerEntry {
				log.Printf("[ENGAGE] guard reject entry=%s persona=%s reason=entry_cap", entry.ID, d.Persona)
				continue
			}
		}

		perEntry[entry.ID]++
		perUserAccepted[entry.UserID] = now
		out = append(out, d)
	}
	return out
}
