package engage

import (
	"context"
	"fmt"
	"time"

	"kindred/internal/model"
)

// ScanConfig bounds the two operating windows and the active-user filter.
type ScanConfig struct {
	// ImmediateWindow covers brand-new entries; scanned at the fast cadence.
	ImmediateWindow time.Duration
	// MainWindow is the widest lookback for entries still without a response.
	MainWindow time.Duration
	// MainGrace keeps the main scan off entries the immediate cycle is still
	// responsible for, so the two cadences never race over the same entry.
	MainGrace time.Duration
	// ActiveWindow is the trailing window a user must have posted in to count
	// as active.
	ActiveWindow time.Duration
}

func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		ImmediateWindow: 10 * time.Minute,
		MainWindow:      48 * time.Hour,
		MainGrace:       15 * time.Minute,
		ActiveWindow:    7 * 24 * time.Hour,
	}
}

// Scanner turns recent journal activity into engagement candidates.
type Scanner struct {
	journal  Journal
	insights Insights
	profiles Profiles
	cfg      ScanConfig
}

func NewScanner(journal Journal, insights Insights, profiles Profiles, cfg ScanConfig) *Scanner {
	return &Scanner{journal: journal, insights: insights, profiles: profiles, cfg: cfg}
}

// Scan produces candidates for one cycle kind at asOf. AI-authored thread
// entries are excluded here outright; the guard re-checks as a second line.
// Entries whose every persona already answered produce no candidate.
func (s *Scanner) Scan(ctx context.Context, kind model.CycleKind, asOf time.Time) ([]Candidate, error) {
	var from, to time.Time
	switch kind {
	case model.CycleImmediate:
		from, to = asOf.Add(-s.cfg.ImmediateWindow), asOf
	case model.CycleMain, model.CycleManual:
		from, to = asOf.Add(-s.cfg.MainWindow), asOf.Add(-s.cfg.MainGrace)
		if kind == model.CycleManual {
			// Manual runs cover both windows in one pass.
			to = asOf
		}
	default:
		return nil, fmt.Errorf("scan: cycle kind %s does not dispatch", kind)
	}

	entries, err := s.journal.EntriesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	active, err := s.journal.ActiveUserIDs(ctx, asOf.Add(-s.cfg.ActiveWindow))
	if err != nil {
		return nil, fmt.Errorf("scan active users: %w", err)
	}

	today, dayStart := localDay(asOf)

	var out []Candidate
	for _, e := range entries {
		if e.IsAIGenerated() {
			continue
		}
		if !active[e.UserID] {
			continue
		}

		answered, err := s.insights.InsightPersonas(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("scan answered personas: %w", err)
		}
		eligible := remainingPersonas(answered)
		if len(eligible) == 0 {
			continue
		}

		profile, err := s.profiles.Profile(ctx, e.UserID, today)
		if err != nil {
			// Degrade, don't block the cycle: a broken profile row reads as
			// the most conservative configuration.
			profile = &model.EngagementProfile{UserID: e.UserID, Tier: model.TierFree, Level: model.LevelLow, CounterDate: today}
		}

		ordinal, err := s.journal.EntryOrdinal(ctx, e.UserID, dayStart, e.CreatedAt)
		if err != nil {
			ordinal = 1
		}

		flags := ExtractTopics(&e)
		out = append(out, Candidate{
			Entry:        e,
			Profile:      profile,
			DailyOrdinal: ordinal,
			ReplyContext: e.ThreadID != "" && e.ThreadID != e.ID,
			TopicFlags:   flags,
			Eligible:     SelectPersonas(flags, eligible),
		})
	}
	return out, nil
}

func remainingPersonas(answered []model.Persona) []model.Persona {
	done := make(map[model.Persona]bool, len(answered))
	for _, p := range answered {
		done[p] = true
	}
	var out []model.Persona
	for _, p := range model.AllPersonas() {
		if !done[p] {
			out = append(out, p)
		}
	}
	return out
}
