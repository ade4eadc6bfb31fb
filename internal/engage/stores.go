package engage

import (
	"context"
	"time"

	"kindred/internal/model"
)

// The scheduler core talks to its collaborators through these narrow
// surfaces. *store.Store satisfies all three; tests substitute fakes.

// Journal is read-only access to journal entries.
type Journal interface {
	EntriesBetween(ctx context.Context, from, to time.Time) ([]model.JournalEntry, error)
	ActiveUserIDs(ctx context.Context, since time.Time) (map[string]bool, error)
	EntryOrdinal(ctx context.Context, userID string, dayStart, asOf time.Time) (int, error)
}

// Insights is the append-only AI insight record surface.
type Insights interface {
	HasInsight(ctx context.Context, entryID string, persona model.Persona) (bool, error)
	InsightPersonas(ctx context.Context, entryID string) ([]model.Persona, error)
	InsertInsight(ctx context.Context, ins *model.AIInsight) error
	InsightsSince(ctx context.Context, t time.Time) (int, error)
}

// Profiles reads tier/level/counters and records successful responses.
type Profiles interface {
	Profile(ctx context.Context, userID string, today string) (*model.EngagementProfile, error)
	RecordResponse(ctx context.Context, userID string, at time.Time, today string) error
}

// Candidate is one engagement opportunity: an entry, its owner's profile,
// and the personas still eligible to answer, ordered by affinity.
type Candidate struct {
	Entry        model.JournalEntry
	Profile      *model.EngagementProfile
	DailyOrdinal int  // 1-based count of the user's entries today, this one included
	ReplyContext bool // entry is a follow-up inside an existing thread
	TopicFlags   []string
	Eligible     []model.Persona
}

// Dispatch is a (candidate, persona) pair that survived the policy rolls and
// is headed for the guard and, past it, delayed execution.
type Dispatch struct {
	Candidate Candidate
	Persona   model.Persona
}

// localDay returns the YYYY-MM-DD key and day start for t in local time.
// Daily counters and ordinals reset at this boundary.
func localDay(t time.Time) (string, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start.Format("2006-01-02"), start
}
