package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kindred/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateEntryInheritsThread(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := &model.JournalEntry{UserID: "u1", Content: "first entry"}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if e.ThreadID != e.ID {
		t.Errorf("expected thread id to inherit entry id, got %q vs %q", e.ThreadID, e.ID)
	}

	reply := &model.JournalEntry{UserID: "u1", Content: "follow-up", ThreadID: e.ThreadID}
	if err := s.CreateEntry(ctx, reply); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if reply.ThreadID != e.ID {
		t.Errorf("reply should keep the original thread, got %q", reply.ThreadID)
	}
}

func TestInsightUniquenessPerEntryPersona(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := &model.JournalEntry{UserID: "u1", Content: "hello"}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	ins := &model.AIInsight{EntryID: e.ID, UserID: "u1", Persona: model.PersonaMira, Text: "hi", AIGenerated: true, ThreadID: e.ThreadID}
	if err := s.InsertInsight(ctx, ins); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	dup := &model.AIInsight{EntryID: e.ID, UserID: "u1", Persona: model.PersonaMira, Text: "hi again", AIGenerated: true, ThreadID: e.ThreadID}
	err := s.InsertInsight(ctx, dup)
	if !errors.Is(err, ErrDuplicateInsight) {
		t.Fatalf("expected ErrDuplicateInsight, got %v", err)
	}

	// A different persona on the same entry is fine.
	other := &model.AIInsight{EntryID: e.ID, UserID: "u1", Persona: model.PersonaTheo, Text: "also hi", AIGenerated: true, ThreadID: e.ThreadID}
	if err := s.InsertInsight(ctx, other); err != nil {
		t.Fatalf("second persona insert: %v", err)
	}

	got, err := s.InsightPersonas(ctx, e.ID)
	if err != nil {
		t.Fatalf("insight personas: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 answered personas, got %d", len(got))
	}
}

func TestHasInsight(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := &model.JournalEntry{UserID: "u1", Content: "x"}
	s.CreateEntry(ctx, e)

	ok, err := s.HasInsight(ctx, e.ID, model.PersonaNova)
	if err != nil || ok {
		t.Fatalf("expected no insight, got ok=%v err=%v", ok, err)
	}

	s.InsertInsight(ctx, &model.AIInsight{EntryID: e.ID, UserID: "u1", Persona: model.PersonaNova, Text: "t", AIGenerated: true, ThreadID: e.ThreadID})
	ok, err = s.HasInsight(ctx, e.ID, model.PersonaNova)
	if err != nil || !ok {
		t.Fatalf("expected insight, got ok=%v err=%v", ok, err)
	}
}

func TestRecordResponseDailyRollover(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	at := time.Now()
	if err := s.RecordResponse(ctx, "u1", at, "2026-08-28"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordResponse(ctx, "u1", at, "2026-08-28"); err != nil {
		t.Fatalf("record: %v", err)
	}

	p, err := s.Profile(ctx, "u1", "2026-08-28")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.DailyResponses != 2 {
		t.Errorf("expected 2 daily responses, got %d", p.DailyResponses)
	}

	// A new day restarts the counter rather than adding to it.
	if err := s.RecordResponse(ctx, "u1", at, "2026-08-29"); err != nil {
		t.Fatalf("record next day: %v", err)
	}
	p, _ = s.Profile(ctx, "u1", "2026-08-29")
	if p.DailyResponses != 1 {
		t.Errorf("expected counter restart to 1, got %d", p.DailyResponses)
	}
}

func TestProfileStaleCounterReadsZero(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.RecordResponse(ctx, "u1", time.Now(), "2026-08-27")
	p, err := s.Profile(ctx, "u1", "2026-08-29")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.DailyResponses != 0 {
		t.Errorf("stale counter date must read as zero, got %d", p.DailyResponses)
	}
	if p.CounterDate != "2026-08-29" {
		t.Errorf("expected normalized counter date, got %q", p.CounterDate)
	}
}

func TestProfileMissingIsConservative(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.Profile(ctx, "ghost", "2026-08-29")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Tier != model.TierFree || p.Level != model.LevelLow {
		t.Errorf("missing profile must degrade to free/low, got %s/%s", p.Tier, p.Level)
	}
}

func TestProfileUnknownTierDegrades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Write a malformed row directly; the read must not fail the cycle.
	if _, err := s.db.Exec(`INSERT INTO engagement_profiles (user_id, tier, interaction_level) VALUES ('u1', 'platinum', 'max')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := s.Profile(ctx, "u1", "2026-08-29")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Tier != model.TierFree || p.Level != model.LevelLow {
		t.Errorf("unknown tier/level must degrade to free/low, got %s/%s", p.Tier, p.Level)
	}
}

func TestEntryOrdinalCountsUserDay(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	dayStart := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		e := &model.JournalEntry{UserID: "u1", Content: "entry", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	// Another user's entry must not count.
	s.CreateEntry(ctx, &model.JournalEntry{UserID: "u2", Content: "other", CreatedAt: base})

	n, err := s.EntryOrdinal(ctx, "u1", dayStart, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ordinal: %v", err)
	}
	if n != 2 {
		t.Errorf("expected ordinal 2, got %d", n)
	}

	n, _ = s.EntryOrdinal(ctx, "u1", dayStart, base.Add(3*time.Hour))
	if n != 3 {
		t.Errorf("expected ordinal 3, got %d", n)
	}
}

func TestEntriesBetweenAndActiveUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now()
	s.CreateEntry(ctx, &model.JournalEntry{UserID: "fresh", Content: "new", CreatedAt: now.Add(-5 * time.Minute)})
	s.CreateEntry(ctx, &model.JournalEntry{UserID: "old", Content: "ancient", CreatedAt: now.Add(-72 * time.Hour)})

	entries, err := s.EntriesBetween(ctx, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "fresh" {
		t.Fatalf("expected only the fresh entry, got %+v", entries)
	}

	active, err := s.ActiveUserIDs(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if !active["fresh"] || active["old"] {
		t.Errorf("expected fresh active and old inactive, got %v", active)
	}
}

func TestEntriesBetweenSubSecondBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sec := time.Now().UTC().Truncate(time.Second)
	onSecond := &model.JournalEntry{UserID: "u1", Content: "on the second", CreatedAt: sec}
	inSecond := &model.JournalEntry{UserID: "u1", Content: "half past the second", CreatedAt: sec.Add(500 * time.Millisecond)}
	for _, e := range []*model.JournalEntry{onSecond, inSecond} {
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// A window ending exactly on the second must not pull in the fractional
	// timestamp from the same second.
	got, err := s.EntriesBetween(ctx, sec.Add(-time.Second), sec)
	if err != nil {
		t.Fatalf("entries between: %v", err)
	}
	if len(got) != 1 || got[0].ID != onSecond.ID {
		t.Fatalf("expected only the whole-second entry, got %d", len(got))
	}

	got, err = s.EntriesBetween(ctx, sec, sec.Add(time.Second))
	if err != nil {
		t.Fatalf("entries between: %v", err)
	}
	if len(got) != 1 || got[0].ID != inSecond.ID {
		t.Fatalf("expected only the fractional entry, got %d", len(got))
	}
}
