// Package store provides SQLite-backed persistence for journal entries,
// AI insights and engagement profiles.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"kindred/internal/model"
)

// ErrDuplicateInsight is returned when an insert hits the per-(entry, persona)
// uniqueness index. Callers treat it as a benign race, not a failure.
var ErrDuplicateInsight = errors.New("insight already exists for entry/persona")

// timeFormat is RFC3339 with fixed-width nanoseconds. Timestamps live in TEXT
// columns and every window predicate compares them lexicographically, so the
// fractional part must not vary in length the way RFC3339Nano trims it.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// Store is the SQLite implementation of the journal, insight and profile
// collaborator surfaces.
type Store struct {
	db      *sql.DB
	entropy *rand.Rand
}

// New opens or creates the database at dbPath.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL,
		mood       INTEGER NOT NULL DEFAULT 0,
		energy     INTEGER NOT NULL DEFAULT 0,
		stress     INTEGER NOT NULL DEFAULT 0,
		thread_id  TEXT NOT NULL,
		ai_author  TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_user_created ON journal_entries(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_created ON journal_entries(created_at DESC);

	CREATE TABLE IF NOT EXISTS ai_insights (
		id           TEXT PRIMARY KEY,
		entry_id     TEXT NOT NULL REFERENCES journal_entries(id),
		user_id      TEXT NOT NULL,
		persona      TEXT NOT NULL,
		text         TEXT NOT NULL,
		topic_flags  TEXT,
		confidence   REAL NOT NULL DEFAULT 0,
		ai_generated INTEGER NOT NULL DEFAULT 1,
		thread_id    TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_insights_entry_persona
		ON ai_insights(entry_id, persona) WHERE ai_generated = 1;
	CREATE INDEX IF NOT EXISTS idx_insights_user_created ON ai_insights(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS engagement_profiles (
		user_id           TEXT PRIMARY KEY,
		tier              TEXT NOT NULL DEFAULT 'free',
		interaction_level TEXT NOT NULL DEFAULT 'normal',
		counter_date      TEXT NOT NULL DEFAULT '',
		daily_responses   INTEGER NOT NULL DEFAULT 0,
		last_response_at  TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateEntry inserts a journal entry. An empty ID gets a fresh ULID and an
// empty thread id inherits the entry's own id (a new entry starts its thread).
func (s *Store) CreateEntry(ctx context.Context, e *model.JournalEntry) error {
	if e.UserID == "" {
		return fmt.Errorf("create entry: user id is empty")
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.ThreadID == "" {
		e.ThreadID = e.ID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, content, mood, energy, stress, thread_id, ai_author, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Content, e.Mood, e.Energy, e.Stress, e.ThreadID, string(e.AIAuthor),
		formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// EntriesBetween returns entries created in (from, to], newest first.
func (s *Store) EntriesBetween(ctx context.Context, from, to time.Time) ([]model.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, mood, energy, stress, thread_id, ai_author, created_at
		FROM journal_entries
		WHERE created_at > ? AND created_at <= ?
		ORDER BY created_at DESC`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("entries between: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntryByID returns one entry or sql.ErrNoRows.
func (s *Store) EntryByID(ctx context.Context, id string) (*model.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, mood, energy, stress, thread_id, ai_author, created_at
		FROM journal_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ActiveUserIDs returns ids of users who posted a (non-AI) entry since the
// given time. This is the "friends check in on active users" filter.
func (s *Store) ActiveUserIDs(ctx context.Context, since time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM journal_entries
		WHERE created_at > ? AND ai_author = ''`,
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// EntryOrdinal returns the 1-based position of the entry among the user's
// entries of the same local day (AI-authored thread replies do not count).
func (s *Store) EntryOrdinal(ctx context.Context, userID string, dayStart, asOf time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM journal_entries
		WHERE user_id = ? AND ai_author = '' AND created_at >= ? AND created_at <= ?`,
		userID, formatTime(dayStart), formatTime(asOf)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("entry ordinal: %w", err)
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

// HasInsight reports whether an AI-generated insight exists for the pair.
func (s *Store) HasInsight(ctx context.Context, entryID string, persona model.Persona) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_insights
		WHERE entry_id = ? AND persona = ? AND ai_generated = 1`,
		entryID, string(persona)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has insight: %w", err)
	}
	return n > 0, nil
}

// InsightPersonas returns the personas that already answered the entry.
func (s *Store) InsightPersonas(ctx context.Context, entryID string) ([]model.Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persona FROM ai_insights WHERE entry_id = ? AND ai_generated = 1`, entryID)
	if err != nil {
		return nil, fmt.Errorf("insight personas: %w", err)
	}
	defer rows.Close()
	var out []model.Persona
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, model.Persona(p))
	}
	return out, rows.Err()
}

// InsertInsight writes an insight. Returns ErrDuplicateInsight if another
// path already produced the canonical response for this (entry, persona).
func (s *Store) InsertInsight(ctx context.Context, ins *model.AIInsight) error {
	if ins.ID == "" {
		ins.ID = s.newID()
	}
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_insights (id, entry_id, user_id, persona, text, topic_flags, confidence, ai_generated, thread_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ins.ID, ins.EntryID, ins.UserID, string(ins.Persona), ins.Text,
		strings.Join(ins.TopicFlags, ","), ins.Confidence, boolToInt(ins.AIGenerated),
		ins.ThreadID, formatTime(ins.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateInsight
		}
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// InsightsSince counts AI-generated insights written after t (analytics).
func (s *Store) InsightsSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_insights WHERE ai_generated = 1 AND created_at > ?`,
		formatTime(t)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("insights since: %w", err)
	}
	return n, nil
}

// Profile returns the user's engagement profile. A missing row or a stale
// counter date yields zeroed daily counters; unknown tier/level strings
// degrade to the most conservative values on parse.
func (s *Store) Profile(ctx context.Context, userID string, today string) (*model.EngagementProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tier, interaction_level, counter_date, daily_responses, last_response_at
		FROM engagement_profiles WHERE user_id = ?`, userID)

	var tier, level, counterDate, lastAt string
	var daily int
	err := row.Scan(&tier, &level, &counterDate, &daily, &lastAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.EngagementProfile{UserID: userID, Tier: model.TierFree, Level: model.LevelLow, CounterDate: today}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	p := &model.EngagementProfile{
		UserID:         userID,
		Tier:           model.ParseTier(tier),
		Level:          model.ParseLevel(level),
		CounterDate:    counterDate,
		DailyResponses: daily,
	}
	if counterDate != today {
		p.CounterDate = today
		p.DailyResponses = 0
	}
	if lastAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, lastAt); err == nil {
			p.LastResponseAt = t
		}
	}
	return p, nil
}

// SetProfile upserts the user's tier and interaction level (counters untouched).
func (s *Store) SetProfile(ctx context.Context, userID string, tier model.Tier, level model.InteractionLevel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engagement_profiles (user_id, tier, interaction_level)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET tier = excluded.tier, interaction_level = excluded.interaction_level`,
		userID, string(tier), string(level))
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

// RecordResponse atomically increments the user's daily counter (or restarts
// it when the stored counter date is not today) and stamps the last response
// time. Increment-or-initialize in one statement so overlapping cycles never
// lose an update.
func (s *Store) RecordResponse(ctx context.Context, userID string, at time.Time, today string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engagement_profiles (user_id, counter_date, daily_responses, last_response_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_responses = CASE WHEN engagement_profiles.counter_date = excluded.counter_date
				THEN engagement_profiles.daily_responses + 1 ELSE 1 END,
			counter_date = excluded.counter_date,
			last_response_at = excluded.last_response_at`,
		userID, today, formatTime(at))
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*model.JournalEntry, error) {
	var e model.JournalEntry
	var aiAuthor, created string
	if err := r.Scan(&e.ID, &e.UserID, &e.Content, &e.Mood, &e.Energy, &e.Stress, &e.ThreadID, &aiAuthor, &created); err != nil {
		return nil, err
	}
	e.AIAuthor = model.Persona(aiAuthor)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = t
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]model.JournalEntry, error) {
	var out []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
