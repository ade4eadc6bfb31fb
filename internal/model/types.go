package model

import "time"

// Tier is a user's subscription tier. Unknown values parse to TierFree.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierBeta    Tier = "beta"
)

// ParseTier degrades unknown input to the most conservative tier.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPremium, TierBeta:
		return Tier(s)
	default:
		return TierFree
	}
}

// MultiPersona reports whether this tier rolls every persona independently.
// Free users only ever hear from the default persona.
func (t Tier) MultiPersona() bool {
	return t == TierPremium || t == TierBeta
}

// InteractionLevel is the user's "how chatty should the AI friends be" setting.
type InteractionLevel string

const (
	LevelLow    InteractionLevel = "low"
	LevelNormal InteractionLevel = "normal"
	LevelHigh   InteractionLevel = "high"
)

// ParseLevel degrades unknown input to LevelLow.
func ParseLevel(s string) InteractionLevel {
	switch InteractionLevel(s) {
	case LevelNormal, LevelHigh:
		return InteractionLevel(s)
	default:
		return LevelLow
	}
}

// Persona identifies one of the fixed AI companions.
type Persona string

const (
	PersonaMira Persona = "mira" // warm generalist, the default companion
	PersonaTheo Persona = "theo" // motivation coach
	PersonaNova Persona = "nova" // planner / strategist
	PersonaSage Persona = "sage" // calm grounding
)

// DefaultPersona is ranked first when an entry has no topic flags and is the
// only persona rolled for non-premium tiers.
const DefaultPersona = PersonaMira

// AllPersonas in fixed priority order (used for tie-breaking).
func AllPersonas() []Persona {
	return []Persona{PersonaMira, PersonaTheo, PersonaNova, PersonaSage}
}

// ValidPersona reports whether p is one of the closed persona set.
func ValidPersona(p Persona) bool {
	switch p {
	case PersonaMira, PersonaTheo, PersonaNova, PersonaSage:
		return true
	}
	return false
}

// JournalEntry is a user's journal post. Read-only to the scheduler core.
// Mood, Energy and Stress are 1..10 self-reported signals (0 = not set).
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
	Stress    int       `json:"stress"`
	ThreadID  string    `json:"thread_id,omitempty"`
	AIAuthor  Persona   `json:"ai_author,omitempty"` // set when the "entry" is itself an AI reply in a thread
	CreatedAt time.Time `json:"created_at"`
}

// IsAIGenerated reports whether the entry was produced by a persona.
// The guard hard-rejects candidates targeting such entries.
func (e *JournalEntry) IsAIGenerated() bool {
	return e.AIAuthor != ""
}

// AIInsight is one persona response to a journal entry. Append-only; for a
// given (entry, persona) pair at most one AI-generated insight may exist.
type AIInsight struct {
	ID          string    `json:"id"`
	EntryID     string    `json:"entry_id"`
	UserID      string    `json:"user_id"`
	Persona     Persona   `json:"persona"`
	Text        string    `json:"text"`
	TopicFlags  []string  `json:"topic_flags,omitempty"`
	Confidence  float64   `json:"confidence"`
	AIGenerated bool      `json:"ai_generated"`
	ThreadID    string    `json:"thread_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// EngagementProfile tracks per-user tier, interaction setting and the rolling
// daily response counter. CounterDate is a local YYYY-MM-DD; a date before
// today means the counters read as zero.
type EngagementProfile struct {
	UserID         string           `json:"user_id"`
	Tier           Tier             `json:"tier"`
	Level          InteractionLevel `json:"interaction_level"`
	CounterDate    string           `json:"counter_date"`
	DailyResponses int              `json:"daily_responses"`
	LastResponseAt time.Time        `json:"last_response_at"`
}

// CycleKind names one of the controller cadences.
type CycleKind string

const (
	CycleImmediate CycleKind = "immediate"
	CycleMain      CycleKind = "main"
	CycleAnalytics CycleKind = "analytics"
	CycleManual    CycleKind = "manual"
)

// CycleRecord is the observability artifact produced once per controller
// cycle. Executed and Errors keep counting after EndedAt while delayed
// dispatches finish.
type CycleRecord struct {
	Kind            CycleKind `json:"kind"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	CandidatesFound int       `json:"candidates_found"`
	Executed        int       `json:"executed"`
	Errors          int       `json:"errors"`
	Partial         bool      `json:"partial,omitempty"` // cycle timed out before finishing
}
