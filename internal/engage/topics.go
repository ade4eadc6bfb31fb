package engage

import (
	"sort"
	"strings"

	"kindred/internal/model"
)

// Topic categories attached to journal entries. Affinity tables key on these.
const (
	TopicWorkStress    = "work-stress"
	TopicMotivation    = "motivation"
	TopicPlanning      = "planning"
	TopicAnxiety       = "anxiety"
	TopicGratitude     = "gratitude"
	TopicSleep         = "sleep"
	TopicRelationships = "relationships"
	TopicMoodLow       = "mood-low"
)

// topicKeywords maps a category to content keywords that signal it. Matching
// is plain lowercase substring search; this is a coarse heuristic, the
// generation prompt still sees the full entry text.
var topicKeywords = map[string][]string{
	TopicWorkStress:    {"work", "deadline", "boss", "meeting", "overtime", "burnout", "job"},
	TopicMotivation:    {"motivat", "goal", "give up", "stuck", "procrastinat", "can't start", "no energy"},
	TopicPlanning:      {"plan", "schedule", "organize", "next week", "roadmap", "priorit", "strategy"},
	TopicAnxiety:       {"anxious", "anxiety", "worried", "panic", "overwhelm", "racing thoughts", "nervous"},
	TopicGratitude:     {"grateful", "thankful", "appreciate", "blessed"},
	TopicSleep:         {"sleep", "insomnia", "tired", "exhausted", "awake all night"},
	TopicRelationships: {"friend", "partner", "family", "lonely", "argument", "relationship"},
}

// ExtractTopics derives topic flags from entry content and from the numeric
// mood/energy/stress signals. Output is sorted for determinism.
func ExtractTopics(e *model.JournalEntry) []string {
	content := strings.ToLower(e.Content)
	flags := make(map[string]bool)

	for topic, words := range topicKeywords {
		for _, w := range words {
			if strings.Contains(content, w) {
				flags[topic] = true
				break
			}
		}
	}

	// Signals are 1..10, 0 means not reported.
	if e.Stress >= 7 {
		flags[TopicAnxiety] = true
	}
	if e.Mood >= 1 && e.Mood <= 3 {
		flags[TopicMoodLow] = true
	}
	if e.Energy >= 1 && e.Energy <= 3 {
		flags[TopicMotivation] = true
	}

	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
