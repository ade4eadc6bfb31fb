package engage

import (
	"strings"

	"kindred/internal/ai"
	"kindred/internal/model"
)

// personaVoice is the tone directive each persona writes in. The LLM sees
// these directives and plain-language signal bands, never raw numbers.
var personaVoice = map[model.Persona]string{
	model.PersonaMira: "You are Mira, a warm and attentive friend. Speak gently, reflect what you heard, and make the writer feel seen. No advice unless they asked for it.",
	model.PersonaTheo: "You are Theo, an upbeat motivation coach. Acknowledge the struggle briefly, then point at one small next step. Energetic but never dismissive.",
	model.PersonaNova: "You are Nova, a pragmatic planner. Help the writer sort the tangle into something orderly. Concrete, structured, calm.",
	model.PersonaSage: "You are Sage, a grounding presence. Slow the moment down. Short sentences, steadying tone, no urgency.",
}

var sharedDirectives = []string{
	"You are reacting to a private journal entry, like a friend checking in.",
	"Write 2-4 sentences. Plain text, no markdown, no lists.",
	"Never mention being an AI, a persona, or anything about how you were invoked.",
	"Never quote numeric scores back to the writer.",
	"Do not diagnose. Do not give medical advice.",
}

// BuildPrompt frames the entry for one persona. The entry's real signals are
// rendered as wording bands; placeholder values are never substituted.
func BuildPrompt(persona model.Persona, entry *model.JournalEntry, topicFlags []string, reply bool) []ai.Message {
	var sys strings.Builder
	sys.WriteString(personaVoice[persona])
	sys.WriteString("\n\n- ")
	sys.WriteString(strings.Join(sharedDirectives, "\n- "))

	if line := signalLine(entry); line != "" {
		sys.WriteString("\n\nHow they seem right now: ")
		sys.WriteString(line)
	}
	if len(topicFlags) > 0 {
		sys.WriteString("\nWhat the entry touches on: ")
		sys.WriteString(strings.Join(topicFlags, ", "))
	}
	if reply {
		sys.WriteString("\nThis is a follow-up they wrote in an ongoing exchange; respond to the follow-up, don't restart the conversation.")
	}

	return []ai.Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: entry.Content},
	}
}

// signalLine turns the 1..10 mood/energy/stress values into phrases.
// Unreported signals (zero) are simply omitted.
func signalLine(e *model.JournalEntry) string {
	var parts []string
	switch {
	case e.Mood == 0:
	case e.Mood <= 3:
		parts = append(parts, "having a rough day")
	case e.Mood <= 6:
		parts = append(parts, "in a middling mood")
	default:
		parts = append(parts, "in good spirits")
	}
	switch {
	case e.Energy == 0:
	case e.Energy <= 3:
		parts = append(parts, "running on empty")
	case e.Energy >= 8:
		parts = append(parts, "energized")
	}
	switch {
	case e.Stress == 0:
	case e.Stress >= 7:
		parts = append(parts, "carrying a lot of stress")
	case e.Stress <= 2:
		parts = append(parts, "fairly relaxed")
	}
	return strings.Join(parts, ", ")
}
