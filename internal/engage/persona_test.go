package engage

import (
	"reflect"
	"testing"

	"kindred/internal/model"
)

func TestValidateAffinities(t *testing.T) {
	if err := ValidateAffinities(); err != nil {
		t.Fatalf("affinity table invalid: %v", err)
	}
}

func TestSelectPersonasMotivationAndPlanning(t *testing.T) {
	flags := []string{TopicMotivation, TopicPlanning}
	got := SelectPersonas(flags, model.AllPersonas())

	if len(got) != 4 {
		t.Fatalf("expected 4 personas, got %d", len(got))
	}
	// Theo (motivation 0.9 + planning 0) and Nova (planning 0.9 + motivation
	// 0.4) must outrank the warm generalist and the grounding persona.
	top := map[model.Persona]bool{got[0]: true, got[1]: true}
	if !top[model.PersonaTheo] || !top[model.PersonaNova] {
		t.Errorf("motivation+planning should rank theo and nova first, got %v", got)
	}
	if got[0] != model.PersonaNova {
		t.Errorf("nova scores highest (0.9+0.4), got %v first", got[0])
	}
}

func TestSelectPersonasAnxietyRanksSageFirst(t *testing.T) {
	got := SelectPersonas([]string{TopicAnxiety}, model.AllPersonas())
	if got[0] != model.PersonaSage {
		t.Errorf("anxiety entries should lead with sage, got %v", got[0])
	}
}

func TestSelectPersonasNoFlagsDefaultFirst(t *testing.T) {
	got := SelectPersonas(nil, model.AllPersonas())
	if got[0] != model.DefaultPersona {
		t.Errorf("no flags: default persona must rank first, got %v", got[0])
	}
}

func TestSelectPersonasDeterministic(t *testing.T) {
	flags := []string{TopicWorkStress}
	a := SelectPersonas(flags, model.AllPersonas())
	b := SelectPersonas(flags, model.AllPersonas())
	if !reflect.DeepEqual(a, b) {
		t.Errorf("selection must be deterministic: %v vs %v", a, b)
	}
}

func TestSelectPersonasRespectsEligibility(t *testing.T) {
	eligible := []model.Persona{model.PersonaSage}
	got := SelectPersonas([]string{TopicMotivation}, eligible)
	if len(got) != 1 || got[0] != model.PersonaSage {
		t.Errorf("only eligible personas may appear, got %v", got)
	}
}

func TestSelectPersonasTieBreakIsPriorityOrder(t *testing.T) {
	// Gratitude only weighs for mira; the three zero-score personas must
	// keep the fixed priority order behind her.
	got := SelectPersonas([]string{TopicGratitude}, model.AllPersonas())
	want := []model.Persona{model.PersonaMira, model.PersonaTheo, model.PersonaNova, model.PersonaSage}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie-break order wrong: got %v want %v", got, want)
	}
}
