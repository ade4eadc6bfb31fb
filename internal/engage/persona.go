package engage

import (
	"fmt"
	"sort"

	"kindred/internal/model"
)

// personaAffinity is the static weight table: persona × topic category.
// Weights are 0..1; a missing topic means zero affinity. Validated at startup
// by ValidateAffinities.
var personaAffinity = map[model.Persona]map[string]float64{
	model.PersonaMira: {
		TopicRelationships: 0.8,
		TopicGratitude:     0.7,
		TopicMoodLow:       0.6,
		TopicWorkStress:    0.4,
	},
	model.PersonaTheo: {
		TopicMotivation: 0.9,
		TopicWorkStress: 0.5,
		TopicMoodLow:    0.4,
	},
	model.PersonaNova: {
		TopicPlanning:   0.9,
		TopicMotivation: 0.4,
		TopicWorkStress: 0.3,
	},
	model.PersonaSage: {
		TopicAnxiety:    0.9,
		TopicSleep:      0.7,
		TopicWorkStress: 0.5,
	},
}

// ValidateAffinities checks the table covers exactly the closed persona set
// with sane weights. Called once from the controller constructor.
func ValidateAffinities() error {
	for _, p := range model.AllPersonas() {
		weights, ok := personaAffinity[p]
		if !ok {
			return fmt.Errorf("persona %s has no affinity map", p)
		}
		for topic, w := range weights {
			if w < 0 || w > 1 {
				return fmt.Errorf("persona %s topic %s weight %v out of range", p, topic, w)
			}
		}
	}
	for p := range personaAffinity {
		if !model.ValidPersona(p) {
			return fmt.Errorf("affinity map contains unknown persona %s", p)
		}
	}
	return nil
}

// SelectPersonas orders the eligible personas by summed affinity for the
// entry's topic flags, descending. Ties break by the fixed persona priority
// order. With no flags the default persona ranks first and the rest keep
// priority order. Pure and deterministic.
func SelectPersonas(topicFlags []string, eligible []model.Persona) []model.Persona {
	if len(eligible) == 0 {
		return nil
	}

	priority := make(map[model.Persona]int)
	for i, p := range model.AllPersonas() {
		priority[p] = i
	}

	type scored struct {
		persona model.Persona
		score   float64
	}
	list := make([]scored, 0, len(eligible))
	for _, p := range eligible {
		var sum float64
		for _, f := range topicFlags {
			sum += personaAffinity[p][f]
		}
		if len(topicFlags) == 0 && p == model.DefaultPersona {
			sum = 1 // default persona leads when the entry gives no signal
		}
		list = append(list, scored{persona: p, score: sum})
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return priority[list[i].persona] < priority[list[j].persona]
	})

	out := make([]model.Persona, len(list))
	for i, s := range list {
		out[i] = s.persona
	}
	return out
}
