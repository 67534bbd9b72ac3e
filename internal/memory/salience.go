package memory

import (
	"unicode/utf8"

	"github.com/easeaico/project-keeper/internal/types"
)

// ComputeSalience scores an archived round in [0,1] from its summary and the
// state changes extracted alongside it.
func ComputeSalience(summary types.RoundSummary, d types.WorldStateDelta) float64 {
	score := 0.0

	if summary.Summary != "" {
		score += 0.10
	}

	npcs := len(d.NPCs)
	if npcs > 3 {
		npcs = 3
	}
	score += float64(npcs) * 0.08

	for _, th := range d.Threads {
		switch th.Status {
		case types.ThreadResolved:
			score += 0.15
		case types.ThreadBlocked:
			score += 0.10
		default:
			score += 0.05
		}
	}

	if len(d.Flags) > 0 {
		score += 0.10
	}
	if !d.Allies.Empty() {
		score += 0.10
	}
	if !d.Inventory.Empty() {
		score += 0.05
	}
	if len(d.DMNotes) > 0 {
		score += 0.05
	}
	if d.Vitals != nil {
		score += 0.10
	}

	n := utf8.RuneCountInString(summary.Summary)
	if n >= 120 {
		score += 0.10
	} else if n >= 60 {
		score += 0.05
	}

	return clampScore(score)
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
