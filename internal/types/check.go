package types

import "strings"

// DC bounds. DefaultDC leaves the threshold to the character's value alone.
const (
	MinDC     = 1
	MaxDC     = 100
	DefaultDC = 100
)

// CheckKind names what a check rolls against.
type CheckKind string

const (
	KindAttribute CheckKind = "attribute"
	KindSkill     CheckKind = "skill"
	KindLuck      CheckKind = "luck"
	KindSanity    CheckKind = "sanity"
	KindAttack    CheckKind = "attack"
)

// ParseCheckKind accepts the closed set of kinds, case-insensitively.
func ParseCheckKind(s string) (CheckKind, bool) {
	switch k := CheckKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAttribute, KindSkill, KindLuck, KindSanity, KindAttack:
		return k, true
	default:
		return "", false
	}
}

// Difficulty is the tier applied to the base value before the DC clamp.
type Difficulty string

const (
	DifficultyNormal  Difficulty = "normal"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// ParseDifficulty returns DifficultyNormal for anything outside the closed set.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyNormal, DifficultyHard, DifficultyExtreme:
		return d, true
	default:
		return DifficultyNormal, false
	}
}

// Label returns the Chinese label shown in result lines.
func (d Difficulty) Label() string {
	switch d {
	case DifficultyHard:
		return "困难"
	case DifficultyExtreme:
		return "极难"
	default:
		return "普通"
	}
}

// Outcome grades a roll. Success is decided only by roll <= threshold.
type Outcome int

const (
	OutcomeUnspecified Outcome = iota
	OutcomeCriticalSuccess
	OutcomeSuccess
	OutcomeFailure
	OutcomeFumble
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCriticalSuccess:
		return "Critical success"
	case OutcomeSuccess:
		return "Success"
	case OutcomeFailure:
		return "Failure"
	case OutcomeFumble:
		return "Fumble"
	default:
		return "Unspecified"
	}
}

// Label returns the Chinese outcome label.
func (o Outcome) Label() string {
	switch o {
	case OutcomeCriticalSuccess:
		return "大成功"
	case OutcomeSuccess:
		return "成功"
	case OutcomeFailure:
		return "失败"
	case OutcomeFumble:
		return "大失败"
	default:
		return "未知"
	}
}

// CheckRequest is one resolved action. DC 0 means none was requested.
type CheckRequest struct {
	Kind       CheckKind  `json:"kind"`
	Target     string     `json:"target"`
	DC         int        `json:"dc,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
	Reason     string     `json:"reason,omitempty"`
}

// CheckOutcome is the reproducible result of one roll.
type CheckOutcome struct {
	Roll            int        `json:"roll"`
	Threshold       int        `json:"threshold"`
	Success         bool       `json:"success"`
	Outcome         Outcome    `json:"-"`
	OutcomeLabel    string     `json:"outcome"`
	Difficulty      Difficulty `json:"difficulty"`
	DifficultyLabel string     `json:"difficultyLabel"`
}

// DCSource names where a resolved DC came from.
type DCSource string

const (
	DCSourceScriptOverride   DCSource = "script-override"
	DCSourceScriptDefault    DCSource = "script-default"
	DCSourceRulebookOverride DCSource = "rulebook-override"
	DCSourceSessionOverride  DCSource = "session-override"
	DCSourceModelSuggested   DCSource = "model-suggested"
	DCSourceEngineDefault    DCSource = "engine-default"
)

// DCResolution is the winner of the DC precedence chain.
type DCResolution struct {
	DC            int      `json:"dc"`
	Source        DCSource `json:"source"`
	ShouldPersist bool     `json:"shouldPersist"`
}
