// Package action executes a validated action plan against the check engine.
package action

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/easeaico/project-keeper/internal/check"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

// Fallback bases when the character sheet carries nothing usable.
const (
	DefaultLuck   = 50
	DefaultSanity = 50
)

// Env is everything one execution reads. Nothing in it is written.
type Env struct {
	Catalog   *scenario.Catalog
	Rulebook  check.Rulebook
	Character *types.Character
	// Vitals are the tracked world vitals; sanity checks roll against the current sanity.
	Vitals    *types.Vitals
	Overrides map[string]int
	Random    check.RandomSource
	Locale    language.Tag
}

// CheckResult is one resolved roll.
type CheckResult struct {
	Request types.CheckRequest `json:"request"`
	Label   string             `json:"label"`
	Base    int                `json:"base"`
	DC      types.DCResolution `json:"dc"`
	Outcome types.CheckOutcome `json:"outcome"`
}

// Result is the executor output. DCUpdates holds model-suggested DCs keyed
// by normalised target; the caller decides whether to persist them.
type Result struct {
	Lines     []string       `json:"lines"`
	DCUpdates map[string]int `json:"dcUpdates"`
	Checks    []CheckResult  `json:"checks"`
}

// Execute runs every action of plan in order.
func Execute(plan types.InputAnalysis, env Env) Result {
	if env.Catalog == nil {
		env.Catalog = scenario.Default()
	}
	if env.Random == nil {
		env.Random = check.NewSeededRandom()
	}
	f := newFormatter(env.Locale)

	result := Result{DCUpdates: map[string]int{}}
	for _, a := range planActions(plan) {
		switch act := a.(type) {
		case types.CheckAction:
			cr := env.runCheck(act)
			result.add(cr, f.checkLine(cr))
		case types.AttackAction:
			cr := env.runAttack(act)
			result.add(cr, f.attackLine(cr, act.Target))
		case types.NPCAction:
			result.Lines = append(result.Lines, f.npcLine(act))
		}
	}
	return result
}

func (r *Result) add(cr CheckResult, line string) {
	r.Checks = append(r.Checks, cr)
	r.Lines = append(r.Lines, line)
	if cr.DC.ShouldPersist {
		r.DCUpdates[check.OverrideKey(cr.Request.Target)] = cr.DC.DC
	}
}

// planActions returns the structured actions, or one check synthesised from
// the legacy single-check fields when the plan has none.
func planActions(plan types.InputAnalysis) []types.Action {
	if len(plan.Actions) > 0 || !plan.NeedsCheck {
		return plan.Actions
	}
	kind := plan.CheckType
	if kind == "" {
		kind = kindFromDice(plan.DiceType)
	}
	difficulty := plan.Difficulty
	if difficulty == "" {
		difficulty = types.DifficultyNormal
	}
	if kind == types.KindAttack {
		return []types.Action{types.AttackAction{
			Target:     plan.CheckTarget,
			DC:         plan.DC,
			Difficulty: difficulty,
			Reason:     plan.CheckReason,
		}}
	}
	return []types.Action{types.CheckAction{
		Kind:       kind,
		Target:     plan.CheckTarget,
		DC:         plan.DC,
		Difficulty: difficulty,
		Reason:     plan.CheckReason,
	}}
}

func kindFromDice(d types.DiceType) types.CheckKind {
	switch d {
	case types.DiceAttribute:
		return types.KindAttribute
	case types.DiceLuck:
		return types.KindLuck
	case types.DiceSanity:
		return types.KindSanity
	case types.DiceAttack:
		return types.KindAttack
	default:
		return types.KindSkill
	}
}

func (env Env) runCheck(act types.CheckAction) CheckResult {
	var ref scenario.TargetRef
	var base int
	switch act.Kind {
	case types.KindLuck:
		ref = scenario.TargetRef{Kind: types.KindLuck, ID: "luck", Found: true}
		base = env.luckValue()
	case types.KindSanity:
		ref = scenario.TargetRef{Kind: types.KindSanity, ID: "sanity", Found: true}
		base = env.sanityValue()
	default:
		kind := act.Kind
		if kind == "" {
			kind = types.KindSkill
		}
		ref = env.Catalog.ResolveTarget(kind, act.Target)
		base = env.targetValue(ref, act.Target)
	}
	return env.roll(ref, base, act.DC, act.Difficulty, act.Reason)
}

func (env Env) runAttack(act types.AttackAction) CheckResult {
	skill := strings.TrimSpace(act.Skill)
	if skill == "" {
		skill = env.Catalog.AttackSkill()
	}
	if skill == "" {
		skill = string(types.KindAttack)
	}
	ref := env.Catalog.ResolveTarget(types.KindAttack, skill)
	base := env.targetValue(ref, skill)
	cr := env.roll(ref, base, act.DC, act.Difficulty, act.Reason)
	cr.Request.Kind = types.KindAttack
	return cr
}

func (env Env) roll(ref scenario.TargetRef, base, modelDC int, difficulty types.Difficulty, reason string) CheckResult {
	if _, ok := types.ParseDifficulty(string(difficulty)); !ok {
		difficulty = types.DifficultyNormal
	}
	dc := check.ResolveDC(ref.ID, modelDC, env.Catalog.DCRules(), env.Rulebook, env.Overrides)
	outcome := check.Resolve(dc.DC, base, difficulty, env.Random)
	return CheckResult{
		Request: types.CheckRequest{
			Kind:       ref.Kind,
			Target:     ref.ID,
			DC:         modelDC,
			Difficulty: difficulty,
			Reason:     reason,
		},
		Label:   ref.Label,
		Base:    base,
		DC:      dc,
		Outcome: outcome,
	}
}
