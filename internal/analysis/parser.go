// Package analysis turns the analysis model's reply into a validated action plan.
package analysis

import (
	"log/slog"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

// Reasons shown to the player when the input is not acted upon.
const (
	InvalidReason  = "无法理解这次输入，请换一种说法描述你的行动。"
	RejectedReason = "这个行动目前无法执行，请尝试其他做法。"
)

// Invalid is the fail-closed analysis used whenever the reply cannot be read.
func Invalid(rawInput string) types.InputAnalysis {
	return types.InputAnalysis{
		Allowed:    false,
		Reason:     InvalidReason,
		Intent:     types.IntentInvalid,
		DiceType:   types.DiceNone,
		Difficulty: types.DifficultyNormal,
		Actions:    []types.Action{},
		RawInput:   rawInput,
	}
}

// Parse extracts the analysis object from modelText. It never fails: an
// unreadable reply yields Invalid, bad fields fall back to safe values and
// unknown actions are dropped one by one.
func Parse(modelText, rawInput string) types.InputAnalysis {
	obj, ok := utils.ParseObject(modelText)
	if !ok {
		slog.Warn("analysis reply has no json object", "reply", utils.TruncateRunes(modelText, 80))
		return Invalid(rawInput)
	}

	out := types.InputAnalysis{
		Allowed:    true,
		Intent:     parseIntent(obj.Get("intent")),
		DiceType:   parseDiceType(obj.Get("diceType")),
		Difficulty: parseDifficulty(obj.Get("difficulty"), types.DifficultyNormal),
		Reason:     utils.LooseString(obj.Get("reason")),
		Actions:    []types.Action{},
		RawInput:   rawInput,
	}
	if allowed, ok := utils.LooseBool(obj.Get("allowed")); ok {
		out.Allowed = allowed
	}
	if !out.Allowed && out.Reason == "" {
		out.Reason = RejectedReason
	}

	if actions := obj.Get("actions"); actions.IsArray() {
		for i, item := range actions.Array() {
			action, ok := parseAction(item, out.Difficulty)
			if !ok {
				slog.Warn("dropping invalid action", "index", i, "raw", utils.TruncateRunes(item.Raw, 120))
				continue
			}
			out.Actions = append(out.Actions, action)
		}
	}

	if needs, ok := utils.LooseBool(obj.Get("needsCheck")); ok {
		out.NeedsCheck = needs
	}
	if kind, ok := types.ParseCheckKind(utils.LooseString(obj.Get("checkType"))); ok {
		out.CheckType = kind
	}
	out.CheckTarget = utils.LooseString(obj.Get("checkTarget"))
	out.DC = parseDC(obj.Get("dc"))
	out.CheckReason = utils.LooseString(obj.Get("checkReason"))

	return out
}

func parseAction(item gjson.Result, fallback types.Difficulty) (types.Action, bool) {
	if !item.IsObject() {
		return nil, false
	}
	target := firstString(item, "target", "checkTarget", "name")
	reason := utils.LooseString(item.Get("reason"))
	difficulty := parseDifficulty(item.Get("difficulty"), fallback)

	switch types.ActionType(strings.ToLower(utils.LooseString(item.Get("type")))) {
	case types.ActionCheck:
		kind, ok := types.ParseCheckKind(firstString(item, "checkType", "kind"))
		if !ok {
			kind = types.KindSkill
		}
		if kind == types.KindAttack {
			return types.AttackAction{
				Target:     target,
				Skill:      utils.LooseString(item.Get("skill")),
				DC:         parseDC(item.Get("dc")),
				Difficulty: difficulty,
				Reason:     reason,
			}, true
		}
		if target == "" && (kind == types.KindSkill || kind == types.KindAttribute) {
			return nil, false
		}
		return types.CheckAction{
			Kind:       kind,
			Target:     target,
			DC:         parseDC(item.Get("dc")),
			Difficulty: difficulty,
			Reason:     reason,
		}, true
	case types.ActionAttack:
		return types.AttackAction{
			Target:     target,
			Skill:      utils.LooseString(item.Get("skill")),
			DC:         parseDC(item.Get("dc")),
			Difficulty: difficulty,
			Reason:     reason,
		}, true
	case types.ActionNPC:
		if target == "" {
			return nil, false
		}
		return types.NPCAction{
			Target: target,
			Intent: firstString(item, "intent", "action"),
			Reason: reason,
		}, true
	default:
		return nil, false
	}
}

// parseDC returns 0 when the field is absent and DefaultDC when it is
// present but not a number rounding into [1,100].
func parseDC(r gjson.Result) int {
	if !r.Exists() || r.Type == gjson.Null {
		return 0
	}
	f, ok := utils.LooseNumber(r)
	if !ok {
		return types.DefaultDC
	}
	rounded := math.Round(f)
	if rounded < types.MinDC || rounded > types.MaxDC {
		return types.DefaultDC
	}
	return int(rounded)
}

func parseIntent(r gjson.Result) types.Intent {
	switch i := types.Intent(strings.ToLower(utils.LooseString(r))); i {
	case types.IntentAction, types.IntentDialogue, types.IntentExplore, types.IntentCombat,
		types.IntentInvestigate, types.IntentRest, types.IntentOther, types.IntentInvalid:
		return i
	default:
		return types.IntentOther
	}
}

func parseDiceType(r gjson.Result) types.DiceType {
	switch d := types.DiceType(strings.ToLower(utils.LooseString(r))); d {
	case types.DiceNone, types.DiceAttribute, types.DiceSkill, types.DiceLuck, types.DiceSanity, types.DiceAttack:
		return d
	default:
		return types.DiceNone
	}
}

func parseDifficulty(r gjson.Result, fallback types.Difficulty) types.Difficulty {
	if d, ok := types.ParseDifficulty(utils.LooseString(r)); ok {
		return d
	}
	return fallback
}

func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if s := utils.LooseString(item.Get(key)); s != "" {
			return s
		}
	}
	return ""
}
