package action

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/easeaico/project-keeper/internal/check"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

type fixedRoll int

func (f fixedRoll) Intn(n int) int { return int(f) - 1 }

func testCatalog() *scenario.Catalog {
	return &scenario.Catalog{
		Skills: []scenario.Skill{
			{ID: "spot_hidden", Label: "侦查", Base: 25},
			{ID: "listen", Label: "聆听", Base: 20},
			{ID: "fighting_brawl", Label: "格斗", Base: 25},
			{ID: "occult", Label: "神秘学", Base: 5},
		},
		Attributes:         []scenario.AttributeRange{{Key: "STR", Label: "力量"}, {Key: "POW", Label: "意志"}},
		DefaultAttackSkill: "fighting_brawl",
		DC:                 check.Rules{Overrides: map[string]int{"occult": 30}},
	}
}

func testCharacter() *types.Character {
	return &types.Character{
		Attributes: map[string]int{"STR": 65, "POW": 70},
		Skills: map[string]types.SkillValue{
			"spot_hidden":    types.NumericSkill(60),
			"listen":         types.TrainedSkill(true),
			"fighting_brawl": types.TrainedSkill(false),
		},
		Luck: 45,
	}
}

func TestExecuteSkillCheckByLabel(t *testing.T) {
	plan := types.InputAnalysis{Actions: []types.Action{
		types.CheckAction{Kind: types.KindSkill, Target: "侦查", Difficulty: types.DifficultyNormal},
	}}
	res := Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Random: fixedRoll(37)})

	if len(res.Checks) != 1 {
		t.Fatalf("expected one check, got %d", len(res.Checks))
	}
	cr := res.Checks[0]
	if cr.Request.Target != "spot_hidden" || cr.Base != 60 {
		t.Fatalf("unexpected resolution %+v", cr)
	}
	if !cr.Outcome.Success || cr.Outcome.Threshold != 60 {
		t.Fatalf("unexpected outcome %+v", cr.Outcome)
	}
	want := "【技能检定】侦查：掷骰 37 / 阈值 60（基础值 60，普通难度）→ 成功"
	if res.Lines[0] != want {
		t.Fatalf("unexpected line\n got %q\nwant %q", res.Lines[0], want)
	}
	if len(res.DCUpdates) != 0 {
		t.Fatalf("expected no dc updates, got %v", res.DCUpdates)
	}
}

func TestExecuteValueFallbacks(t *testing.T) {
	cases := []struct {
		target string
		want   int
	}{
		{target: "listen", want: scenario.DefaultTrainedValue},
		{target: "fighting_brawl", want: scenario.DefaultUntrainedValue},
		{target: "occult", want: 5},
		{target: "驾驶飞艇", want: scenario.DefaultUntrainedValue},
	}
	for _, tc := range cases {
		plan := types.InputAnalysis{Actions: []types.Action{types.CheckAction{Kind: types.KindSkill, Target: tc.target}}}
		res := Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Random: fixedRoll(50)})
		if got := res.Checks[0].Base; got != tc.want {
			t.Errorf("%s: base = %d, want %d", tc.target, got, tc.want)
		}
	}
}

func TestExecuteCollectsModelDCs(t *testing.T) {
	plan := types.InputAnalysis{Actions: []types.Action{
		types.CheckAction{Kind: types.KindSkill, Target: "listen", DC: 40},
		types.CheckAction{Kind: types.KindSkill, Target: "occult", DC: 80},
		types.CheckAction{Kind: types.KindAttribute, Target: "力量", DC: 55},
	}}
	res := Execute(plan, Env{
		Catalog:   testCatalog(),
		Character: testCharacter(),
		Overrides: map[string]int{"str": 35},
		Random:    fixedRoll(10),
	})

	if res.DCUpdates["listen"] != 40 {
		t.Fatalf("expected listen dc update, got %v", res.DCUpdates)
	}
	if _, ok := res.DCUpdates["occult"]; ok {
		t.Fatalf("scenario override must not be persisted: %v", res.DCUpdates)
	}
	if _, ok := res.DCUpdates["str"]; ok {
		t.Fatalf("session override must not be re-persisted: %v", res.DCUpdates)
	}
	if res.Checks[1].DC.Source != types.DCSourceScriptOverride || res.Checks[1].DC.DC != 30 {
		t.Fatalf("unexpected occult dc %+v", res.Checks[1].DC)
	}
	if res.Checks[2].DC.Source != types.DCSourceSessionOverride || res.Checks[2].Base != 65 {
		t.Fatalf("unexpected attribute check %+v", res.Checks[2])
	}
	if !strings.Contains(res.Lines[0], "DC 40") {
		t.Fatalf("expected dc in line, got %q", res.Lines[0])
	}
}

func TestExecuteAttackAndNPC(t *testing.T) {
	plan := types.InputAnalysis{Actions: []types.Action{
		types.AttackAction{Target: "邪教徒", Difficulty: types.DifficultyHard},
		types.NPCAction{Target: "Mary", Intent: "逃向地下室", Reason: "害怕"},
	}}
	res := Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Random: fixedRoll(5)})

	if len(res.Checks) != 1 || len(res.Lines) != 2 {
		t.Fatalf("expected one roll and two lines, got %d/%d", len(res.Checks), len(res.Lines))
	}
	atk := res.Checks[0]
	if atk.Request.Kind != types.KindAttack || atk.Request.Target != "fighting_brawl" {
		t.Fatalf("unexpected attack request %+v", atk.Request)
	}
	if atk.Outcome.Threshold != scenario.DefaultUntrainedValue/2 {
		t.Fatalf("expected hard threshold, got %d", atk.Outcome.Threshold)
	}
	if !strings.HasPrefix(res.Lines[0], "【攻击】对邪教徒使用格斗") {
		t.Fatalf("unexpected attack line %q", res.Lines[0])
	}
	if res.Lines[1] != "【NPC 行动建议】Mary：逃向地下室（害怕）" {
		t.Fatalf("unexpected npc line %q", res.Lines[1])
	}
}

func TestExecuteLegacySingleCheck(t *testing.T) {
	plan := types.InputAnalysis{
		NeedsCheck:  true,
		CheckType:   types.KindLuck,
		Difficulty:  types.DifficultyNormal,
		CheckReason: "找到出口",
	}
	res := Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Random: fixedRoll(44)})
	if len(res.Checks) != 1 {
		t.Fatalf("expected exactly one synthesised check, got %d", len(res.Checks))
	}
	if res.Checks[0].Base != 45 || !res.Checks[0].Outcome.Success {
		t.Fatalf("unexpected luck check %+v", res.Checks[0])
	}

	plan.Actions = []types.Action{types.NPCAction{Target: "Mary", Intent: "沉默"}}
	res = Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Random: fixedRoll(44)})
	if len(res.Checks) != 0 {
		t.Fatalf("legacy flag must be ignored when actions exist")
	}
}

func TestExecuteSanityUsesVitals(t *testing.T) {
	plan := types.InputAnalysis{Actions: []types.Action{types.CheckAction{Kind: types.KindSanity}}}
	vitals := &types.Vitals{Sanity: &types.VitalPair{Current: 33, Max: 99}}
	res := Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Vitals: vitals, Random: fixedRoll(40)})
	if res.Checks[0].Base != 33 || res.Checks[0].Outcome.Success {
		t.Fatalf("unexpected sanity check %+v", res.Checks[0])
	}

	res = Execute(plan, Env{Catalog: testCatalog(), Character: testCharacter(), Random: fixedRoll(40)})
	if res.Checks[0].Base != 70 {
		t.Fatalf("expected POW fallback, got %d", res.Checks[0].Base)
	}
}

func TestExecuteEnglishLocale(t *testing.T) {
	plan := types.InputAnalysis{Actions: []types.Action{
		types.CheckAction{Kind: types.KindSkill, Target: "spot_hidden", DC: 45},
	}}
	res := Execute(plan, Env{
		Catalog:   testCatalog(),
		Character: testCharacter(),
		Random:    fixedRoll(37),
		Locale:    ParseLocale("en-US"),
	})
	want := "[Skill check] 侦查: rolled 37 vs 45 (base 60, normal difficulty, DC 45) → Success"
	if res.Lines[0] != want {
		t.Fatalf("unexpected line\n got %q\nwant %q", res.Lines[0], want)
	}
	if ParseLocale("zh-Hans") != language.Chinese {
		t.Fatalf("expected chinese locale")
	}
}
