package callback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

type fixedRoll int

func (f fixedRoll) Intn(n int) int { return int(f) - 1 }

type fakeMemories struct {
	rec *types.MemoryRecord
	err error
}

func (f *fakeMemories) GetMemory(ctx context.Context, sessionID string) (*types.MemoryRecord, error) {
	return f.rec, f.err
}

type fakeCharacters struct {
	character *types.Character
	err       error
	bound     map[string]int
	bindErr   error
}

func (f *fakeCharacters) GetCharacter(ctx context.Context, sessionID string) (*types.Character, error) {
	return f.character, f.err
}

func (f *fakeCharacters) BindSession(ctx context.Context, id int, sessionID string) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	if f.bound == nil {
		f.bound = map[string]int{}
	}
	f.bound[sessionID] = id
	return nil
}

type fakeOverrides struct {
	overrides map[string]int
}

func (f *fakeOverrides) GetOverrides(ctx context.Context, sessionID string) (map[string]int, error) {
	return f.overrides, nil
}

func TestParseRollArgs(t *testing.T) {
	tests := []struct {
		args       string
		ok         bool
		kind       types.CheckKind
		target     string
		difficulty types.Difficulty
	}{
		{args: "侦查", ok: true, kind: types.KindSkill, target: "侦查", difficulty: types.DifficultyNormal},
		{args: "skill 图书馆使用 hard", ok: true, kind: types.KindSkill, target: "图书馆使用", difficulty: types.DifficultyHard},
		{args: "attribute STR extreme", ok: true, kind: types.KindAttribute, target: "STR", difficulty: types.DifficultyExtreme},
		{args: "luck", ok: true, kind: types.KindLuck, difficulty: types.DifficultyNormal},
		{args: "SANITY hard", ok: true, kind: types.KindSanity, difficulty: types.DifficultyHard},
		{args: "skill", ok: false},
		{args: "", ok: false},
	}

	for _, tt := range tests {
		act, ok := parseRollArgs(tt.args)
		if ok != tt.ok {
			t.Fatalf("parseRollArgs(%q) ok = %v, want %v", tt.args, ok, tt.ok)
		}
		if !ok {
			continue
		}
		check, isCheck := act.(types.CheckAction)
		if !isCheck {
			t.Fatalf("parseRollArgs(%q) returned %T", tt.args, act)
		}
		if check.Kind != tt.kind || check.Target != tt.target || check.Difficulty != tt.difficulty {
			t.Fatalf("parseRollArgs(%q) = %+v", tt.args, check)
		}
	}
}

func TestParseRollArgsAttack(t *testing.T) {
	act, ok := parseRollArgs("attack 斗殴 hard")
	if !ok {
		t.Fatalf("expected attack to parse")
	}
	attack, isAttack := act.(types.AttackAction)
	if !isAttack {
		t.Fatalf("expected AttackAction, got %T", act)
	}
	if attack.Skill != "斗殴" || attack.Difficulty != types.DifficultyHard {
		t.Fatalf("unexpected attack %+v", attack)
	}
}

func TestProcessRollCommandUsesSessionState(t *testing.T) {
	deps := CommandDeps{
		Memories: &fakeMemories{rec: &types.MemoryRecord{
			State: types.WorldState{Vitals: types.Vitals{Sanity: &types.VitalPair{Current: 45, Max: 99}}},
		}},
		Characters: &fakeCharacters{character: &types.Character{Name: "Ada", Luck: 70}},
		Overrides:  &fakeOverrides{},
		Locale:     language.Chinese,
		Random:     fixedRoll(30),
	}

	content, err := processRollCommand(context.Background(), deps, "s1", "sanity")
	if err != nil {
		t.Fatalf("processRollCommand returned error: %v", err)
	}
	text := utils.ExtractContentText(content)
	if !strings.Contains(text, "【离线检定】") {
		t.Fatalf("missing roll header: %q", text)
	}
	if !strings.Contains(text, "30") {
		t.Fatalf("expected the roll in the result: %q", text)
	}
}

func TestProcessRollCommandUsage(t *testing.T) {
	content, err := processRollCommand(context.Background(), CommandDeps{}, "s1", "  ")
	if err != nil {
		t.Fatalf("processRollCommand returned error: %v", err)
	}
	if text := utils.ExtractContentText(content); !strings.Contains(text, "/roll") {
		t.Fatalf("expected usage text, got %q", text)
	}
}

func TestLoadMemoryFallsBackToEmptyRecord(t *testing.T) {
	rec := loadMemory(context.Background(), &fakeMemories{err: errors.New("db down")}, "s1")
	if rec == nil || rec.SessionID != "s1" {
		t.Fatalf("expected empty record for s1, got %+v", rec)
	}
	rec = loadMemory(context.Background(), nil, "s2")
	if rec == nil || rec.SessionID != "s2" {
		t.Fatalf("expected empty record for s2, got %+v", rec)
	}
}

func TestRenderMapResponse(t *testing.T) {
	content, _ := renderResponse(tplMap, map[string]any{"Map": "[大厅]--[书房]"})
	text := utils.ExtractContentText(content)
	if !strings.HasPrefix(text, "```map") || !strings.Contains(text, "[大厅]--[书房]") {
		t.Fatalf("unexpected map response %q", text)
	}

	content, _ = renderResponse(tplMap, map[string]any{"Map": ""})
	if text := utils.ExtractContentText(content); !strings.Contains(text, "还没有场景地图") {
		t.Fatalf("unexpected empty map response %q", text)
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("  /roll luck") {
		t.Fatalf("expected /roll to be a command")
	}
	if IsCommand("我推开门") {
		t.Fatalf("plain input is not a command")
	}
}
