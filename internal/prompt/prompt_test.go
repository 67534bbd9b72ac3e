package prompt

import (
	"strings"
	"testing"

	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

func TestFormatWorldStateHidesDMNotes(t *testing.T) {
	state := types.WorldState{
		NPCs:     []types.NPC{{Name: "Mary", Status: "friendly", Ally: true}},
		Threads:  []types.Thread{{Title: "失踪的教授", Status: types.ThreadOpen}},
		DMNotes:  []string{"教授已经死了"},
		Vitals:   types.Vitals{HP: &types.VitalPair{Current: 9, Max: 12}},
		Presence: types.Presence{Location: "书房"},
	}

	public := FormatWorldState(state, false)
	if strings.Contains(public, "教授已经死了") {
		t.Fatalf("dm notes leaked: %s", public)
	}
	for _, want := range []string{"当前位置：书房", "- Mary；状态：friendly（同伴）", "[open] 失踪的教授", "HP 9/12"} {
		if !strings.Contains(public, want) {
			t.Fatalf("expected %q in:\n%s", want, public)
		}
	}
	if private := FormatWorldState(state, true); !strings.Contains(private, "教授已经死了") {
		t.Fatalf("expected dm notes in private view:\n%s", private)
	}
	if got := FormatWorldState(types.WorldState{}, false); got != "（暂无记录）" {
		t.Fatalf("unexpected empty rendering %q", got)
	}
}

func TestBuildMemoryContext(t *testing.T) {
	rec := &types.MemoryRecord{
		LongSummary: "调查员来到阿卡姆。",
		RoundSummaries: []types.RoundSummary{
			{Round: 1, Summary: "抵达庄园"},
			{Round: 2, Summary: "进入书房"},
			{Round: 3, Summary: "发现日记"},
			{Round: 4, Summary: "听到脚步声"},
		},
	}
	char := &types.Character{Name: "哈维", Inventory: []string{"手电筒"}}

	got, err := BuildMemoryContext(MemoryContext{Record: rec, Character: char})
	if err != nil {
		t.Fatalf("BuildMemoryContext returned error: %v", err)
	}
	for _, want := range []string{"调查员来到阿卡姆。\n第1轮：抵达庄园", "第4轮：听到脚步声", "物品：手电筒", "【世界状态】"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in:\n%s", want, got)
		}
	}
}

func TestBuildKeeperInstructionKeepsPlaceholders(t *testing.T) {
	got, err := BuildKeeperInstruction(scenario.Default())
	if err != nil {
		t.Fatalf("BuildKeeperInstruction returned error: %v", err)
	}
	if !strings.Contains(got, "{MemoryContext}") || !strings.Contains(got, "{CheckResults}") {
		t.Fatalf("expected placeholders, got:\n%s", got)
	}
}
