package memory

import (
	"testing"
	"time"

	"github.com/easeaico/project-keeper/internal/types"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func msg(offset int, role, content string) types.Message {
	return types.Message{Role: role, Content: content, CreatedAt: t0.Add(time.Duration(offset) * time.Minute)}
}

func TestBucketRoundsPendingPlayerMessage(t *testing.T) {
	msgs := []types.Message{
		msg(0, "player", "我推开门"),
		msg(1, "dm", "门吱呀一声开了"),
		msg(2, "player", "我走进去"),
		msg(3, "dm", "屋里很暗"),
		msg(4, "dm", "你闻到霉味"),
		msg(5, "player", "我点亮提灯"),
	}

	b := BucketRounds(msgs, 7)
	if len(b.Complete) != 2 {
		t.Fatalf("expected 2 complete rounds, got %d", len(b.Complete))
	}
	if b.Complete[0].Index != 8 || b.Complete[1].Index != 9 {
		t.Fatalf("unexpected round numbers: %d, %d", b.Complete[0].Index, b.Complete[1].Index)
	}
	if got := b.Complete[1].DMText(); got != "屋里很暗\n你闻到霉味" {
		t.Fatalf("unexpected dm text %q", got)
	}
	if b.Pending == nil || b.Pending.Player != "我点亮提灯" {
		t.Fatalf("expected trailing player message to be pending, got %+v", b.Pending)
	}
	if !b.Watermark.Equal(t0.Add(4 * time.Minute)) {
		t.Fatalf("watermark should stop at the last complete round, got %v", b.Watermark)
	}
}

func TestBucketRoundsOpeningAndFolding(t *testing.T) {
	msgs := []types.Message{
		msg(2, "user", "等等"),
		msg(0, "assistant", "欢迎来到阿卡姆"),
		msg(3, "user", "我先检查背包"),
		msg(4, "model", "背包里有一把手电"),
		msg(5, "system", "ignored"),
	}

	b := BucketRounds(msgs, 0)
	if len(b.Complete) != 2 {
		t.Fatalf("expected opening round plus one, got %d", len(b.Complete))
	}
	if b.Complete[0].Player != "" || b.Complete[0].DMText() != "欢迎来到阿卡姆" {
		t.Fatalf("unexpected opening round %+v", b.Complete[0])
	}
	if b.Complete[1].Player != "等等\n我先检查背包" {
		t.Fatalf("unanswered player message should fold forward, got %q", b.Complete[1].Player)
	}
	if b.Pending != nil {
		t.Fatalf("expected no pending round")
	}
}

func TestBucketRoundsEmpty(t *testing.T) {
	b := BucketRounds(nil, 3)
	if len(b.Complete) != 0 || b.Pending != nil || !b.Watermark.IsZero() {
		t.Fatalf("expected empty buckets, got %+v", b)
	}
}

func TestBatches(t *testing.T) {
	rounds := make([]Round, 9)
	got := Batches(rounds, 4)
	if len(got) != 3 || len(got[0]) != 4 || len(got[2]) != 1 {
		t.Fatalf("unexpected batches: %d", len(got))
	}
}

func TestLatestMap(t *testing.T) {
	msgs := []types.Message{
		msg(0, "dm", "```map\n[大厅]--[书房]\n```"),
		msg(1, "player", "```map\nfake\n```"),
		msg(2, "dm", "你来到书房。\n```map\n[大厅]--[书房]--[密室]\n```"),
		msg(3, "dm", "没有地图"),
	}
	got, ok := LatestMap(msgs)
	if !ok || got != "[大厅]--[书房]--[密室]" {
		t.Fatalf("unexpected map %q (ok=%v)", got, ok)
	}
	if _, ok := LatestMap(msgs[1:2]); ok {
		t.Fatalf("player maps must be ignored")
	}
}

func TestFallbackSummary(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "字"
	}
	s := FallbackSummary(Round{Index: 4, Player: "我跑", DM: []string{long}})
	if s.Round != 4 || len([]rune(s.Summary)) != FallbackSummaryRunes {
		t.Fatalf("unexpected fallback %+v", s)
	}
	s = FallbackSummary(Round{Index: 5, Player: "只有玩家"})
	if s.Summary != "只有玩家" {
		t.Fatalf("expected player text fallback, got %q", s.Summary)
	}
}

func TestCompleteSummariesFillsGaps(t *testing.T) {
	rounds := []Round{
		{Index: 1, DM: []string{"第一轮"}},
		{Index: 2, DM: []string{"第二轮"}},
	}
	got := CompleteSummaries(rounds, []types.RoundSummary{
		{Round: 2, Summary: "模型摘要"},
		{Round: 9, Summary: "越界"},
	})
	if len(got) != 2 {
		t.Fatalf("expected one summary per round, got %d", len(got))
	}
	if got[0].Summary != "第一轮" || got[1].Summary != "模型摘要" {
		t.Fatalf("unexpected summaries %+v", got)
	}
}
