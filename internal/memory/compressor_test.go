package memory

import (
	"context"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/models"
	"github.com/easeaico/project-keeper/internal/types"
)

type fakeLLM struct {
	reply    string
	requests []*model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.requests = append(f.requests, req)
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(&model.LLMResponse{Content: genai.NewContentFromText(f.reply, "model"), TurnComplete: true}, nil)
	}
}

func TestLLMCompressorCompressRounds(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n" + `{"roundSummaries":[{"round":7,"summary":"调查员找到钥匙"}],"stateDelta":{"inventory":{"add":["钥匙"]}}}` + "\n```"}
	c := NewLLMCompressor(llm, models.CallOptions{})

	res, err := c.CompressRounds(context.Background(), CompressInput{
		ShortSummary: "第6轮：进入庄园",
		State:        types.WorldState{DMNotes: []string{"管家是邪教徒"}},
		Rounds:       []Round{{Index: 7, Player: "我搜抽屉", DM: []string{"你找到一把钥匙"}}},
	})
	if err != nil {
		t.Fatalf("CompressRounds returned error: %v", err)
	}
	if len(res.Summaries) != 1 || res.Summaries[0].Round != 7 {
		t.Fatalf("unexpected summaries %+v", res.Summaries)
	}
	if len(res.Delta.Inventory.Add) != 1 {
		t.Fatalf("unexpected delta %+v", res.Delta)
	}

	prompt := llm.requests[0].Contents[0].Parts[0].Text
	for _, want := range []string{"第6轮：进入庄园", "管家是邪教徒", "### Round 7", "Keeper: 你找到一把钥匙"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestLLMCompressorRejectsProse(t *testing.T) {
	c := NewLLMCompressor(&fakeLLM{reply: "我不知道"}, models.CallOptions{})
	if _, err := c.CompressRounds(context.Background(), CompressInput{Rounds: []Round{{Index: 1}}}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLLMCompressorFoldSummary(t *testing.T) {
	llm := &fakeLLM{reply: `{"summary":"调查员来到阿卡姆并找到钥匙。"}`}
	c := NewLLMCompressor(llm, models.CallOptions{})

	got, err := c.FoldSummary(context.Background(), "调查员来到阿卡姆。", []types.RoundSummary{{Round: 1, Summary: "找到钥匙"}})
	if err != nil {
		t.Fatalf("FoldSummary returned error: %v", err)
	}
	if got != "调查员来到阿卡姆并找到钥匙。" {
		t.Fatalf("unexpected summary %q", got)
	}
	if !strings.Contains(llm.requests[0].Contents[0].Parts[0].Text, "第1轮：找到钥匙") {
		t.Fatalf("fold prompt should list the overflow rounds")
	}
}
