package analysis

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/models"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

type fakeLLM struct {
	reply   string
	err     error
	lastReq *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake-analysis" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.lastReq = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(f.reply, "model")}, nil)
	}
}

func TestAnalyzerParsesReply(t *testing.T) {
	llm := &fakeLLM{reply: `{"allowed":true,"intent":"explore","diceType":"skill","actions":[{"type":"check","checkType":"skill","target":"listen"}]}`}
	a := NewAnalyzer(llm, scenario.Default(), models.CallOptions{})

	got := a.Analyze(context.Background(), "我贴着门听", "第1轮：调查员抵达庄园")
	if !got.Allowed || len(got.Actions) != 1 {
		t.Fatalf("unexpected analysis %+v", got)
	}
	prompt := llm.lastReq.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "spot_hidden: 侦查") {
		t.Fatalf("expected skill catalog in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "调查员抵达庄园") {
		t.Fatalf("expected memory context in prompt")
	}
}

func TestAnalyzerFailsClosedOnTransportError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("timeout")}
	a := NewAnalyzer(llm, nil, models.CallOptions{})

	got := a.Analyze(context.Background(), "我开枪", "")
	if got.Allowed || got.Intent != types.IntentInvalid {
		t.Fatalf("expected invalid analysis, got %+v", got)
	}
}
