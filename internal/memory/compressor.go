package memory

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/models"
	"github.com/easeaico/project-keeper/internal/prompt"
	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

// CompressInput is one batch of rounds plus the context the model needs.
type CompressInput struct {
	ShortSummary string
	State        types.WorldState
	Rounds       []Round
}

// CompressResult is what the model extracted from a batch.
type CompressResult struct {
	Summaries []types.RoundSummary
	Delta     types.WorldStateDelta
}

// Compressor turns rounds into summaries and a delta, and folds old round
// summaries into prose.
type Compressor interface {
	CompressRounds(ctx context.Context, in CompressInput) (CompressResult, error)
	FoldSummary(ctx context.Context, longSummary string, overflow []types.RoundSummary) (string, error)
}

// compressInstruction 要求模型仅返回结构化 JSON。
const compressInstruction = `You maintain the long-term memory of a tabletop horror investigation.
You receive the story summary so far, the current world state, and a batch of numbered rounds
(one player message followed by the keeper's replies).

Return one JSON object:
{
  "roundSummaries": [{"round": <number>, "summary": "<one or two sentences in Chinese>"}],
  "stateDelta": {
    "allies": {"add": [], "remove": []},
    "inventory": {"add": [], "remove": []},
    "buffs": {"add": [], "remove": []},
    "debuffs": {"add": [], "remove": []},
    "presentNpcs": {"add": [], "remove": []},
    "npcs": [{"name": "", "status": "", "relation": "", "location": "", "notes": "", "ally": false}],
    "locations": [{"name": "", "status": "", "notes": ""}],
    "threads": [{"title": "", "status": "open|resolved|blocked", "notes": ""}],
    "flags": [{"key": "", "value": ""}],
    "notes": [],
    "dmNotes": [],
    "vitals": {"hp": {"current": 0, "max": 0}, "sanity": {"current": 0, "max": 0}, "magic": {"current": 0, "max": 0}},
    "location": "",
    "scene": ""
  }
}
Rules:
- Write exactly one summary per round number you were given.
- Only include what changed in these rounds; omit unchanged fields.
- Vitals are absolute values after the rounds, not increments.
- Secrets the investigators have not discovered go to dmNotes.
- No text outside the JSON object.`

const foldInstruction = `You condense the memory of a tabletop horror investigation.
Merge the existing long summary with the listed round summaries into one coherent
chronological summary in Chinese, at most 600 characters. Keep names, places, clues and promises.
Return {"summary": "<text>"} and nothing else.`

type llmCompressor struct {
	llm  model.LLM
	opts models.CallOptions
}

// NewLLMCompressor builds a Compressor backed by llm.
func NewLLMCompressor(llm model.LLM, opts models.CallOptions) Compressor {
	return &llmCompressor{llm: llm, opts: opts}
}

func (c *llmCompressor) CompressRounds(ctx context.Context, in CompressInput) (CompressResult, error) {
	req := models.JSONRequest(compressInstruction, buildCompressPrompt(in), nil)
	reply, err := models.GenerateText(ctx, c.llm, req, c.opts)
	if err != nil {
		return CompressResult{}, err
	}
	summaries, delta, ok := DecodeCompression(reply)
	if !ok {
		return CompressResult{}, fmt.Errorf("failed to parse compression reply: %q", utils.TruncateRunes(reply, 80))
	}
	return CompressResult{Summaries: summaries, Delta: delta}, nil
}

func (c *llmCompressor) FoldSummary(ctx context.Context, longSummary string, overflow []types.RoundSummary) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Long summary\n")
	sb.WriteString(strings.TrimSpace(longSummary))
	sb.WriteString("\n\n## Rounds to merge\n")
	for _, r := range overflow {
		sb.WriteString(r.Line())
		sb.WriteString("\n")
	}
	req := models.JSONRequest(foldInstruction, sb.String(), foldSchema())
	reply, err := models.GenerateText(ctx, c.llm, req, c.opts)
	if err != nil {
		return "", err
	}
	obj, ok := utils.ParseObject(reply)
	if !ok {
		return "", fmt.Errorf("failed to parse fold reply")
	}
	summary := utils.LooseString(obj.Get("summary"))
	if summary == "" {
		return "", fmt.Errorf("empty fold summary")
	}
	return summary, nil
}

func buildCompressPrompt(in CompressInput) string {
	var sb strings.Builder
	sb.WriteString("## Summary so far\n")
	if s := strings.TrimSpace(in.ShortSummary); s != "" {
		sb.WriteString(s)
	} else {
		sb.WriteString("(none)")
	}
	sb.WriteString("\n\n## World state\n")
	sb.WriteString(prompt.FormatWorldState(in.State, true))
	sb.WriteString("\n\n## Rounds\n")
	for _, r := range in.Rounds {
		fmt.Fprintf(&sb, "### Round %d\n", r.Index)
		if r.Player != "" {
			fmt.Fprintf(&sb, "Player: %s\n", r.Player)
		}
		for _, dm := range r.DM {
			fmt.Fprintf(&sb, "Keeper: %s\n", dm)
		}
	}
	return sb.String()
}

func foldSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"summary"},
	}
}
