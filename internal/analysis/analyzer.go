package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/models"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

// analysisInstruction 要求模型只输出一个 JSON 对象。
const analysisInstruction = `You are the rules referee of a horror investigation tabletop game.
Read the player's latest input and decide which dice checks it calls for. Do not narrate.

Return exactly one JSON object with these keys:
- allowed: false only if the input is impossible, out of character control, or breaks the game
- reason: short explanation in the player's language when allowed is false
- intent: one of action, dialogue, explore, combat, investigate, rest, other
- diceType: one of none, attribute, skill, luck, sanity, attack
- difficulty: one of normal, hard, extreme
- actions: array of
  {"type":"check","checkType":"attribute|skill|luck|sanity","target":"<skill id or attribute key>","dc":<1-100, optional>,"difficulty":"normal|hard|extreme","reason":"..."}
  {"type":"attack","target":"<who is attacked>","skill":"<combat skill id>","dc":<optional>,"difficulty":"...","reason":"..."}
  {"type":"npc","target":"<npc name>","intent":"<what the npc tries to do>","reason":"..."}
Use the skill ids and attribute keys listed below whenever possible.
Leave actions empty when nothing needs to be rolled.`

// Analyzer asks the analysis model for a structured plan.
type Analyzer struct {
	llm     model.LLM
	catalog *scenario.Catalog
	opts    models.CallOptions
}

// NewAnalyzer builds an analyzer for one scenario catalog.
func NewAnalyzer(llm model.LLM, catalog *scenario.Catalog, opts models.CallOptions) *Analyzer {
	if catalog == nil {
		catalog = scenario.Default()
	}
	return &Analyzer{llm: llm, catalog: catalog, opts: opts}
}

// Analyze returns the validated plan for input. Transport failures fail closed.
func (a *Analyzer) Analyze(ctx context.Context, input, memoryContext string) types.InputAnalysis {
	input = strings.TrimSpace(input)
	if input == "" {
		return Invalid(input)
	}

	req := models.JSONRequest(analysisInstruction, a.buildPrompt(input, memoryContext), outputSchema())
	reply, err := models.GenerateText(ctx, a.llm, req, a.opts)
	if err != nil {
		slog.Error("failed to analyse player input", "error", err.Error())
		return Invalid(input)
	}
	return Parse(reply, input)
}

func (a *Analyzer) buildPrompt(input, memoryContext string) string {
	var sb strings.Builder
	sb.WriteString("## Skills (id: label)\n")
	for _, s := range a.catalog.Skills {
		fmt.Fprintf(&sb, "- %s: %s\n", s.ID, s.Label)
	}
	sb.WriteString("\n## Attributes (key: label)\n")
	for _, attr := range a.catalog.Attributes {
		fmt.Fprintf(&sb, "- %s: %s\n", attr.Key, attr.Label)
	}
	if ctx := strings.TrimSpace(memoryContext); ctx != "" {
		sb.WriteString("\n## Story so far\n")
		sb.WriteString(ctx)
		sb.WriteString("\n")
	}
	sb.WriteString("\n## Player input\n")
	sb.WriteString(input)
	return sb.String()
}

func outputSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"allowed":    {Type: genai.TypeBoolean},
			"reason":     str,
			"intent":     {Type: genai.TypeString, Enum: []string{"action", "dialogue", "explore", "combat", "investigate", "rest", "other"}},
			"diceType":   {Type: genai.TypeString, Enum: []string{"none", "attribute", "skill", "luck", "sanity", "attack"}},
			"difficulty": {Type: genai.TypeString, Enum: []string{"normal", "hard", "extreme"}},
			"actions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":       {Type: genai.TypeString, Enum: []string{"check", "attack", "npc"}},
						"checkType":  str,
						"target":     str,
						"skill":      str,
						"intent":     str,
						"dc":         {Type: genai.TypeInteger},
						"difficulty": str,
						"reason":     str,
					},
					Required: []string{"type"},
				},
			},
		},
		Required: []string{"allowed", "intent", "actions"},
	}
}
