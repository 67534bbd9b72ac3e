package callback

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"google.golang.org/adk/agent"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/action"
	"github.com/easeaico/project-keeper/internal/check"
	"github.com/easeaico/project-keeper/internal/prompt"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

const (
	tplUsage = "usage"
	tplRoll  = "roll"
	tplState = "state"
	tplMap   = "map"
)

// defaultTemplatesText 定义斜杠命令的回复模板。
var defaultTemplatesText = `
{{define "usage"}}可用命令：
/roll [attribute|skill|luck|sanity|attack] <目标> [normal|hard|extreme]  离线检定，不影响剧情
/state  查看当前世界状态
/map    查看最近一张场景地图{{end}}
{{define "roll"}}【离线检定】
{{range .Lines}}{{.}}
{{end}}{{end}}
{{define "state"}}{{if .State}}{{.State}}{{else}}（暂无世界状态）{{end}}{{end}}
{{define "map"}}{{if .Map}}` + "```map" + `
{{.Map}}
` + "```" + `{{else}}（还没有场景地图）{{end}}{{end}}
`
var defaultTemplates = template.Must(template.New("command").Parse(defaultTemplatesText))

type memoryReader interface {
	GetMemory(ctx context.Context, sessionID string) (*types.MemoryRecord, error)
}

type characterReader interface {
	GetCharacter(ctx context.Context, sessionID string) (*types.Character, error)
}

type overrideReader interface {
	GetOverrides(ctx context.Context, sessionID string) (map[string]int, error)
}

// CommandDeps are the read-only stores the slash commands look at.
type CommandDeps struct {
	Memories   memoryReader
	Characters characterReader
	Overrides  overrideReader
	Catalog    *scenario.Catalog
	Rulebook   check.Rulebook
	Locale     language.Tag
	Random     check.RandomSource
}

// IsCommand reports whether text is a slash command that skips the narrator.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// NewCommandCallback 处理 /roll、/state、/map 等命令，命中时直接回复而不调用模型。
func NewCommandCallback(deps CommandDeps) agent.BeforeAgentCallback {
	if deps.Catalog == nil {
		deps.Catalog = scenario.Default()
	}
	if deps.Rulebook.Overrides == nil {
		deps.Rulebook = check.DefaultRulebook()
	}

	return func(cbCtx agent.CallbackContext) (*genai.Content, error) {
		trimmed := strings.TrimSpace(utils.ExtractContentText(cbCtx.UserContent()))
		if !IsCommand(trimmed) {
			return nil, nil
		}

		name, args, _ := strings.Cut(trimmed, " ")
		switch strings.ToLower(name) {
		case "/roll":
			return processRollCommand(cbCtx, deps, cbCtx.SessionID(), args)
		case "/state":
			rec := loadMemory(cbCtx, deps.Memories, cbCtx.SessionID())
			return renderResponse(tplState, map[string]any{"State": prompt.FormatWorldState(rec.State, false)})
		case "/map":
			rec := loadMemory(cbCtx, deps.Memories, cbCtx.SessionID())
			return renderResponse(tplMap, map[string]any{"Map": strings.TrimSpace(rec.State.MapText)})
		default:
			return renderResponse(tplUsage, nil)
		}
	}
}

func processRollCommand(ctx context.Context, deps CommandDeps, sessionID, args string) (*genai.Content, error) {
	act, ok := parseRollArgs(args)
	if !ok {
		return renderResponse(tplUsage, nil)
	}

	rec := loadMemory(ctx, deps.Memories, sessionID)
	env := action.Env{
		Catalog:  deps.Catalog,
		Rulebook: deps.Rulebook,
		Vitals:   &rec.State.Vitals,
		Random:   deps.Random,
		Locale:   deps.Locale,
	}
	if deps.Characters != nil {
		character, err := deps.Characters.GetCharacter(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to load character for roll", "session_id", sessionID, "error", err.Error())
		}
		env.Character = character
	}
	if deps.Overrides != nil {
		overrides, err := deps.Overrides.GetOverrides(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to load dc overrides for roll", "session_id", sessionID, "error", err.Error())
		}
		env.Overrides = overrides
	}

	result := action.Execute(types.InputAnalysis{Allowed: true, Actions: []types.Action{act}}, env)
	return renderResponse(tplRoll, map[string]any{"Lines": result.Lines})
}

// parseRollArgs reads "[kind] <target> [difficulty]". A missing kind means a
// skill check; luck and sanity take no target.
func parseRollArgs(args string) (types.Action, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, false
	}

	kind := types.KindSkill
	if k, ok := types.ParseCheckKind(fields[0]); ok {
		kind = k
		fields = fields[1:]
	}
	difficulty := types.DifficultyNormal
	if n := len(fields); n > 0 {
		if d, ok := types.ParseDifficulty(fields[n-1]); ok {
			difficulty = d
			fields = fields[:n-1]
		}
	}
	target := strings.Join(fields, " ")

	switch kind {
	case types.KindLuck, types.KindSanity:
		return types.CheckAction{Kind: kind, Difficulty: difficulty}, true
	case types.KindAttack:
		return types.AttackAction{Skill: target, Difficulty: difficulty}, true
	default:
		if target == "" {
			return nil, false
		}
		return types.CheckAction{Kind: kind, Target: target, Difficulty: difficulty}, true
	}
}

func loadMemory(ctx context.Context, repo memoryReader, sessionID string) *types.MemoryRecord {
	if repo != nil {
		rec, err := repo.GetMemory(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to load memory for command", "session_id", sessionID, "error", err.Error())
		}
		if rec != nil {
			return rec
		}
	}
	return &types.MemoryRecord{SessionID: sessionID}
}

func renderResponse(tplName string, data map[string]any) (*genai.Content, error) {
	var buf bytes.Buffer
	if err := defaultTemplates.ExecuteTemplate(&buf, tplName, data); err != nil {
		slog.Error("failed to execute template", "template", tplName, "error", err.Error())
		// 模板渲染失败时返回兜底文本，避免中断对话。
		return genai.NewContentFromText("处理命令时出现错误。", "model"), nil
	}

	return genai.NewContentFromText(strings.TrimSpace(buf.String()), "model"), nil
}
