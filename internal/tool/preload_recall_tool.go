// Package tool provides custom ADK tools for the keeper.
package tool

import (
	"log/slog"
	"strings"

	"google.golang.org/adk/memory"
	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/utils"
)

const (
	defaultRecallToolName        = "preload_recall"
	defaultRecallToolDescription = "Preloads archived rounds related to the player's input into the system instruction."
)

// PreloadRecallTool searches the round archive with the player's input and
// appends the hits to the system instruction before the narrator runs.
type PreloadRecallTool struct {
	name        string
	description string
	maxEntries  int
}

// NewPreloadRecallTool creates a PreloadRecallTool. maxEntries <= 0 keeps every hit.
func NewPreloadRecallTool(maxEntries int) *PreloadRecallTool {
	return &PreloadRecallTool{
		name:        defaultRecallToolName,
		description: defaultRecallToolDescription,
		maxEntries:  maxEntries,
	}
}

// Name implements tool.Tool.
func (t *PreloadRecallTool) Name() string {
	return t.name
}

// Description implements tool.Tool.
func (t *PreloadRecallTool) Description() string {
	return t.description
}

// IsLongRunning implements tool.Tool.
func (t *PreloadRecallTool) IsLongRunning() bool {
	return false
}

// ProcessRequest implements the request processor hook of ADK tools.
// Search failures are logged; the turn continues without recalled rounds.
func (t *PreloadRecallTool) ProcessRequest(ctx tool.Context, req *model.LLMRequest) error {
	if ctx == nil || req == nil {
		return nil
	}

	query := strings.TrimSpace(utils.ExtractContentText(ctx.UserContent()))
	if query == "" || strings.HasPrefix(query, "/") {
		return nil
	}

	resp, err := ctx.SearchMemory(ctx, query)
	if err != nil {
		slog.Warn("failed to search archived rounds", "session_id", ctx.SessionID(), "error", err.Error())
		return nil
	}
	if resp == nil {
		return nil
	}

	appendInstruction(req, buildRecallInstruction(resp.Memories, t.maxEntries))
	return nil
}

func buildRecallInstruction(entries []memory.Entry, maxEntries int) string {
	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	var lines []string
	for _, entry := range entries {
		text := utils.CollapseSpace(utils.ExtractContentText(entry.Content))
		if text == "" {
			continue
		}
		lines = append(lines, "- "+text)
	}
	if len(lines) == 0 {
		return ""
	}
	return "【相关旧事】以下是与玩家本轮行动相关的早期回合，仅供保持剧情一致：\n" + strings.Join(lines, "\n")
}

func appendInstruction(req *model.LLMRequest, instruction string) {
	if strings.TrimSpace(instruction) == "" {
		return
	}
	if req.Config == nil {
		req.Config = &genai.GenerateContentConfig{}
	}
	if req.Config.SystemInstruction == nil {
		req.Config.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
		return
	}
	req.Config.SystemInstruction.Parts = append(req.Config.SystemInstruction.Parts, genai.NewPartFromText(instruction))
}
