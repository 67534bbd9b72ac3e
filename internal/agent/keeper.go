// Package agent builds the narrator agent and its callback chain.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/memory"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	adktool "google.golang.org/adk/tool"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/callback"
	"github.com/easeaico/project-keeper/internal/config"
	"github.com/easeaico/project-keeper/internal/prompt"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/tool"
)

// KeeperDeps are the collaborators of the keeper agent.
type KeeperDeps struct {
	Config         *config.Config
	Model          model.LLM
	Catalog        *scenario.Catalog
	SessionService session.Service
	MemoryService  memory.Service
	Turn           callback.TurnDeps
	Commands       callback.CommandDeps
}

// NewKeeperAgent builds the narrator. Before each turn it seeds session
// state, answers slash commands, then resolves the turn's checks; after each
// turn the session is handed to the memory service.
func NewKeeperAgent(ctx context.Context, deps KeeperDeps) (agent.Agent, error) {
	if deps.Config == nil || deps.Model == nil {
		return nil, fmt.Errorf("config and model are required")
	}
	if deps.SessionService == nil || deps.MemoryService == nil {
		return nil, fmt.Errorf("session and memory services are required")
	}
	if deps.Turn.Turns == nil {
		return nil, fmt.Errorf("turn processor is required")
	}

	instruction, err := prompt.BuildKeeperInstruction(deps.Catalog)
	if err != nil {
		return nil, err
	}

	llmAgent, err := llmagent.New(llmagent.Config{
		Name:        "keeper",
		Description: "克苏鲁调查跑团主持人",
		Model:       deps.Model,
		Instruction: instruction,
		GenerateContentConfig: &genai.GenerateContentConfig{
			MaxOutputTokens: deps.Config.MaxOutputTokens,
		},
		Tools: []adktool.Tool{tool.NewPreloadRecallTool(deps.Config.TopK)},
		BeforeAgentCallbacks: []agent.BeforeAgentCallback{
			callback.WrapBeforeCallback("ensure_state", callback.EnsureSessionStateCallback()),
			callback.WrapBeforeCallback("command", callback.NewCommandCallback(deps.Commands)),
			callback.WrapBeforeCallback("turn", callback.NewTurnCallback(deps.Turn)),
		},
		AfterAgentCallbacks: []agent.AfterAgentCallback{
			callback.WrapAfterCallback("archive_reply", callback.NewArchiveReplyCallback(deps.SessionService, deps.MemoryService)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keeper agent: %w", err)
	}

	slog.InfoContext(ctx, "keeper agent ready", "model", deps.Model.Name(), "scenario", scenarioName(deps.Catalog))
	return llmAgent, nil
}

func scenarioName(c *scenario.Catalog) string {
	if c == nil {
		return ""
	}
	return c.Name
}
