package callback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/prompt"
	"github.com/easeaico/project-keeper/internal/turn"
	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

type turnRunner interface {
	Process(ctx context.Context, sessionID, input string) turn.Outcome
}

type transcriptWriter interface {
	AppendMessage(ctx context.Context, sessionID, role, content string) (*types.Message, error)
}

type characterBinder interface {
	GetCharacter(ctx context.Context, sessionID string) (*types.Character, error)
	BindSession(ctx context.Context, id int, sessionID string) error
}

// TurnDeps wires the turn callback. Characters and CharacterID are optional;
// with both set, an unbound session is bound to CharacterID on its first turn.
type TurnDeps struct {
	Turns       turnRunner
	Transcript  transcriptWriter
	Characters  characterBinder
	CharacterID int
}

// NewTurnCallback archives the player message, resolves the checks of the
// turn and publishes the memory context and check lines to session state.
func NewTurnCallback(deps TurnDeps) agent.BeforeAgentCallback {
	return func(cbCtx agent.CallbackContext) (*genai.Content, error) {
		input := strings.TrimSpace(utils.ExtractContentText(cbCtx.UserContent()))
		if input == "" || IsCommand(input) {
			return nil, nil
		}
		sessionID := cbCtx.SessionID()

		if deps.Transcript != nil {
			if _, err := deps.Transcript.AppendMessage(cbCtx, sessionID, types.RolePlayer, input); err != nil {
				slog.Error("failed to archive player message", "session_id", sessionID, "error", err.Error())
			}
		}
		bindCharacter(cbCtx, deps, sessionID)

		outcome := deps.Turns.Process(cbCtx, sessionID, input)
		checks := outcome.CheckResults
		if strings.TrimSpace(checks) == "" {
			checks = NoCheckText
		}

		state := cbCtx.State()
		if err := state.Set(prompt.StateKeyMemoryContext, outcome.MemoryContext); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", prompt.StateKeyMemoryContext, err)
		}
		if err := state.Set(prompt.StateKeyCheckResults, checks); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", prompt.StateKeyCheckResults, err)
		}
		slog.Debug("turn resolved", "session_id", sessionID, "intent", outcome.Analysis.Intent, "checks", len(outcome.Result.Checks))
		return nil, nil
	}
}

func bindCharacter(ctx context.Context, deps TurnDeps, sessionID string) {
	if deps.Characters == nil || deps.CharacterID <= 0 {
		return
	}
	bound, err := deps.Characters.GetCharacter(ctx, sessionID)
	if err != nil {
		slog.Warn("failed to look up session character", "session_id", sessionID, "error", err.Error())
		return
	}
	if bound != nil {
		return
	}
	if err := deps.Characters.BindSession(ctx, deps.CharacterID, sessionID); err != nil {
		slog.Warn("failed to bind character", "session_id", sessionID, "character_id", deps.CharacterID, "error", err.Error())
	}
}
