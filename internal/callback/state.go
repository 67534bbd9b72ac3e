package callback

import (
	"errors"
	"log/slog"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/prompt"
)

// NoCheckText fills the check slot of the instruction on turns without rolls.
const NoCheckText = "（本轮无需检定）"

// EnsureSessionStateCallback seeds the state keys the narrator instruction
// reads, so ADK placeholder injection never sees a missing key.
func EnsureSessionStateCallback() agent.BeforeAgentCallback {
	return func(cbCtx agent.CallbackContext) (*genai.Content, error) {
		state := cbCtx.State()
		if state == nil {
			slog.Warn("session state is nil, skipping state initialization", "session_id", cbCtx.SessionID())
			return nil, nil
		}

		ensureStateValue(state, prompt.StateKeyMemoryContext, "")
		ensureStateValue(state, prompt.StateKeyCheckResults, NoCheckText)
		return nil, nil
	}
}

func ensureStateValue(state session.State, key string, value any) {
	_, err := state.Get(key)
	if err == nil {
		// 已存在键时不覆盖。
		return
	}
	if !errors.Is(err, session.ErrStateKeyNotExist) {
		slog.Warn("failed to check session state key", "key", key, "error", err.Error())
		return
	}
	if err := state.Set(key, value); err != nil {
		slog.Warn("failed to set session state", "key", key, "error", err.Error())
	}
}
