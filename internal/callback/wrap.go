package callback

import (
	"log/slog"

	"google.golang.org/adk/agent"
	"google.golang.org/genai"
)

// WrapBeforeCallback logs a before-agent callback and turns a panic into a
// skipped callback.
func WrapBeforeCallback(name string, cb agent.BeforeAgentCallback) agent.BeforeAgentCallback {
	return func(ctx agent.CallbackContext) (*genai.Content, error) {
		return guard("before", name, ctx, cb)
	}
}

// WrapAfterCallback is WrapBeforeCallback for after-agent callbacks.
func WrapAfterCallback(name string, cb agent.AfterAgentCallback) agent.AfterAgentCallback {
	return func(ctx agent.CallbackContext) (*genai.Content, error) {
		return guard("after", name, ctx, cb)
	}
}

func guard(stage, name string, ctx agent.CallbackContext, cb func(agent.CallbackContext) (*genai.Content, error)) (content *genai.Content, err error) {
	log := slog.With("stage", stage, "callback", name, "session_id", ctx.SessionID())
	defer func() {
		if r := recover(); r != nil {
			log.Error("callback panic", "panic", r)
			content, err = nil, nil
		}
	}()

	content, err = cb(ctx)
	if err != nil {
		log.Error("callback error", "error", err.Error())
		return content, err
	}
	log.Debug("callback done", "has_content", content != nil)
	return content, nil
}
