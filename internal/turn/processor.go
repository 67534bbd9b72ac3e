// Package turn runs the per-turn flow: analyse the player input, roll what
// the plan asks for, and remember the DCs the model settled on.
package turn

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"github.com/easeaico/project-keeper/internal/action"
	"github.com/easeaico/project-keeper/internal/check"
	"github.com/easeaico/project-keeper/internal/prompt"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

type Analyzer interface {
	Analyze(ctx context.Context, input, memoryContext string) types.InputAnalysis
}

type OverrideStore interface {
	GetOverrides(ctx context.Context, sessionID string) (map[string]int, error)
	SaveOverrides(ctx context.Context, sessionID string, updates map[string]int) error
}

type MemoryReader interface {
	GetMemory(ctx context.Context, sessionID string) (*types.MemoryRecord, error)
}

type CharacterReader interface {
	GetCharacter(ctx context.Context, sessionID string) (*types.Character, error)
}

// Deps are the collaborators of a Processor. Random is optional.
type Deps struct {
	Analyzer   Analyzer
	Overrides  OverrideStore
	Memories   MemoryReader
	Characters CharacterReader
	Catalog    *scenario.Catalog
	Rulebook   check.Rulebook
	Locale     language.Tag
	// Random is used by tests; production turns seed their own source.
	Random check.RandomSource
}

// Processor runs turns. It never fails a turn: collaborators that error are
// logged and skipped.
type Processor struct {
	deps Deps
}

// Outcome is what one turn produced.
type Outcome struct {
	Analysis      types.InputAnalysis
	Result        action.Result
	MemoryContext string
	// CheckResults is the text handed to the narrator.
	CheckResults string
}

func NewProcessor(deps Deps) *Processor {
	if deps.Catalog == nil {
		deps.Catalog = scenario.Default()
	}
	if deps.Rulebook.Overrides == nil {
		deps.Rulebook = check.DefaultRulebook()
	}
	return &Processor{deps: deps}
}

// Process analyses input for sessionID and executes the resulting plan.
func (p *Processor) Process(ctx context.Context, sessionID, input string) Outcome {
	rec := p.memory(ctx, sessionID)
	character := p.character(ctx, sessionID)

	memCtx, err := prompt.BuildMemoryContext(prompt.MemoryContext{Record: rec, Character: character})
	if err != nil {
		slog.Warn("failed to build memory context", "session_id", sessionID, "error", err.Error())
	}

	out := Outcome{MemoryContext: memCtx}
	out.Analysis = p.deps.Analyzer.Analyze(ctx, input, memCtx)
	if !out.Analysis.Allowed {
		out.CheckResults = "【系统】" + out.Analysis.Reason
		slog.Info("player input rejected", "session_id", sessionID, "intent", out.Analysis.Intent, "reason", out.Analysis.Reason)
		return out
	}

	overrides := map[string]int{}
	if p.deps.Overrides != nil {
		got, err := p.deps.Overrides.GetOverrides(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to load dc overrides", "session_id", sessionID, "error", err.Error())
		} else {
			overrides = got
		}
	}

	var vitals *types.Vitals
	if rec != nil {
		vitals = &rec.State.Vitals
	}

	out.Result = action.Execute(out.Analysis, action.Env{
		Catalog:   p.deps.Catalog,
		Rulebook:  p.deps.Rulebook,
		Character: character,
		Vitals:    vitals,
		Overrides: overrides,
		Random:    p.deps.Random,
		Locale:    p.deps.Locale,
	})
	out.CheckResults = strings.Join(out.Result.Lines, "\n")

	if len(out.Result.DCUpdates) > 0 && p.deps.Overrides != nil {
		if err := p.deps.Overrides.SaveOverrides(ctx, sessionID, out.Result.DCUpdates); err != nil {
			slog.Error("failed to save dc overrides", "session_id", sessionID, "error", err.Error())
		}
	}

	slog.Info("turn processed",
		"session_id", sessionID,
		"intent", out.Analysis.Intent,
		"checks", len(out.Result.Checks),
		"dc_updates", len(out.Result.DCUpdates),
	)
	return out
}

func (p *Processor) memory(ctx context.Context, sessionID string) *types.MemoryRecord {
	if p.deps.Memories == nil {
		return nil
	}
	rec, err := p.deps.Memories.GetMemory(ctx, sessionID)
	if err != nil {
		slog.Warn("failed to load memory", "session_id", sessionID, "error", err.Error())
		return nil
	}
	return rec
}

func (p *Processor) character(ctx context.Context, sessionID string) *types.Character {
	if p.deps.Characters == nil {
		return nil
	}
	c, err := p.deps.Characters.GetCharacter(ctx, sessionID)
	if err != nil {
		slog.Warn("failed to load character", "session_id", sessionID, "error", err.Error())
		return nil
	}
	return c
}
