package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/easeaico/project-keeper/internal/types"
)

// DefaultBatchSize is the number of rounds sent to the model per call.
const DefaultBatchSize = 4

var tracer = otel.Tracer("github.com/easeaico/project-keeper/internal/memory")

// MemoryRepo loads the per-session memory record.
type MemoryRepo interface {
	// GetMemory returns nil, nil when the session has no record yet.
	GetMemory(ctx context.Context, sessionID string) (*types.MemoryRecord, error)
}

// MessageRepo reads the transcript.
type MessageRepo interface {
	// ListUnprocessedMessages returns messages created strictly after since.
	ListUnprocessedMessages(ctx context.Context, sessionID string, since time.Time) ([]types.Message, error)
}

// CharacterRepo reads the investigator bound to a session.
type CharacterRepo interface {
	// GetCharacter returns nil, nil when the session has no character.
	GetCharacter(ctx context.Context, sessionID string) (*types.Character, error)
}

// Committer applies the writes of one pass in a single transaction. It
// returns types.ErrStaleMemory when the stored revision is no longer the one
// the pass read.
type Committer interface {
	CommitRefresh(ctx context.Context, c types.RefreshCommit) error
}

// RoundArchiver receives the summaries of every processed batch.
type RoundArchiver interface {
	Store(ctx context.Context, sessionID string, summaries []types.RoundSummary, d types.WorldStateDelta) error
}

// Deps are the collaborators of a Pipeline. Archiver is optional.
type Deps struct {
	Memories   MemoryRepo
	Messages   MessageRepo
	Characters CharacterRepo
	Commits    Committer
	Compressor Compressor
	Archiver   RoundArchiver
	BatchSize  int
}

// Pipeline runs one compression pass for a session.
type Pipeline struct {
	memories   MemoryRepo
	messages   MessageRepo
	characters CharacterRepo
	commits    Committer
	compressor Compressor
	archiver   RoundArchiver
	batchSize  int
}

// RefreshReport describes what a pass did.
type RefreshReport struct {
	Rounds           int
	Batches          int
	Fallbacks        int
	Folded           int
	NotesFolded      int
	MapUpdated       bool
	CharacterUpdated bool
	Pending          bool
	// Stale is set when another pass committed first and this one was dropped.
	Stale     bool
	LastRound int
}

type archivedBatch struct {
	summaries []types.RoundSummary
	delta     types.WorldStateDelta
}

// NewPipeline creates a Pipeline.
func NewPipeline(d Deps) *Pipeline {
	size := d.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Pipeline{
		memories:   d.Memories,
		messages:   d.Messages,
		characters: d.Characters,
		commits:    d.Commits,
		compressor: d.Compressor,
		archiver:   d.Archiver,
		batchSize:  size,
	}
}

// Refresh processes the transcript after the stored watermark. Model failures
// fall back to truncated summaries. All writes are committed together: a
// failed commit returns an error and changes nothing, so the same rounds are
// processed again. A pass that loses to a concurrent one is dropped.
func (p *Pipeline) Refresh(ctx context.Context, sessionID string) (report RefreshReport, err error) {
	ctx, span := tracer.Start(ctx, "memory.refresh",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("memory.rounds", report.Rounds),
			attribute.Int("memory.fallbacks", report.Fallbacks),
			attribute.Bool("memory.stale", report.Stale),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rec, err := p.memories.GetMemory(ctx, sessionID)
	if err != nil {
		return report, fmt.Errorf("failed to load memory: %w", err)
	}
	if rec == nil {
		rec = &types.MemoryRecord{SessionID: sessionID}
	}

	messages, err := p.messages.ListUnprocessedMessages(ctx, sessionID, rec.LastProcessedAt)
	if err != nil {
		return report, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(messages) == 0 {
		report.LastRound = rec.LastRound
		return report, nil
	}

	var character *types.Character
	if p.characters != nil {
		character, err = p.characters.GetCharacter(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to load character, continuing without it", "session_id", sessionID, "error", err.Error())
			character = nil
		}
	}
	if character != nil {
		rec.State.Vitals = SeedVitals(rec.State.Vitals, character.BaselineVitals())
	}

	buckets := BucketRounds(messages, rec.LastRound)
	report.Pending = buckets.Pending != nil

	mapText, hasMap := LatestMap(messages)
	if hasMap && mapText != rec.State.MapText {
		rec.State.MapText = mapText
		report.MapUpdated = true
	}

	if len(buckets.Complete) == 0 && !report.MapUpdated {
		report.LastRound = rec.LastRound
		return report, nil
	}

	var lists types.CharacterLists
	if character != nil {
		lists = types.CharacterLists{Inventory: character.Inventory, Buffs: character.Buffs, Debuffs: character.Debuffs}
	}

	var archived []archivedBatch
	for _, batch := range Batches(buckets.Complete, p.batchSize) {
		res := p.compress(ctx, sessionID, rec, batch)
		summaries := CompleteSummaries(batch, res.Summaries)
		report.Fallbacks += countFallbacks(batch, res.Summaries)

		rec.State = ApplyDelta(rec.State, res.Delta)
		if character != nil {
			var changed bool
			lists, changed = ApplyCharacterLists(lists, res.Delta)
			report.CharacterUpdated = report.CharacterUpdated || changed
		}
		rec.RoundSummaries = AppendWindow(rec.RoundSummaries, summaries)
		rec.LastRound = batch[len(batch)-1].Index

		archived = append(archived, archivedBatch{summaries: summaries, delta: res.Delta})
		report.Batches++
		report.Rounds += len(batch)
	}

	report.Folded = len(Rotate(ctx, p.compressor, rec))
	if len(buckets.Complete) > 0 {
		rec.LastProcessedAt = buckets.Watermark
	}
	rec.UpdatedAt = time.Now()
	report.LastRound = rec.LastRound

	report.NotesFolded = FoldNotes(rec)

	commit := types.RefreshCommit{Record: rec}
	if report.CharacterUpdated {
		commit.CharacterID = character.ID
		commit.Lists = &lists
	}
	if report.MapUpdated {
		commit.Map = &types.MapVersion{SessionID: sessionID, RoundIndex: rec.LastRound, Content: mapText}
	}
	if err := p.commits.CommitRefresh(ctx, commit); err != nil {
		if errors.Is(err, types.ErrStaleMemory) {
			slog.Info("memory committed by another pass, dropping this one", "session_id", sessionID, "revision", rec.Revision)
			report.Stale = true
			return report, nil
		}
		return report, fmt.Errorf("failed to commit memory: %w", err)
	}

	if p.archiver != nil {
		for _, b := range archived {
			if err := p.archiver.Store(ctx, sessionID, b.summaries, b.delta); err != nil {
				slog.Error("failed to archive rounds", "session_id", sessionID, "error", err.Error())
			}
		}
	}

	slog.Info("memory refreshed",
		"session_id", sessionID,
		"rounds", report.Rounds,
		"batches", report.Batches,
		"fallbacks", report.Fallbacks,
		"folded", report.Folded,
		"last_round", report.LastRound,
		"map_updated", report.MapUpdated,
	)
	return report, nil
}

func (p *Pipeline) compress(ctx context.Context, sessionID string, rec *types.MemoryRecord, batch []Round) CompressResult {
	if p.compressor == nil {
		return CompressResult{}
	}
	res, err := p.compressor.CompressRounds(ctx, CompressInput{
		ShortSummary: rec.ShortSummary(),
		State:        rec.State,
		Rounds:       batch,
	})
	if err != nil {
		slog.Warn("failed to compress rounds, using fallback summaries",
			"session_id", sessionID,
			"from_round", batch[0].Index,
			"to_round", batch[len(batch)-1].Index,
			"error", err.Error(),
		)
		return CompressResult{}
	}
	return res
}

func countFallbacks(batch []Round, fromModel []types.RoundSummary) int {
	have := make(map[int]bool, len(fromModel))
	for _, s := range fromModel {
		if s.Summary != "" {
			have[s.Round] = true
		}
	}
	n := 0
	for _, r := range batch {
		if !have[r.Index] {
			n++
		}
	}
	return n
}
