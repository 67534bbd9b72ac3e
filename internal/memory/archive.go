package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/project-keeper/internal/types"
)

// Recall ranking weights.
const (
	similarityWeight = 0.85
	salienceWeight   = 0.15
	embedConcurrency = 4
)

// ArchiveRepo persists round summaries for recall.
type ArchiveRepo interface {
	AddRounds(ctx context.Context, rounds []types.ArchivedRound) error
	// SearchRounds returns candidates for sessionID. A nil embedding asks for
	// the most recent rounds instead of a similarity search.
	SearchRounds(ctx context.Context, sessionID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedRound, error)
}

// Archive stores processed rounds with an embedding and a salience score.
type Archive struct {
	embedder            Embedder
	repo                ArchiveRepo
	topK                int
	similarityThreshold float64
}

// NewArchive creates an Archive. embedder may be nil, in which case rounds
// are stored without vectors and recall falls back to recency.
func NewArchive(embedder Embedder, repo ArchiveRepo, topK int, threshold float64) *Archive {
	if topK <= 0 {
		topK = 5
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Archive{
		embedder:            embedder,
		repo:                repo,
		topK:                topK,
		similarityThreshold: threshold,
	}
}

// Store archives summaries. A failed embedding is logged and the round is
// stored without a vector.
func (a *Archive) Store(ctx context.Context, sessionID string, summaries []types.RoundSummary, d types.WorldStateDelta) error {
	if len(summaries) == 0 {
		return nil
	}
	now := time.Now()
	rounds := make([]types.ArchivedRound, len(summaries))
	for i, s := range summaries {
		rounds[i] = types.ArchivedRound{
			SessionID: sessionID,
			Round:     s.Round,
			Summary:   s.Summary,
			Salience:  ComputeSalience(s, d),
			CreatedAt: now,
		}
	}

	if a.embedder != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(embedConcurrency)
		for i := range rounds {
			g.Go(func() error {
				vec, err := a.embedder.EmbedDocument(gctx, rounds[i].Summary)
				if err != nil {
					slog.Warn("failed to embed round summary", "session_id", sessionID, "round", rounds[i].Round, "error", err.Error())
					return nil
				}
				rounds[i].Embedding = vec
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := a.repo.AddRounds(ctx, rounds); err != nil {
		return fmt.Errorf("failed to archive rounds: %w", err)
	}
	return nil
}

// Recall returns up to topK archived rounds relevant to query.
func (a *Archive) Recall(ctx context.Context, sessionID, query string) ([]types.RetrievedRound, error) {
	query = strings.TrimSpace(query)
	if sessionID == "" || query == "" {
		return nil, nil
	}

	var vec []float32
	if a.embedder != nil {
		var err error
		vec, err = a.embedder.EmbedQuery(ctx, query)
		if err != nil {
			slog.Warn("failed to embed recall query, using recent rounds", "session_id", sessionID, "error", err.Error())
			vec = nil
		}
	}

	found, err := a.repo.SearchRounds(ctx, sessionID, vec, a.topK, a.similarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search archived rounds: %w", err)
	}
	RankRecalled(found)
	if len(found) > a.topK {
		found = found[:a.topK]
	}
	return found, nil
}

// RankRecalled orders rounds by weighted similarity and salience, breaking
// ties by round number, newest first.
func RankRecalled(rounds []types.RetrievedRound) {
	sort.SliceStable(rounds, func(i, j int) bool {
		si, sj := recallScore(rounds[i]), recallScore(rounds[j])
		if si != sj {
			return si > sj
		}
		return rounds[i].Round > rounds[j].Round
	})
}

func recallScore(r types.RetrievedRound) float64 {
	return similarityWeight*r.Similarity + salienceWeight*r.Salience
}
