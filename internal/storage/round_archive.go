package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/project-keeper/internal/types"
)

// roundArchiveModel maps to the round_archive table.
type roundArchiveModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID string `gorm:"index"`
	Round     int
	Summary   string
	// Salience is a 0-1 importance score, used in ranking.
	Salience float64 `gorm:"column:salience_score"`
	// Embedding is only populated on postgres.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
}

func (roundArchiveModel) TableName() string {
	return "round_archive"
}

// RoundArchiveRepo stores archived round summaries.
type RoundArchiveRepo struct {
	db      *gorm.DB
	vectors bool
}

// NewRoundArchiveRepo returns a RoundArchiveRepo. Similarity search needs
// pgvector; without it search falls back to the newest rounds.
func NewRoundArchiveRepo(db *gorm.DB, vectors bool) *RoundArchiveRepo {
	return &RoundArchiveRepo{db: db, vectors: vectors}
}

func (r *RoundArchiveRepo) AddRounds(ctx context.Context, rounds []types.ArchivedRound) error {
	if len(rounds) == 0 {
		return nil
	}
	records := make([]roundArchiveModel, 0, len(rounds))
	for _, round := range rounds {
		var vector *pgvector.Vector
		if r.vectors && len(round.Embedding) > 0 {
			v := pgvector.NewVector(round.Embedding)
			vector = &v
		}
		created := round.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		records = append(records, roundArchiveModel{
			ID:        uuid.NewString(),
			SessionID: round.SessionID,
			Round:     round.Round,
			Summary:   round.Summary,
			Salience:  round.Salience,
			Embedding: vector,
			CreatedAt: created.UTC(),
		})
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to insert archived rounds: %w", err)
	}
	return nil
}

func (r *RoundArchiveRepo) SearchRounds(ctx context.Context, sessionID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedRound, error) {
	if topK <= 0 {
		topK = 5
	}
	if !r.vectors || len(embedding) == 0 {
		return r.recent(ctx, sessionID, topK)
	}

	// Filter by cosine similarity and then re-rank by salience.
	var results []types.RetrievedRound
	err := r.db.WithContext(ctx).Raw(`
		SELECT round, summary, created_at,
		       1 - (embedding <=> ?) AS similarity,
		       COALESCE(salience_score, 0) AS salience
		FROM round_archive
		WHERE session_id = ? AND embedding IS NOT NULL AND 1 - (embedding <=> ?) > ?
		ORDER BY (0.85 * (1 - (embedding <=> ?)) + 0.15 * COALESCE(salience_score, 0)) DESC
		LIMIT ?`,
		pgvector.NewVector(embedding), sessionID, pgvector.NewVector(embedding), threshold, pgvector.NewVector(embedding), topK,
	).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search archived rounds: %w", err)
	}
	return results, nil
}

func (r *RoundArchiveRepo) recent(ctx context.Context, sessionID string, limit int) ([]types.RetrievedRound, error) {
	var records []roundArchiveModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("round DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query archived rounds: %w", err)
	}
	results := make([]types.RetrievedRound, 0, len(records))
	for _, m := range records {
		results = append(results, types.RetrievedRound{
			Round:     m.Round,
			Summary:   m.Summary,
			Salience:  m.Salience,
			CreatedAt: m.CreatedAt,
		})
	}
	return results, nil
}
