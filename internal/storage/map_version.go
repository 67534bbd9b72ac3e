package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easeaico/project-keeper/internal/types"
)

// mapVersionModel maps to the map_versions table.
type mapVersionModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	SessionID  string `gorm:"index"`
	RoundIndex int
	Content    string
	CreatedAt  time.Time
}

func (mapVersionModel) TableName() string {
	return "map_versions"
}

// MapVersionRepo archives scene maps.
type MapVersionRepo struct {
	db *gorm.DB
}

// NewMapVersionRepo returns a MapVersionRepo.
func NewMapVersionRepo(db *gorm.DB) *MapVersionRepo {
	return &MapVersionRepo{db: db}
}

func (r *MapVersionRepo) AppendMapVersion(ctx context.Context, sessionID string, round int, content string) error {
	record := mapVersionModel{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		RoundIndex: round,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert map version: %w", err)
	}
	return nil
}

// ListMapVersions returns the map history of a session, oldest first.
func (r *MapVersionRepo) ListMapVersions(ctx context.Context, sessionID string) ([]types.MapVersion, error) {
	var records []mapVersionModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("round_index ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query map versions: %w", err)
	}
	results := make([]types.MapVersion, 0, len(records))
	for _, m := range records {
		results = append(results, types.MapVersion{
			ID:         m.ID,
			SessionID:  m.SessionID,
			RoundIndex: m.RoundIndex,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		})
	}
	return results, nil
}
