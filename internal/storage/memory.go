package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/project-keeper/internal/types"
)

// memoryModel maps to the memories table. One row per session.
type memoryModel struct {
	SessionID       string `gorm:"primaryKey"`
	LastRound       int
	LastProcessedAt time.Time
	LongSummary     string
	RoundSummaries  datatypes.JSON
	State           datatypes.JSON
	UpdatedAt       time.Time
	Revision        int `gorm:"not null;default:0"`
}

func (memoryModel) TableName() string {
	return "memories"
}

// MemoryRepo accesses memory records.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func (r *MemoryRepo) GetMemory(ctx context.Context, sessionID string) (*types.MemoryRecord, error) {
	var record memoryModel
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return memoryFromModel(record)
}

// swapMemory writes rec if the stored revision still equals rec.Revision and
// bumps the stored revision. It returns types.ErrStaleMemory otherwise.
func (r *MemoryRepo) swapMemory(ctx context.Context, rec *types.MemoryRecord) error {
	if rec == nil || rec.SessionID == "" {
		return fmt.Errorf("memory record requires a session id")
	}
	record, err := memoryToModel(rec)
	if err != nil {
		return err
	}
	record.Revision = rec.Revision + 1

	db := r.db.WithContext(ctx)
	res := db.Model(&memoryModel{}).
		Where("session_id = ? AND revision = ?", rec.SessionID, rec.Revision).
		Updates(map[string]any{
			"last_round":        record.LastRound,
			"last_processed_at": record.LastProcessedAt,
			"long_summary":      record.LongSummary,
			"round_summaries":   record.RoundSummaries,
			"state":             record.State,
			"updated_at":        record.UpdatedAt,
			"revision":          record.Revision,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save memory: %w", res.Error)
	}
	if res.RowsAffected == 0 && rec.Revision == 0 {
		// 首次写入；同时插入时只有一方成功。
		res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			return fmt.Errorf("failed to insert memory: %w", res.Error)
		}
	}
	if res.RowsAffected == 0 {
		return types.ErrStaleMemory
	}
	return nil
}

func memoryToModel(rec *types.MemoryRecord) (memoryModel, error) {
	summaries, err := marshalJSON(rec.RoundSummaries, "[]")
	if err != nil {
		return memoryModel{}, fmt.Errorf("failed to encode round summaries: %w", err)
	}
	state, err := marshalJSON(rec.State, "{}")
	if err != nil {
		return memoryModel{}, fmt.Errorf("failed to encode world state: %w", err)
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return memoryModel{
		SessionID:       rec.SessionID,
		LastRound:       rec.LastRound,
		LastProcessedAt: rec.LastProcessedAt.UTC(),
		LongSummary:     rec.LongSummary,
		RoundSummaries:  summaries,
		State:           state,
		UpdatedAt:       updated.UTC(),
		Revision:        rec.Revision,
	}, nil
}

// ListPendingSessions returns sessions with transcript messages newer than
// their memory watermark.
func (r *MemoryRepo) ListPendingSessions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.session_id
		FROM messages m
		LEFT JOIN memories mem ON mem.session_id = m.session_id
		WHERE mem.session_id IS NULL OR m.created_at > mem.last_processed_at
		GROUP BY m.session_id
		ORDER BY MIN(m.created_at)
		LIMIT ?`, limit).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sessions: %w", err)
	}
	return ids, nil
}

func memoryFromModel(model memoryModel) (*types.MemoryRecord, error) {
	rec := &types.MemoryRecord{
		SessionID:       model.SessionID,
		LastRound:       model.LastRound,
		LastProcessedAt: model.LastProcessedAt,
		LongSummary:     model.LongSummary,
		UpdatedAt:       model.UpdatedAt,
		Revision:        model.Revision,
	}
	if err := unmarshalJSON(model.RoundSummaries, &rec.RoundSummaries); err != nil {
		return nil, fmt.Errorf("failed to decode round summaries: %w", err)
	}
	if err := unmarshalJSON(model.State, &rec.State); err != nil {
		return nil, fmt.Errorf("failed to decode world state: %w", err)
	}
	return rec, nil
}

// marshalJSON encodes value, using empty for nil values.
func marshalJSON(value any, empty string) (datatypes.JSON, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON(empty), nil
	}
	return datatypes.JSON(raw), nil
}

// unmarshalJSON decodes a JSON column into target.
func unmarshalJSON(data datatypes.JSON, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
