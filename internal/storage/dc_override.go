package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dcOverrideModel stores the DCs a session has settled on per target.
type dcOverrideModel struct {
	SessionID string `gorm:"primaryKey"`
	Target    string `gorm:"primaryKey"`
	DC        int    `gorm:"column:dc"`
	UpdatedAt time.Time
}

func (dcOverrideModel) TableName() string {
	return "dc_overrides"
}

// DCOverrideRepo accesses per-session DC overrides.
type DCOverrideRepo struct {
	db *gorm.DB
}

// NewDCOverrideRepo returns a DCOverrideRepo.
func NewDCOverrideRepo(db *gorm.DB) *DCOverrideRepo {
	return &DCOverrideRepo{db: db}
}

func (r *DCOverrideRepo) GetOverrides(ctx context.Context, sessionID string) (map[string]int, error) {
	var records []dcOverrideModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query dc overrides: %w", err)
	}
	out := make(map[string]int, len(records))
	for _, rec := range records {
		out[rec.Target] = rec.DC
	}
	return out, nil
}

// SaveOverrides upserts every target in updates.
func (r *DCOverrideRepo) SaveOverrides(ctx context.Context, sessionID string, updates map[string]int) error {
	if len(updates) == 0 {
		return nil
	}
	now := time.Now().UTC()
	records := make([]dcOverrideModel, 0, len(updates))
	for target, dc := range updates {
		records = append(records, dcOverrideModel{SessionID: sessionID, Target: target, DC: dc, UpdatedAt: now})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "target"}},
		DoUpdates: clause.AssignmentColumns([]string{"dc", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("failed to save dc overrides: %w", err)
	}
	return nil
}
