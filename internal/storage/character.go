package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/project-keeper/internal/types"
)

type characterModel struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	SessionID  string `gorm:"index"`
	Name       string
	Attributes datatypes.JSON
	Skills     datatypes.JSON
	Luck       int
	Inventory  datatypes.JSON
	Buffs      datatypes.JSON
	Debuffs    datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterRepo accesses investigator sheets.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo returns a CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func (r *CharacterRepo) GetByID(ctx context.Context, id int) (*types.Character, error) {
	var model characterModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	return characterFromModel(model)
}

// GetCharacter returns the character bound to sessionID, or nil.
func (r *CharacterRepo) GetCharacter(ctx context.Context, sessionID string) (*types.Character, error) {
	var model characterModel
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character by session: %w", err)
	}
	return characterFromModel(model)
}

// BindSession attaches an unbound character to sessionID.
func (r *CharacterRepo) BindSession(ctx context.Context, id int, sessionID string) error {
	res := r.db.WithContext(ctx).
		Model(&characterModel{}).
		Where("id = ?", id).
		Where("session_id = ? OR session_id IS NULL OR session_id = ?", "", sessionID).
		Update("session_id", sessionID)
	if res.Error != nil {
		return fmt.Errorf("failed to bind character: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("character %d is missing or bound to another session", id)
	}
	return nil
}

// CreateCharacter inserts c and sets its ID.
func (r *CharacterRepo) CreateCharacter(ctx context.Context, c *types.Character) error {
	model, err := characterToModel(c)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	c.ID = model.ID
	return nil
}

// UpdateCharacterState rewrites the lists owned by the memory pipeline.
func (r *CharacterRepo) UpdateCharacterState(ctx context.Context, id int, lists types.CharacterLists) error {
	inventory, err := marshalJSON(lists.Inventory, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	buffs, err := marshalJSON(lists.Buffs, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode buffs: %w", err)
	}
	debuffs, err := marshalJSON(lists.Debuffs, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode debuffs: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Model(&characterModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"inventory":  inventory,
			"buffs":      buffs,
			"debuffs":    debuffs,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("failed to update character state: %w", err)
	}
	return nil
}

func characterToModel(c *types.Character) (characterModel, error) {
	if c == nil {
		return characterModel{}, fmt.Errorf("character cannot be nil")
	}
	attrs, err := marshalJSON(c.Attributes, "{}")
	if err != nil {
		return characterModel{}, fmt.Errorf("failed to encode attributes: %w", err)
	}
	skills, err := marshalJSON(c.Skills, "{}")
	if err != nil {
		return characterModel{}, fmt.Errorf("failed to encode skills: %w", err)
	}
	inventory, err := marshalJSON(c.Inventory, "[]")
	if err != nil {
		return characterModel{}, fmt.Errorf("failed to encode inventory: %w", err)
	}
	buffs, err := marshalJSON(c.Buffs, "[]")
	if err != nil {
		return characterModel{}, fmt.Errorf("failed to encode buffs: %w", err)
	}
	debuffs, err := marshalJSON(c.Debuffs, "[]")
	if err != nil {
		return characterModel{}, fmt.Errorf("failed to encode debuffs: %w", err)
	}
	return characterModel{
		ID:         c.ID,
		SessionID:  c.SessionID,
		Name:       c.Name,
		Attributes: attrs,
		Skills:     skills,
		Luck:       c.Luck,
		Inventory:  inventory,
		Buffs:      buffs,
		Debuffs:    debuffs,
	}, nil
}

func characterFromModel(model characterModel) (*types.Character, error) {
	c := &types.Character{
		ID:        model.ID,
		SessionID: model.SessionID,
		Name:      model.Name,
		Luck:      model.Luck,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	// Old sheets store skills as booleans; SkillValue accepts both.
	if err := unmarshalJSON(model.Skills, &c.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills: %w", err)
	}
	if err := unmarshalJSON(model.Attributes, &c.Attributes); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if err := unmarshalJSON(model.Inventory, &c.Inventory); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	if err := unmarshalJSON(model.Buffs, &c.Buffs); err != nil {
		return nil, fmt.Errorf("failed to decode buffs: %w", err)
	}
	if err := unmarshalJSON(model.Debuffs, &c.Debuffs); err != nil {
		return nil, fmt.Errorf("failed to decode debuffs: %w", err)
	}
	return c, nil
}
