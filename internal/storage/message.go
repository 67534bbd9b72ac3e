package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/project-keeper/internal/types"
)

// messageModel maps to the messages table.
type messageModel struct {
	ID        int    `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index:idx_messages_session_created,priority:1"`
	Role      string
	Content   string
	CreatedAt time.Time `gorm:"index:idx_messages_session_created,priority:2"`
}

func (messageModel) TableName() string {
	return "messages"
}

// MessageRepo accesses the session transcript.
type MessageRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db, now: time.Now}
}

// AppendMessage stores a transcript message. Roles are normalised to
// player/dm; unknown roles are rejected.
func (r *MessageRepo) AppendMessage(ctx context.Context, sessionID, role, content string) (*types.Message, error) {
	normalized := types.NormalizeRole(role)
	if normalized == "" {
		return nil, fmt.Errorf("unknown message role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content is empty")
	}
	record := messageModel{
		SessionID: sessionID,
		Role:      normalized,
		Content:   content,
		CreatedAt: r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	msg := messageFromModel(record)
	return &msg, nil
}

func (r *MessageRepo) ListUnprocessedMessages(ctx context.Context, sessionID string, since time.Time) ([]types.Message, error) {
	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC")
	if !since.IsZero() {
		query = query.Where("created_at > ?", since.UTC())
	}

	var records []messageModel
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	return results, nil
}

func messageFromModel(model messageModel) types.Message {
	return types.Message{
		ID:        model.ID,
		SessionID: model.SessionID,
		Role:      model.Role,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}
