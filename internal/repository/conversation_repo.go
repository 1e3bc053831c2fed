package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"gorm.io/gorm"
)

// ConversationRepo is the repository for direct conversations
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create creates a new conversation
func (r *ConversationRepo) Create(ctx context.Context, conv *entity.Conversation) error {
	if conv.CreatedAt == 0 {
		conv.CreatedAt = entity.NowUnixMilli()
	}
	return translateCreateErr(r.db.WithContext(ctx).Create(conv).Error)
}

// GetById gets a conversation by Id
func (r *ConversationRepo) GetById(ctx context.Context, conversationId string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", conversationId).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListForUser gets all conversations a user takes part in, newest first
func (r *ConversationRepo) ListForUser(ctx context.Context, userId string) ([]*entity.Conversation, error) {
	var convs []*entity.Conversation
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userId, userId).
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}
