package repository

import (
	"context"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"gorm.io/gorm"
)

// ReactionRepo is the repository for message reactions
type ReactionRepo struct {
	db *gorm.DB
}

// NewReactionRepo creates a new ReactionRepo
func NewReactionRepo(db *gorm.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Toggle deletes the reaction row if present, otherwise inserts it, in one transaction
func (r *ReactionRepo) Toggle(ctx context.Context, reaction *entity.Reaction) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("parent_id = ? AND message_id = ? AND emoji = ? AND user_id = ?",
				reaction.ParentId, reaction.MessageId, reaction.Emoji, reaction.UserId).
			Delete(&entity.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		if reaction.CreatedAt == 0 {
			reaction.CreatedAt = entity.NowUnixMilli()
		}
		if err := tx.Create(reaction).Error; err != nil {
			return translateCreateErr(err)
		}
		added = true
		return nil
	})
	return added, err
}

// ListByMessages gets all reactions of the given messages
func (r *ReactionRepo) ListByMessages(ctx context.Context, parentId string, messageIds []int64) ([]*entity.Reaction, error) {
	if len(messageIds) == 0 {
		return []*entity.Reaction{}, nil
	}

	var reactions []*entity.Reaction
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND message_id IN ?", parentId, messageIds).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
