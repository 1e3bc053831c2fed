package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"gorm.io/gorm"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create creates a new message
func (r *MessageRepo) Create(ctx context.Context, msg *entity.Message) error {
	return translateCreateErr(r.db.WithContext(ctx).Create(msg).Error)
}

// Get gets a message by parent and id
func (r *MessageRepo) Get(ctx context.Context, parentId string, id int64) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND id = ?", parentId, id).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// GetByIds gets messages of a parent by id list
func (r *MessageRepo) GetByIds(ctx context.Context, parentId string, ids []int64) ([]*entity.Message, error) {
	if len(ids) == 0 {
		return []*entity.Message{}, nil
	}

	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND id IN ?", parentId, ids).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetByClientMsgId gets message by sender and client_msg_id (for idempotency check)
func (r *MessageRepo) GetByClientMsgId(ctx context.Context, parentId, senderId, clientMsgId string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND sender_id = ? AND client_msg_id = ?", parentId, senderId, clientMsgId).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// UpdateOverlay writes the mutable fields of a message
func (r *MessageRepo) UpdateOverlay(ctx context.Context, msg *entity.Message) error {
	return r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("parent_id = ? AND id = ?", msg.ParentId, msg.Id).
		Updates(map[string]interface{}{
			"content":    msg.Content,
			"file_url":   msg.FileUrl,
			"file_name":  msg.FileName,
			"file_size":  msg.FileSize,
			"is_edited":  msg.IsEdited,
			"is_deleted": msg.IsDeleted,
			"updated_at": msg.UpdatedAt,
		}).Error
}

// ListBefore gets a page of messages older than beforeId, newest first
func (r *MessageRepo) ListBefore(ctx context.Context, parentId string, beforeId int64, limit int) ([]*entity.Message, error) {
	query := r.db.WithContext(ctx).Where("parent_id = ?", parentId)
	if beforeId > 0 {
		query = query.Where("id < ?", beforeId)
	}

	var messages []*entity.Message
	err := query.Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListAfter gets messages newer than afterId, oldest first
func (r *MessageRepo) ListAfter(ctx context.Context, parentId string, afterId int64, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND id > ?", parentId, afterId).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MaxId gets the highest assigned id of a parent
func (r *MessageRepo) MaxId(ctx context.Context, parentId string) (int64, error) {
	var maxId int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Select("COALESCE(MAX(id), 0)").
		Where("parent_id = ?", parentId).
		Scan(&maxId).Error
	return maxId, err
}

// CountAfter counts messages after a given id that were not sent by excludeSenderId
func (r *MessageRepo) CountAfter(ctx context.Context, parentId string, afterId int64, excludeSenderId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("parent_id = ? AND id > ? AND sender_id <> ?", parentId, afterId, excludeSenderId).
		Count(&count).Error
	return count, err
}
