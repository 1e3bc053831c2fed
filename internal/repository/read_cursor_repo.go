package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadCursorRepo is the repository for read cursors
type ReadCursorRepo struct {
	db *gorm.DB
}

// NewReadCursorRepo creates a new ReadCursorRepo
func NewReadCursorRepo(db *gorm.DB) *ReadCursorRepo {
	return &ReadCursorRepo{db: db}
}

// Get gets a user's cursor in a parent, 0 when never read
func (r *ReadCursorRepo) Get(ctx context.Context, userId, parentId string) (int64, error) {
	var cursor entity.ReadCursor
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND parent_id = ?", userId, parentId).
		First(&cursor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return cursor.LastReadMessageId, nil
}

// GetMany gets a user's cursors for several parents
func (r *ReadCursorRepo) GetMany(ctx context.Context, userId string, parentIds []string) (map[string]int64, error) {
	result := make(map[string]int64, len(parentIds))
	if len(parentIds) == 0 {
		return result, nil
	}

	var cursors []*entity.ReadCursor
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND parent_id IN ?", userId, parentIds).
		Find(&cursors).Error
	if err != nil {
		return nil, err
	}
	for _, c := range cursors {
		result[c.ParentId] = c.LastReadMessageId
	}
	return result, nil
}

// Advance upserts the cursor keeping the greatest value
func (r *ReadCursorRepo) Advance(ctx context.Context, userId, parentId string, upTo int64) error {
	now := entity.NowUnixMilli()
	cursor := &entity.ReadCursor{
		UserId:            userId,
		ParentId:          parentId,
		LastReadMessageId: upTo,
		UpdatedAt:         now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "parent_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_read_message_id": gorm.Expr("GREATEST(last_read_message_id, ?)", upTo),
			"updated_at":           now,
		}),
	}).Create(cursor).Error
}
