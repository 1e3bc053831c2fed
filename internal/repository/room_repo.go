package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepo is the repository for building rooms
type RoomRepo struct {
	db *gorm.DB
}

// NewRoomRepo creates a new RoomRepo
func NewRoomRepo(db *gorm.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Ensure inserts the room unless it already exists
func (r *RoomRepo) Ensure(ctx context.Context, room *entity.Room) error {
	if room.CreatedAt == 0 {
		room.CreatedAt = entity.NowUnixMilli()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(room).Error
}

// GetById gets a room by Id
func (r *RoomRepo) GetById(ctx context.Context, roomId string) (*entity.Room, error) {
	var room entity.Room
	err := r.db.WithContext(ctx).Where("id = ?", roomId).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// ListByBuildings gets the rooms of the given buildings
func (r *RoomRepo) ListByBuildings(ctx context.Context, buildingIds []string) ([]*entity.Room, error) {
	if len(buildingIds) == 0 {
		return []*entity.Room{}, nil
	}

	var rooms []*entity.Room
	err := r.db.WithContext(ctx).
		Where("building_id IN ?", buildingIds).
		Order("building_id ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
