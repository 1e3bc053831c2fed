package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"gorm.io/gorm"
)

// DirectoryRepo reads users and building membership from the host application's tables
type DirectoryRepo struct {
	db *gorm.DB
}

// NewDirectoryRepo creates a new DirectoryRepo
func NewDirectoryRepo(db *gorm.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// GetUser gets a user by Id
func (r *DirectoryRepo) GetUser(ctx context.Context, userId string) (*entity.Identity, error) {
	var user entity.Identity
	err := r.db.WithContext(ctx).Where("id = ?", userId).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUsers gets users by Id list
func (r *DirectoryRepo) GetUsers(ctx context.Context, userIds []string) ([]*entity.Identity, error) {
	if len(userIds) == 0 {
		return []*entity.Identity{}, nil
	}

	var users []*entity.Identity
	err := r.db.WithContext(ctx).Where("id IN ?", userIds).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// BuildingsOf gets the buildings a user belongs to
func (r *DirectoryRepo) BuildingsOf(ctx context.Context, userId string) ([]string, error) {
	var buildingIds []string
	err := r.db.WithContext(ctx).
		Model(&entity.BuildingMember{}).
		Where("user_id = ?", userId).
		Order("building_id ASC").
		Pluck("building_id", &buildingIds).Error
	if err != nil {
		return nil, err
	}
	return buildingIds, nil
}

// BuildingMembers gets the user Ids of a building
func (r *DirectoryRepo) BuildingMembers(ctx context.Context, buildingId string) ([]string, error) {
	var userIds []string
	err := r.db.WithContext(ctx).
		Model(&entity.BuildingMember{}).
		Where("building_id = ?", buildingId).
		Order("user_id ASC").
		Pluck("user_id", &userIds).Error
	if err != nil {
		return nil, err
	}
	return userIds, nil
}

// IsMember checks whether a user belongs to a building
func (r *DirectoryRepo) IsMember(ctx context.Context, buildingId, userId string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.BuildingMember{}).
		Where("building_id = ? AND user_id = ?", buildingId, userId).
		Count(&count).Error
	return count > 0, err
}
