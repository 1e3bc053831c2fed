package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mbeoliero/buildingchat/internal/entity"
)

// Directory is a seedable in-memory user and membership directory
type Directory struct {
	mu      sync.RWMutex
	users   map[string]*entity.Identity
	members map[string]map[string]struct{} // building -> users
}

// NewDirectory creates an empty Directory
func NewDirectory() *Directory {
	return &Directory{
		users:   make(map[string]*entity.Identity),
		members: make(map[string]map[string]struct{}),
	}
}

// AddUser registers or replaces a user
func (d *Directory) AddUser(user *entity.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := *user
	d.users[user.Id] = &c
}

// AddMember adds userId to a building
func (d *Directory) AddMember(buildingId, userId string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.members[buildingId]
	if !ok {
		set = make(map[string]struct{})
		d.members[buildingId] = set
	}
	set[userId] = struct{}{}
}

// RemoveMember removes userId from a building
func (d *Directory) RemoveMember(buildingId, userId string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members[buildingId], userId)
}

// GetUser gets a user by Id
func (d *Directory) GetUser(_ context.Context, userId string) (*entity.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userId]
	if !ok {
		return nil, nil
	}
	c := *user
	return &c, nil
}

// GetUsers gets users by Id list, skipping unknown ones
func (d *Directory) GetUsers(_ context.Context, userIds []string) ([]*entity.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]*entity.Identity, 0, len(userIds))
	for _, id := range userIds {
		if user, ok := d.users[id]; ok {
			c := *user
			users = append(users, &c)
		}
	}
	return users, nil
}

// BuildingsOf gets the buildings a user belongs to
func (d *Directory) BuildingsOf(_ context.Context, userId string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	buildingIds := make([]string, 0)
	for buildingId, set := range d.members {
		if _, ok := set[userId]; ok {
			buildingIds = append(buildingIds, buildingId)
		}
	}
	sort.Strings(buildingIds)
	return buildingIds, nil
}

// BuildingMembers gets the user Ids of a building
func (d *Directory) BuildingMembers(_ context.Context, buildingId string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	userIds := make([]string, 0, len(d.members[buildingId]))
	for userId := range d.members[buildingId] {
		userIds = append(userIds, userId)
	}
	sort.Strings(userIds)
	return userIds, nil
}

// IsMember checks whether a user belongs to a building
func (d *Directory) IsMember(_ context.Context, buildingId, userId string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.members[buildingId][userId]
	return ok, nil
}
