package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
)

// RoomStore keeps rooms in memory
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*entity.Room
}

// NewRoomStore creates a new RoomStore
func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*entity.Room)}
}

// Ensure inserts the room unless it already exists
func (s *RoomStore) Ensure(_ context.Context, room *entity.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.Id]; ok {
		return nil
	}
	if room.CreatedAt == 0 {
		room.CreatedAt = entity.NowUnixMilli()
	}
	c := *room
	s.rooms[room.Id] = &c
	return nil
}

// GetById gets a room by Id
func (s *RoomStore) GetById(_ context.Context, roomId string) (*entity.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomId]
	if !ok {
		return nil, nil
	}
	c := *room
	return &c, nil
}

// ListByBuildings gets the rooms of the given buildings
func (s *RoomStore) ListByBuildings(_ context.Context, buildingIds []string) ([]*entity.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*entity.Room, 0, len(buildingIds))
	for _, buildingId := range buildingIds {
		if room, ok := s.rooms[entity.GenRoomId(buildingId)]; ok {
			c := *room
			rooms = append(rooms, &c)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].BuildingId < rooms[j].BuildingId })
	return rooms, nil
}

// ConversationStore keeps conversations in memory
type ConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*entity.Conversation
}

// NewConversationStore creates a new ConversationStore
func NewConversationStore() *ConversationStore {
	return &ConversationStore{convs: make(map[string]*entity.Conversation)}
}

// Create creates a new conversation
func (s *ConversationStore) Create(_ context.Context, conv *entity.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conv.Id]; ok {
		return errcode.ErrConflict
	}
	if conv.CreatedAt == 0 {
		conv.CreatedAt = entity.NowUnixMilli()
	}
	c := *conv
	s.convs[conv.Id] = &c
	return nil
}

// GetById gets a conversation by Id
func (s *ConversationStore) GetById(_ context.Context, conversationId string) (*entity.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[conversationId]
	if !ok {
		return nil, nil
	}
	c := *conv
	return &c, nil
}

// ListForUser gets all conversations a user takes part in, newest first
func (s *ConversationStore) ListForUser(_ context.Context, userId string) ([]*entity.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]*entity.Conversation, 0)
	for _, conv := range s.convs {
		if conv.HasParticipant(userId) {
			c := *conv
			convs = append(convs, &c)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		if convs[i].CreatedAt != convs[j].CreatedAt {
			return convs[i].CreatedAt > convs[j].CreatedAt
		}
		return convs[i].Id < convs[j].Id
	})
	return convs, nil
}
