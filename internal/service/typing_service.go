package service

import (
	"context"
	"time"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/typing"
)

// TypingService turns typing intents into typing.start and typing.stop broadcasts
type TypingService struct {
	rooms   *RoomService
	tracker *typing.Tracker
	emitter *emitter
}

// NewTypingService creates a new TypingService
func NewTypingService(rooms *RoomService, tracker *typing.Tracker, em *emitter) *TypingService {
	return &TypingService{rooms: rooms, tracker: tracker, emitter: em}
}

// Start marks userId as typing; only the first start within the TTL is broadcast
func (s *TypingService) Start(ctx context.Context, userId, parentId string) error {
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return err
	}
	if s.tracker.Set(parentId, userId) {
		s.broadcast(entity.EventTypingStart, parentId, userId)
	}
	return nil
}

// Stop clears userId's indicator and broadcasts typing.stop if it was active
func (s *TypingService) Stop(ctx context.Context, userId, parentId string) error {
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return err
	}
	if s.tracker.Clear(parentId, userId) {
		s.broadcast(entity.EventTypingStop, parentId, userId)
	}
	return nil
}

// ClearUser stops every indicator of userId, used when a session ends
func (s *TypingService) ClearUser(userId string) {
	for _, parentId := range s.tracker.ClearUser(userId) {
		s.broadcast(entity.EventTypingStop, parentId, userId)
	}
}

// Active returns the users typing in parentId
func (s *TypingService) Active(parentId string) []string {
	return s.tracker.Active(parentId)
}

// Run sweeps expired indicators until ctx is done
func (s *TypingService) Run(ctx context.Context, interval time.Duration) {
	s.tracker.Run(ctx, interval, func(e typing.Expired) {
		s.broadcast(entity.EventTypingStop, e.ParentId, e.UserId)
	})
}

func (s *TypingService) broadcast(eventType, parentId, userId string) {
	s.emitter.toParent(parentId, &entity.Event{
		Type:     eventType,
		ParentId: parentId,
		Data:     &entity.TypingInfo{ParentId: parentId, UserId: userId},
	})
}
