package service

import (
	"context"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/repository"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// ReadService maintains read cursors and unread counts
type ReadService struct {
	messages repository.MessageStore
	cursors  repository.ReadCursorStore
	rooms    *RoomService
	emitter  *emitter
}

// NewReadService creates a new ReadService
func NewReadService(repos *repository.Repositories, rooms *RoomService, em *emitter) *ReadService {
	return &ReadService{
		messages: repos.Message,
		cursors:  repos.ReadCursor,
		rooms:    rooms,
		emitter:  em,
	}
}

// MarkRead advances userId's cursor in parentId to upTo, clamped to the latest message.
// The cursor never moves backwards. Every session of the user receives unread.update.
func (s *ReadService) MarkRead(ctx context.Context, userId, parentId string, upTo int64) (*entity.UnreadInfo, error) {
	if upTo < 0 {
		return nil, errcode.ErrInvalidParam
	}
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return nil, err
	}

	maxId, err := s.messages.MaxId(ctx, parentId)
	if err != nil {
		return nil, internalErr(ctx, "get max id", err, errcode.ErrInternalServer)
	}
	if upTo > maxId {
		upTo = maxId
	}

	if err := s.cursors.Advance(ctx, userId, parentId, upTo); err != nil {
		return nil, internalErr(ctx, "advance read cursor", err, errcode.ErrInternalServer)
	}

	info, err := s.unreadInfo(ctx, userId, parentId)
	if err != nil {
		return nil, err
	}
	s.emitter.toUser(userId, &entity.Event{Type: entity.EventUnreadUpdate, ParentId: parentId, Data: info})

	log.CtxDebug(ctx, "read marked: user_id=%s, parent_id=%s, cursor=%d, unread=%d", userId, parentId, info.LastReadMessageId, info.UnreadCount)
	return info, nil
}

// UnreadCount returns the number of messages after userId's cursor not sent by userId
func (s *ReadService) UnreadCount(ctx context.Context, userId, parentId string) (int64, error) {
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return 0, err
	}
	info, err := s.unreadInfo(ctx, userId, parentId)
	if err != nil {
		return 0, err
	}
	return info.UnreadCount, nil
}

// RefreshUnread pushes the current unread count of parentId to each of userIds
func (s *ReadService) RefreshUnread(ctx context.Context, parentId string, userIds []string) {
	for _, userId := range userIds {
		info, err := s.unreadInfo(ctx, userId, parentId)
		if err != nil {
			log.CtxWarn(ctx, "refresh unread failed: user_id=%s, parent_id=%s, error=%v", userId, parentId, err)
			continue
		}
		s.emitter.toUser(userId, &entity.Event{Type: entity.EventUnreadUpdate, ParentId: parentId, Data: info})
	}
}

func (s *ReadService) unreadInfo(ctx context.Context, userId, parentId string) (*entity.UnreadInfo, error) {
	cursor, err := s.cursors.Get(ctx, userId, parentId)
	if err != nil {
		return nil, internalErr(ctx, "get read cursor", err, errcode.ErrInternalServer)
	}
	unread, err := s.messages.CountAfter(ctx, parentId, cursor, userId)
	if err != nil {
		return nil, internalErr(ctx, "count unread", err, errcode.ErrInternalServer)
	}
	return &entity.UnreadInfo{
		ParentId:          parentId,
		UnreadCount:       unread,
		LastReadMessageId: cursor,
	}, nil
}
