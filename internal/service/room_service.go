package service

import (
	"context"
	"errors"
	"sort"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/repository"
	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// Parent is an authorized room or conversation
type Parent struct {
	entity.ParentRef
	Room         *entity.Room
	Conversation *entity.Conversation
}

// RoomService resolves rooms and conversations and who may use them
type RoomService struct {
	rooms     repository.RoomStore
	convs     repository.ConversationStore
	messages  repository.MessageStore
	cursors   repository.ReadCursorStore
	directory repository.Directory
	presence  *presence.Registry
	emitter   *emitter
}

// NewRoomService creates a new RoomService
func NewRoomService(repos *repository.Repositories, registry *presence.Registry, em *emitter) *RoomService {
	return &RoomService{
		rooms:     repos.Room,
		convs:     repos.Conversation,
		messages:  repos.Message,
		cursors:   repos.ReadCursor,
		directory: repos.Directory,
		presence:  registry,
		emitter:   em,
	}
}

// GetOrCreateRoom returns the room of a building, creating it on first use
func (s *RoomService) GetOrCreateRoom(ctx context.Context, buildingId string) (*entity.Room, error) {
	if !entity.ValidId(buildingId) {
		return nil, errcode.ErrInvalidParam
	}

	roomId := entity.GenRoomId(buildingId)
	room, err := s.rooms.GetById(ctx, roomId)
	if err != nil {
		return nil, internalErr(ctx, "get room", err, errcode.ErrInternalServer)
	}
	if room != nil {
		return room, nil
	}

	room = &entity.Room{Id: roomId, BuildingId: buildingId, CreatedAt: entity.NowUnixMilli()}
	if err := s.rooms.Ensure(ctx, room); err != nil {
		return nil, internalErr(ctx, "ensure room", err, errcode.ErrInternalServer)
	}
	// re-read so a concurrent creator's row wins
	stored, err := s.rooms.GetById(ctx, roomId)
	if err != nil {
		return nil, internalErr(ctx, "get room", err, errcode.ErrInternalServer)
	}
	if stored == nil {
		return room, nil
	}
	log.CtxDebug(ctx, "room ready: room_id=%s", roomId)
	return stored, nil
}

// GetOrCreateConversation returns the conversation of a pair within a building.
// created is true only for the call that inserted it.
func (s *RoomService) GetOrCreateConversation(ctx context.Context, userA, userB, buildingId string) (*entity.Conversation, bool, error) {
	if !entity.ValidId(userA) || !entity.ValidId(userB) || !entity.ValidId(buildingId) {
		return nil, false, errcode.ErrInvalidParam
	}
	if userA == userB {
		return nil, false, errcode.ErrSelfConversation
	}

	for _, userId := range []string{userA, userB} {
		ok, err := s.directory.IsMember(ctx, buildingId, userId)
		if err != nil {
			return nil, false, internalErr(ctx, "check membership", err, errcode.ErrInternalServer)
		}
		if !ok {
			return nil, false, errcode.ErrNotBuildingMember
		}
	}

	convId := entity.GenConversationId(buildingId, userA, userB)
	conv, err := s.convs.GetById(ctx, convId)
	if err != nil {
		return nil, false, internalErr(ctx, "get conversation", err, errcode.ErrInternalServer)
	}
	if conv != nil {
		return conv, false, nil
	}

	a, b := entity.SortPair(userA, userB)
	conv = &entity.Conversation{
		Id:         convId,
		BuildingId: buildingId,
		UserA:      a,
		UserB:      b,
		CreatedAt:  entity.NowUnixMilli(),
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		if !errors.Is(err, errcode.ErrConflict) {
			return nil, false, internalErr(ctx, "create conversation", err, errcode.ErrInternalServer)
		}
		existing, err := s.convs.GetById(ctx, convId)
		if err != nil || existing == nil {
			return nil, false, internalErr(ctx, "get conversation", err, errcode.ErrInternalServer)
		}
		return existing, false, nil
	}

	log.CtxInfo(ctx, "conversation created: conversation_id=%s", convId)
	return conv, true, nil
}

// Authorize resolves parentId for userId. Unknown parents are not found; existing
// parents the user is not part of are forbidden. A building member's room is created lazily.
func (s *RoomService) Authorize(ctx context.Context, userId, parentId string) (*Parent, error) {
	ref, ok := entity.ParseParentId(parentId)
	if !ok {
		return nil, errcode.ErrParentNotFound
	}

	switch ref.Kind {
	case entity.ParentRoom:
		room, err := s.rooms.GetById(ctx, parentId)
		if err != nil {
			return nil, internalErr(ctx, "get room", err, errcode.ErrInternalServer)
		}
		member, err := s.directory.IsMember(ctx, ref.BuildingId, userId)
		if err != nil {
			return nil, internalErr(ctx, "check membership", err, errcode.ErrInternalServer)
		}
		if room == nil {
			if !member {
				return nil, errcode.ErrParentNotFound
			}
			if room, err = s.GetOrCreateRoom(ctx, ref.BuildingId); err != nil {
				return nil, err
			}
		} else if !member {
			return nil, errcode.ErrNotParticipant
		}
		return &Parent{ParentRef: ref, Room: room}, nil

	default:
		conv, err := s.convs.GetById(ctx, parentId)
		if err != nil {
			return nil, internalErr(ctx, "get conversation", err, errcode.ErrInternalServer)
		}
		if conv == nil {
			return nil, errcode.ErrParentNotFound
		}
		if !conv.HasParticipant(userId) {
			return nil, errcode.ErrNotParticipant
		}
		return &Parent{ParentRef: ref, Conversation: conv}, nil
	}
}

// Participants returns the user ids allowed in p
func (s *RoomService) Participants(ctx context.Context, p *Parent) ([]string, error) {
	if p.Conversation != nil {
		return []string{p.Conversation.UserA, p.Conversation.UserB}, nil
	}
	members, err := s.directory.BuildingMembers(ctx, p.BuildingId)
	if err != nil {
		return nil, internalErr(ctx, "list building members", err, errcode.ErrInternalServer)
	}
	return members, nil
}

// ParentsFor returns every room and conversation id userId can receive events for
func (s *RoomService) ParentsFor(ctx context.Context, userId string) ([]string, error) {
	buildingIds, err := s.directory.BuildingsOf(ctx, userId)
	if err != nil {
		return nil, internalErr(ctx, "list buildings", err, errcode.ErrInternalServer)
	}
	convs, err := s.convs.ListForUser(ctx, userId)
	if err != nil {
		return nil, internalErr(ctx, "list conversations", err, errcode.ErrInternalServer)
	}

	parentIds := make([]string, 0, len(buildingIds)+len(convs))
	for _, buildingId := range buildingIds {
		parentIds = append(parentIds, entity.GenRoomId(buildingId))
	}
	for _, conv := range convs {
		parentIds = append(parentIds, conv.Id)
	}
	return parentIds, nil
}

// ListRoomsFor lists one room per building of userId with unread and participant counts
func (s *RoomService) ListRoomsFor(ctx context.Context, userId string) ([]*entity.RoomSummary, error) {
	buildingIds, err := s.directory.BuildingsOf(ctx, userId)
	if err != nil {
		return nil, internalErr(ctx, "list buildings", err, errcode.ErrInternalServer)
	}

	roomIds := make([]string, 0, len(buildingIds))
	for _, buildingId := range buildingIds {
		roomIds = append(roomIds, entity.GenRoomId(buildingId))
	}
	cursors, err := s.cursors.GetMany(ctx, userId, roomIds)
	if err != nil {
		return nil, internalErr(ctx, "get read cursors", err, errcode.ErrInternalServer)
	}

	result := make([]*entity.RoomSummary, 0, len(buildingIds))
	for _, buildingId := range buildingIds {
		room, err := s.GetOrCreateRoom(ctx, buildingId)
		if err != nil {
			return nil, err
		}
		members, err := s.directory.BuildingMembers(ctx, buildingId)
		if err != nil {
			return nil, internalErr(ctx, "list building members", err, errcode.ErrInternalServer)
		}
		unread, last, err := s.unreadAndLast(ctx, userId, room.Id, cursors[room.Id])
		if err != nil {
			return nil, err
		}
		result = append(result, &entity.RoomSummary{
			RoomId:            room.Id,
			BuildingId:        buildingId,
			ParticipantsCount: len(members),
			UnreadCount:       unread,
			LastMessage:       last,
			CreatedAt:         room.CreatedAt,
		})
	}
	return result, nil
}

// ListConversationsFor lists userId's conversations, most recent activity first
func (s *RoomService) ListConversationsFor(ctx context.Context, userId string) ([]*entity.ConversationSummary, error) {
	convs, err := s.convs.ListForUser(ctx, userId)
	if err != nil {
		return nil, internalErr(ctx, "list conversations", err, errcode.ErrInternalServer)
	}

	convIds := make([]string, 0, len(convs))
	peerIds := make([]string, 0, len(convs))
	for _, conv := range convs {
		convIds = append(convIds, conv.Id)
		peerIds = append(peerIds, conv.Peer(userId))
	}
	cursors, err := s.cursors.GetMany(ctx, userId, convIds)
	if err != nil {
		return nil, internalErr(ctx, "get read cursors", err, errcode.ErrInternalServer)
	}
	peers, err := s.presenceRecords(ctx, "", peerIds)
	if err != nil {
		return nil, err
	}

	result := make([]*entity.ConversationSummary, 0, len(convs))
	for i, conv := range convs {
		unread, last, err := s.unreadAndLast(ctx, userId, conv.Id, cursors[conv.Id])
		if err != nil {
			return nil, err
		}
		result = append(result, &entity.ConversationSummary{
			ConversationId: conv.Id,
			BuildingId:     conv.BuildingId,
			Peer:           peers[i],
			UnreadCount:    unread,
			LastMessage:    last,
			CreatedAt:      conv.CreatedAt,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return activityAt(result[i]) > activityAt(result[j])
	})
	return result, nil
}

func activityAt(s *entity.ConversationSummary) int64 {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.CreatedAt
}

// ListParticipants returns the participants of parentId with their presence
func (s *RoomService) ListParticipants(ctx context.Context, userId, parentId string) ([]*entity.PresenceRecord, error) {
	p, err := s.Authorize(ctx, userId, parentId)
	if err != nil {
		return nil, err
	}
	userIds, err := s.Participants(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.presenceRecords(ctx, parentId, userIds)
}

// StartConversation opens (or reopens) the conversation between userId and peerId.
// On creation both users are subscribed and notified with conversation.new.
func (s *RoomService) StartConversation(ctx context.Context, userId, peerId, buildingId string) (*entity.ConversationSummary, error) {
	conv, created, err := s.GetOrCreateConversation(ctx, userId, peerId, buildingId)
	if err != nil {
		return nil, err
	}

	if created {
		for _, uid := range []string{conv.UserA, conv.UserB} {
			s.presence.Subscribe(conv.Id, uid)
			summary, err := s.conversationSummary(ctx, uid, conv)
			if err != nil {
				log.CtxWarn(ctx, "build conversation summary failed: conversation_id=%s, user_id=%s, error=%v", conv.Id, uid, err)
				continue
			}
			s.emitter.toUser(uid, &entity.Event{Type: entity.EventConversationNew, ParentId: conv.Id, Data: summary})
		}
	}

	return s.conversationSummary(ctx, userId, conv)
}

func (s *RoomService) conversationSummary(ctx context.Context, userId string, conv *entity.Conversation) (*entity.ConversationSummary, error) {
	cursor, err := s.cursors.Get(ctx, userId, conv.Id)
	if err != nil {
		return nil, internalErr(ctx, "get read cursor", err, errcode.ErrInternalServer)
	}
	peers, err := s.presenceRecords(ctx, "", []string{conv.Peer(userId)})
	if err != nil {
		return nil, err
	}
	unread, last, err := s.unreadAndLast(ctx, userId, conv.Id, cursor)
	if err != nil {
		return nil, err
	}
	return &entity.ConversationSummary{
		ConversationId: conv.Id,
		BuildingId:     conv.BuildingId,
		Peer:           peers[0],
		UnreadCount:    unread,
		LastMessage:    last,
		CreatedAt:      conv.CreatedAt,
	}, nil
}

func (s *RoomService) unreadAndLast(ctx context.Context, userId, parentId string, cursor int64) (int64, *entity.MessageView, error) {
	unread, err := s.messages.CountAfter(ctx, parentId, cursor, userId)
	if err != nil {
		return 0, nil, internalErr(ctx, "count unread", err, errcode.ErrInternalServer)
	}
	latest, err := s.messages.ListBefore(ctx, parentId, 0, 1)
	if err != nil {
		return 0, nil, internalErr(ctx, "get last message", err, errcode.ErrInternalServer)
	}
	if len(latest) == 0 {
		return unread, nil, nil
	}
	return unread, latest[0].ToView(), nil
}

// presenceRecords joins userIds with the directory and the presence registry, keeping order
func (s *RoomService) presenceRecords(ctx context.Context, parentId string, userIds []string) ([]*entity.PresenceRecord, error) {
	users, err := s.directory.GetUsers(ctx, userIds)
	if err != nil {
		return nil, internalErr(ctx, "get users", err, errcode.ErrInternalServer)
	}
	byId := make(map[string]*entity.Identity, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}

	snapshot := s.presence.Snapshot(ctx, userIds)
	records := make([]*entity.PresenceRecord, 0, len(userIds))
	for i, userId := range userIds {
		rec := &entity.PresenceRecord{
			UserId:   userId,
			ParentId: parentId,
			IsOnline: snapshot[i].IsOnline,
			LastSeen: snapshot[i].LastSeen,
		}
		if u, ok := byId[userId]; ok {
			rec.DisplayName = u.DisplayName
			rec.Role = constant.NormalizeRole(u.Role)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Presence returns the presence of userIds
func (s *RoomService) Presence(ctx context.Context, userIds []string) ([]*entity.PresenceRecord, error) {
	return s.presenceRecords(ctx, "", userIds)
}
