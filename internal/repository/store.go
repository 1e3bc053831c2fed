package repository

import (
	"context"

	"github.com/mbeoliero/buildingchat/internal/entity"
)

// Lookups return (nil, nil) when the row does not exist.
// Create methods return errcode.ErrConflict when a unique key is already taken.

// RoomStore persists one room per building
type RoomStore interface {
	Ensure(ctx context.Context, room *entity.Room) error
	GetById(ctx context.Context, roomId string) (*entity.Room, error)
	ListByBuildings(ctx context.Context, buildingIds []string) ([]*entity.Room, error)
}

// ConversationStore persists direct conversations
type ConversationStore interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetById(ctx context.Context, conversationId string) (*entity.Conversation, error)
	ListForUser(ctx context.Context, userId string) ([]*entity.Conversation, error)
}

// MessageStore is the append-only log of each parent plus its mutable overlay
type MessageStore interface {
	Create(ctx context.Context, msg *entity.Message) error
	Get(ctx context.Context, parentId string, id int64) (*entity.Message, error)
	GetByIds(ctx context.Context, parentId string, ids []int64) ([]*entity.Message, error)
	GetByClientMsgId(ctx context.Context, parentId, senderId, clientMsgId string) (*entity.Message, error)
	UpdateOverlay(ctx context.Context, msg *entity.Message) error
	// ListBefore returns up to limit messages with id < beforeId, newest first; beforeId <= 0 starts at the tip
	ListBefore(ctx context.Context, parentId string, beforeId int64, limit int) ([]*entity.Message, error)
	// ListAfter returns up to limit messages with id > afterId, oldest first
	ListAfter(ctx context.Context, parentId string, afterId int64, limit int) ([]*entity.Message, error)
	MaxId(ctx context.Context, parentId string) (int64, error)
	CountAfter(ctx context.Context, parentId string, afterId int64, excludeSenderId string) (int64, error)
}

// SeqAllocator hands out per-parent message ids. Callers hold the parent's write slot.
type SeqAllocator interface {
	AllocSeq(ctx context.Context, parentId string) (int64, error)
}

// ReactionStore persists (parent, message, emoji, user) rows
type ReactionStore interface {
	// Toggle removes the row if present, otherwise inserts it, and reports whether it was added
	Toggle(ctx context.Context, reaction *entity.Reaction) (bool, error)
	ListByMessages(ctx context.Context, parentId string, messageIds []int64) ([]*entity.Reaction, error)
}

// ReadCursorStore persists monotonic read cursors
type ReadCursorStore interface {
	Get(ctx context.Context, userId, parentId string) (int64, error)
	GetMany(ctx context.Context, userId string, parentIds []string) (map[string]int64, error)
	// Advance moves the cursor forward; a smaller value leaves it unchanged
	Advance(ctx context.Context, userId, parentId string, upTo int64) error
}

// Directory reads users and building membership owned by the host application
type Directory interface {
	GetUser(ctx context.Context, userId string) (*entity.Identity, error)
	GetUsers(ctx context.Context, userIds []string) ([]*entity.Identity, error)
	BuildingsOf(ctx context.Context, userId string) ([]string, error)
	BuildingMembers(ctx context.Context, buildingId string) ([]string, error)
	IsMember(ctx context.Context, buildingId, userId string) (bool, error)
}
