package service

import (
	"context"
	"testing"
	"time"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Room.Authorize(ctx, "u1", "bogus")
	assert.ErrorIs(t, err, errcode.ErrParentNotFound)
	assert.Equal(t, errcode.KindNotFound, errcode.KindOf(err))

	// room of a building the user does not belong to, not created yet
	_, err = h.svc.Room.Authorize(ctx, "u1", "rm_8")
	assert.ErrorIs(t, err, errcode.ErrParentNotFound)

	// member: created lazily
	p, err := h.svc.Room.Authorize(ctx, "u1", "rm_7")
	require.NoError(t, err)
	assert.Equal(t, entity.ParentRoom, p.Kind)
	assert.Equal(t, "7", p.Room.BuildingId)

	// room exists, requester is not a member
	_, err = h.svc.Room.Authorize(ctx, "u4", "rm_7")
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)
	assert.Equal(t, errcode.KindForbidden, errcode.KindOf(err))

	_, err = h.svc.Room.Authorize(ctx, "u1", "dm_7:u1:u2")
	assert.ErrorIs(t, err, errcode.ErrParentNotFound)

	_, _, err = h.svc.Room.GetOrCreateConversation(ctx, "u2", "u1", "7")
	require.NoError(t, err)
	p, err = h.svc.Room.Authorize(ctx, "u2", "dm_7:u1:u2")
	require.NoError(t, err)
	assert.Equal(t, entity.ParentConversation, p.Kind)

	_, err = h.svc.Room.Authorize(ctx, "u3", "dm_7:u1:u2")
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)
}

func TestGetOrCreateConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	conv, created, err := h.svc.Room.GetOrCreateConversation(ctx, "u2", "u1", "7")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "dm_7:u1:u2", conv.Id)
	assert.Equal(t, "u1", conv.UserA)
	assert.Equal(t, "u2", conv.UserB)

	again, created, err := h.svc.Room.GetOrCreateConversation(ctx, "u1", "u2", "7")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.Id, again.Id)

	_, _, err = h.svc.Room.GetOrCreateConversation(ctx, "u1", "u1", "7")
	assert.ErrorIs(t, err, errcode.ErrSelfConversation)

	_, _, err = h.svc.Room.GetOrCreateConversation(ctx, "u1", "u4", "7")
	assert.ErrorIs(t, err, errcode.ErrNotBuildingMember)

	_, _, err = h.svc.Room.GetOrCreateConversation(ctx, "u1", "u:2", "7")
	assert.ErrorIs(t, err, errcode.ErrInvalidParam)
}

func TestStartConversationNotifiesBothUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.presence.MarkOnline(ctx, "u1", []string{"rm_7"})
	h.presence.MarkOnline(ctx, "u2", []string{"rm_7"})

	summary, err := h.svc.Room.StartConversation(ctx, "u1", "u2", "7")
	require.NoError(t, err)
	assert.Equal(t, "dm_7:u1:u2", summary.ConversationId)
	require.NotNil(t, summary.Peer)
	assert.Equal(t, "u2", summary.Peer.UserId)
	assert.Equal(t, "Bob", summary.Peer.DisplayName)
	assert.True(t, summary.Peer.IsOnline)

	news := h.pusher.ofType(entity.EventConversationNew)
	require.Len(t, news, 2)
	targets := []string{news[0].target, news[1].target}
	assert.ElementsMatch(t, []string{"u1", "u2"}, targets)
	assert.Equal(t, []string{"u1", "u2"}, h.presence.Subscribers("dm_7:u1:u2"))

	// a second start is idempotent and silent
	_, err = h.svc.Room.StartConversation(ctx, "u2", "u1", "7")
	require.NoError(t, err)
	assert.Len(t, h.pusher.ofType(entity.EventConversationNew), 2)
}

func TestListRoomsFor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.stores.Directory.AddMember("9", "u1")

	h.send(t, "u2", "rm_7", "c1", "one")
	h.send(t, "u2", "rm_7", "c2", "two")
	h.send(t, "u1", "rm_7", "c3", "mine")

	rooms, err := h.svc.Room.ListRoomsFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "rm_7", rooms[0].RoomId)
	assert.Equal(t, 3, rooms[0].ParticipantsCount)
	assert.Equal(t, int64(2), rooms[0].UnreadCount)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "mine", rooms[0].LastMessage.Content)

	assert.Equal(t, "rm_9", rooms[1].RoomId)
	assert.Equal(t, 1, rooms[1].ParticipantsCount)
	assert.Nil(t, rooms[1].LastMessage)
}

func TestListConversationsFor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Room.StartConversation(ctx, "u1", "u2", "7")
	require.NoError(t, err)
	_, err = h.svc.Room.StartConversation(ctx, "u1", "u3", "7")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	h.send(t, "u2", "dm_7:u1:u2", "c1", "ping")

	convs, err := h.svc.Room.ListConversationsFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "dm_7:u1:u2", convs[0].ConversationId)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
	assert.Equal(t, "u2", convs[0].Peer.UserId)
	assert.Equal(t, "dm_7:u1:u3", convs[1].ConversationId)
}

func TestListParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.presence.MarkOnline(ctx, "u2", nil)

	records, err := h.svc.Room.ListParticipants(ctx, "u1", "rm_7")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "u1", records[0].UserId)
	assert.Equal(t, "Ann", records[0].DisplayName)
	assert.Equal(t, "rm_7", records[0].ParentId)
	assert.False(t, records[0].IsOnline)
	assert.True(t, records[1].IsOnline)

	_, err = h.svc.Room.ListParticipants(ctx, "u4", "rm_7")
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)
}

func TestParentsFor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, _, err := h.svc.Room.GetOrCreateConversation(ctx, "u1", "u2", "7")
	require.NoError(t, err)

	parents, err := h.svc.Room.ParentsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rm_7", "dm_7:u1:u2"}, parents)
}
