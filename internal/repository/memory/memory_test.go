package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, s *Stores, parentId, senderId string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		id, err := s.Seq.AllocSeq(ctx, parentId)
		require.NoError(t, err)
		require.NoError(t, s.Message.Create(ctx, &entity.Message{
			ParentId: parentId,
			Id:       id,
			SenderId: senderId,
			Type:     "text",
			Content:  "hi",
		}))
	}
}

func TestMessageStoreListing(t *testing.T) {
	s := New()
	ctx := context.Background()
	appendN(t, s, "rm_b1", "u1", 5)

	before, err := s.Message.ListBefore(ctx, "rm_b1", 0, 2)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, int64(5), before[0].Id)
	assert.Equal(t, int64(4), before[1].Id)

	before, err = s.Message.ListBefore(ctx, "rm_b1", 4, 10)
	require.NoError(t, err)
	require.Len(t, before, 3)
	assert.Equal(t, int64(3), before[0].Id)

	after, err := s.Message.ListAfter(ctx, "rm_b1", 3, 10)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, int64(4), after[0].Id)
	assert.Equal(t, int64(5), after[1].Id)

	maxId, err := s.Message.MaxId(ctx, "rm_b1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), maxId)

	empty, err := s.Message.ListAfter(ctx, "rm_other", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMessageStoreParentsWriteConcurrently(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		parentId := fmt.Sprintf("rm_b%d", p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id, err := s.Seq.AllocSeq(ctx, parentId)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, s.Message.Create(ctx, &entity.Message{
					ParentId: parentId,
					Id:       id,
					SenderId: "u1",
					Type:     "text",
					Content:  "hi",
				}))
				_, err = s.Message.CountAfter(ctx, parentId, 0, "u2")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for p := 0; p < 8; p++ {
		count, err := s.Message.CountAfter(ctx, fmt.Sprintf("rm_b%d", p), 0, "u2")
		require.NoError(t, err)
		assert.Equal(t, int64(50), count)
	}
}

func TestMessageStoreClientMsgIdConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	msg := &entity.Message{ParentId: "rm_b1", Id: 1, SenderId: "u1", ClientMsgId: "c1"}
	require.NoError(t, s.Message.Create(ctx, msg))

	err := s.Message.Create(ctx, &entity.Message{ParentId: "rm_b1", Id: 2, SenderId: "u1", ClientMsgId: "c1"})
	assert.ErrorIs(t, err, errcode.ErrConflict)

	// same client id from another sender is fine
	require.NoError(t, s.Message.Create(ctx, &entity.Message{ParentId: "rm_b1", Id: 2, SenderId: "u2", ClientMsgId: "c1"}))

	got, err := s.Message.GetByClientMsgId(ctx, "rm_b1", "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Id)
}

func TestMessageStoreReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	appendN(t, s, "rm_b1", "u1", 1)

	got, err := s.Message.Get(ctx, "rm_b1", 1)
	require.NoError(t, err)
	got.Content = "changed"

	again, err := s.Message.Get(ctx, "rm_b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "hi", again.Content)

	got.IsEdited = true
	require.NoError(t, s.Message.UpdateOverlay(ctx, got))
	again, err = s.Message.Get(ctx, "rm_b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Content)
	assert.True(t, again.IsEdited)
}

func TestCountAfterExcludesSender(t *testing.T) {
	s := New()
	ctx := context.Background()
	appendN(t, s, "rm_b1", "u1", 3)
	appendN(t, s, "rm_b1", "u2", 2)

	n, err := s.Message.CountAfter(ctx, "rm_b1", 0, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Message.CountAfter(ctx, "rm_b1", 4, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSeqStoreSeedsFromMessages(t *testing.T) {
	msgs := NewMessageStore()
	ctx := context.Background()
	require.NoError(t, msgs.Create(ctx, &entity.Message{ParentId: "rm_b1", Id: 41}))

	seq := NewSeqStore(msgs)
	id, err := seq.AllocSeq(ctx, "rm_b1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = seq.AllocSeq(ctx, "rm_b2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestReactionToggle(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := &entity.Reaction{ParentId: "rm_b1", MessageId: 1, Emoji: "👍", UserId: "u1"}

	added, err := s.Reaction.Toggle(ctx, r)
	require.NoError(t, err)
	assert.True(t, added)

	list, err := s.Reaction.ListByMessages(ctx, "rm_b1", []int64{1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	added, err = s.Reaction.Toggle(ctx, &entity.Reaction{ParentId: "rm_b1", MessageId: 1, Emoji: "👍", UserId: "u1"})
	require.NoError(t, err)
	assert.False(t, added)

	list, err = s.Reaction.ListByMessages(ctx, "rm_b1", []int64{1})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReadCursorIsMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.ReadCursor.Advance(ctx, "u1", "rm_b1", 5))
	require.NoError(t, s.ReadCursor.Advance(ctx, "u1", "rm_b1", 3))

	v, err := s.ReadCursor.Get(ctx, "u1", "rm_b1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	many, err := s.ReadCursor.GetMany(ctx, "u1", []string{"rm_b1", "rm_b2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"rm_b1": 5}, many)
}

func TestConversationCreateConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	conv := &entity.Conversation{Id: entity.GenConversationId("b1", "u2", "u1"), BuildingId: "b1", UserA: "u1", UserB: "u2"}

	require.NoError(t, s.Conversation.Create(ctx, conv))
	err := s.Conversation.Create(ctx, conv)
	assert.ErrorIs(t, err, errcode.ErrConflict)

	list, err := s.Conversation.ListForUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "dm_b1:u1:u2", list[0].Id)
}

func TestDirectoryMembership(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()
	d.AddUser(&entity.Identity{Id: "u1", DisplayName: "Ann"})
	d.AddMember("b2", "u1")
	d.AddMember("b1", "u1")

	buildings, err := d.BuildingsOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, buildings)

	ok, err := d.IsMember(ctx, "b1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	d.RemoveMember("b1", "u1")
	ok, err = d.IsMember(ctx, "b1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := d.GetUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestRoomEnsureIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Room.Ensure(ctx, &entity.Room{Id: "rm_b1", BuildingId: "b1", CreatedAt: 10}))
	require.NoError(t, s.Room.Ensure(ctx, &entity.Room{Id: "rm_b1", BuildingId: "b1", CreatedAt: 20}))

	room, err := s.Room.GetById(ctx, "rm_b1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), room.CreatedAt)

	rooms, err := s.Room.ListByBuildings(ctx, []string{"b1", "b9"})
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}
