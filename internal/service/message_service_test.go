package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAssignsIncreasingIds(t *testing.T) {
	h := newHarness(t)

	first := h.send(t, "u1", "rm_7", "c1", "hello")
	second := h.send(t, "u2", "rm_7", "c2", "hi Ann")

	assert.Equal(t, int64(1), first.Id)
	assert.Equal(t, int64(2), second.Id)
	assert.NotEmpty(t, first.ServerMsgId)
	assert.NotEqual(t, first.ServerMsgId, second.ServerMsgId)
	assert.Equal(t, constant.MsgTypeText, first.Type)

	news := h.pusher.ofType(entity.EventMessageNew)
	require.Len(t, news, 2)
	assert.Equal(t, "rm_7", news[0].target)
	assert.Equal(t, first.Id, news[0].ev.Data.(*entity.MessageView).Id)
}

func TestSendIsIdempotentByClientMsgId(t *testing.T) {
	h := newHarness(t)

	first := h.send(t, "u1", "rm_7", "c1", "hello")
	again := h.send(t, "u1", "rm_7", "c1", "hello again")

	assert.Equal(t, first.Id, again.Id)
	assert.Equal(t, "hello", again.Content)
	assert.Len(t, h.pusher.ofType(entity.EventMessageNew), 1)

	// another sender may reuse the same client id
	other := h.send(t, "u2", "rm_7", "c1", "mine")
	assert.Equal(t, int64(2), other.Id)
}

func TestSendValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *SendMessageRequest
		want *errcode.Error
	}{
		{"missing client id", &SendMessageRequest{ParentId: "rm_7", Content: "x"}, errcode.ErrInvalidParam},
		{"blank text", &SendMessageRequest{ParentId: "rm_7", ClientMsgId: "c", Content: "   "}, errcode.ErrContentInvalid},
		{"too long", &SendMessageRequest{ParentId: "rm_7", ClientMsgId: "c", Content: strings.Repeat("a", h.cfg.Chat.MaxContentLength+1)}, errcode.ErrContentInvalid},
		{"system from client", &SendMessageRequest{ParentId: "rm_7", ClientMsgId: "c", Type: constant.MsgTypeSystem, Content: "x"}, errcode.ErrContentInvalid},
		{"image without url", &SendMessageRequest{ParentId: "rm_7", ClientMsgId: "c", Type: constant.MsgTypeImage}, errcode.ErrContentInvalid},
		{"unknown reply", &SendMessageRequest{ParentId: "rm_7", ClientMsgId: "c", Content: "x", ReplyToId: 99}, errcode.ErrReplyTarget},
		{"malformed parent", &SendMessageRequest{ParentId: "room7", ClientMsgId: "c", Content: "x"}, errcode.ErrParentNotFound},
		{"not a member", &SendMessageRequest{ParentId: "rm_8", ClientMsgId: "c", Content: "x"}, errcode.ErrParentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Message.Send(ctx, "u1", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Empty(t, h.pusher.ofType(entity.EventMessageNew))
}

func TestSendFileMessage(t *testing.T) {
	h := newHarness(t)

	v, err := h.svc.Message.Send(context.Background(), "u1", &SendMessageRequest{
		ParentId:    "rm_7",
		ClientMsgId: "f1",
		Type:        constant.MsgTypeFile,
		FileUrl:     "https://files.example/lease.pdf",
		FileName:    "lease.pdf",
		FileSize:    2048,
	})
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", v.FileName)
	assert.Equal(t, int64(2048), v.FileSize)
}

func TestRoomSevenScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := h.send(t, "u1", "rm_7", "c1", "Elevator is out")

	summaries, err := h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "👍")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Count)
	assert.True(t, summaries[0].CurrentUserHasReacted)

	edited, err := h.svc.Message.Edit(ctx, "u1", "rm_7", msg.Id, "Elevator is out until Monday")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, msg.Id, edited.Id)
	assert.Equal(t, msg.CreatedAt, edited.CreatedAt)
	assert.Equal(t, "u1", edited.SenderId)
	require.Len(t, edited.Reactions, 1)
	assert.False(t, edited.Reactions[0].CurrentUserHasReacted)

	deleted, err := h.svc.Message.Delete(ctx, "u1", "rm_7", msg.Id)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Empty(t, deleted.Content)
	assert.Equal(t, msg.Id, deleted.Id)

	page, err := h.svc.Message.History(ctx, "u2", "rm_7", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.True(t, page.Messages[0].IsDeleted)
	assert.True(t, page.Messages[0].Reactions[0].CurrentUserHasReacted)

	types := make([]string, 0)
	for _, p := range h.pusher.events {
		if !p.toUser {
			types = append(types, p.ev.Type)
		}
	}
	assert.Equal(t, []string{
		entity.EventMessageNew,
		entity.EventReactionUpdate,
		entity.EventMessageEdit,
		entity.EventMessageDelete,
	}, types)
}

func TestEditRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := h.send(t, "u1", "rm_7", "c1", "hello")

	_, err := h.svc.Message.Edit(ctx, "u2", "rm_7", msg.Id, "hijack")
	assert.ErrorIs(t, err, errcode.ErrNotMessageOwner)

	_, err = h.svc.Message.Edit(ctx, "u1", "rm_7", 42, "nope")
	assert.ErrorIs(t, err, errcode.ErrMessageNotFound)

	_, err = h.svc.Message.Edit(ctx, "u1", "rm_7", msg.Id, " ")
	assert.ErrorIs(t, err, errcode.ErrContentInvalid)

	_, err = h.svc.Message.Delete(ctx, "u1", "rm_7", msg.Id)
	require.NoError(t, err)
	_, err = h.svc.Message.Edit(ctx, "u1", "rm_7", msg.Id, "back")
	assert.ErrorIs(t, err, errcode.ErrMessageDeleted)
	assert.Equal(t, errcode.KindInvalid, errcode.KindOf(err))
}

func TestDeleteIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := h.send(t, "u1", "rm_7", "c1", "hello")

	_, err := h.svc.Message.Delete(ctx, "u2", "rm_7", msg.Id)
	assert.ErrorIs(t, err, errcode.ErrNotMessageOwner)

	for i := 0; i < 3; i++ {
		v, err := h.svc.Message.Delete(ctx, "u1", "rm_7", msg.Id)
		require.NoError(t, err)
		assert.True(t, v.IsDeleted)
	}
	assert.Len(t, h.pusher.ofType(entity.EventMessageDelete), 1)
}

func TestReplyToDeletedRendersPlaceholder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	target := h.send(t, "u1", "rm_7", "c1", "original")
	reply, err := h.svc.Message.Send(ctx, "u2", &SendMessageRequest{
		ParentId: "rm_7", ClientMsgId: "c2", Content: "answer", ReplyToId: target.Id,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, "original", reply.ReplyTo.Content)

	_, err = h.svc.Message.Delete(ctx, "u1", "rm_7", target.Id)
	require.NoError(t, err)

	page, err := h.svc.Message.History(ctx, "u3", "rm_7", 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, reply.Id, page.Messages[0].Id)
	require.NotNil(t, page.Messages[0].ReplyTo)
	assert.Equal(t, target.Id, page.Messages[0].ReplyTo.Id)
	assert.True(t, page.Messages[0].ReplyTo.IsDeleted)
	assert.Equal(t, constant.DeletedPlaceholder, page.Messages[0].ReplyTo.Content)
}

func TestHistoryPaging(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 1; i <= 120; i++ {
		h.send(t, "u1", "rm_7", fmt.Sprintf("c%d", i), fmt.Sprintf("m%d", i))
	}

	page, err := h.svc.Message.History(ctx, "u2", "rm_7", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 50)
	assert.Equal(t, int64(120), page.Messages[0].Id)
	assert.Equal(t, int64(71), page.Messages[49].Id)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(71), page.NextBeforeId)

	page, err = h.svc.Message.History(ctx, "u2", "rm_7", page.NextBeforeId, 500)
	require.NoError(t, err)
	require.Len(t, page.Messages, 70)
	assert.Equal(t, int64(70), page.Messages[0].Id)
	assert.Equal(t, int64(1), page.Messages[69].Id)
	assert.False(t, page.HasMore)
	assert.Zero(t, page.NextBeforeId)

	page, err = h.svc.Message.History(ctx, "u2", "rm_7", 0, 500)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 100)

	_, err = h.svc.Message.History(ctx, "u4", "rm_7", 0, 10)
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)
}

func TestSyncIsGapFree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		h.send(t, "u1", "rm_7", fmt.Sprintf("c%d", i), "x")
	}

	page, err := h.svc.Message.Sync(ctx, "u2", "rm_7", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, int64(3), page.Messages[0].Id)
	assert.Equal(t, int64(4), page.Messages[1].Id)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(4), page.LastId)

	page, err = h.svc.Message.Sync(ctx, "u2", "rm_7", page.LastId, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, int64(5), page.LastId)

	page, err = h.svc.Message.Sync(ctx, "u2", "rm_7", 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Equal(t, int64(5), page.LastId)
}

func TestConcurrentSendsGetUniqueIds(t *testing.T) {
	h := newHarness(t)
	h.svc.Message.lock.wait = 0

	const n = 40
	var wg sync.WaitGroup
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := []string{"u1", "u2", "u3"}[i%3]
			v, err := h.svc.Message.Send(context.Background(), sender, &SendMessageRequest{
				ParentId: "rm_7", ClientMsgId: fmt.Sprintf("c%d", i), Content: "x",
			})
			if assert.NoError(t, err) {
				ids[i] = v.Id
			}
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	// broadcast order matches id order
	news := h.pusher.ofType(entity.EventMessageNew)
	require.Len(t, news, n)
	for i, p := range news {
		assert.Equal(t, int64(i+1), p.ev.Data.(*entity.MessageView).Id)
	}
}

func TestOfflineRecipientsGetNotifyTrigger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.presence.MarkOnline(ctx, "u2", []string{"rm_7"})

	msg := h.send(t, "u1", "rm_7", "c1", "parcel at the desk")

	tr := h.nextTrigger(t)
	assert.Equal(t, "u3", tr.UserId)
	assert.Equal(t, msg.Id, tr.MessageId)
	assert.Equal(t, "parcel at the desk", tr.Preview)

	unread := h.pusher.ofType(entity.EventUnreadUpdate)
	require.Len(t, unread, 1)
	assert.Equal(t, "u2", unread[0].target)
	assert.Equal(t, int64(1), unread[0].ev.Data.(*entity.UnreadInfo).UnreadCount)
}
