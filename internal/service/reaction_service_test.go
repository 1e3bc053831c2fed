package service

import (
	"context"
	"sync"
	"testing"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionToggleIsInvolutive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := h.send(t, "u1", "rm_7", "c1", "hello")

	s, err := h.svc.Reaction.Toggle(ctx, "u1", "rm_7", msg.Id, "❤️")
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, 1, s[0].Count)

	s, err = h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "❤️")
	require.NoError(t, err)
	assert.Equal(t, 2, s[0].Count)
	assert.Equal(t, []string{"u1", "u2"}, s[0].UserIds)

	s, err = h.svc.Reaction.Toggle(ctx, "u1", "rm_7", msg.Id, "❤️")
	require.NoError(t, err)
	assert.Equal(t, 1, s[0].Count)
	assert.False(t, s[0].CurrentUserHasReacted)

	s, err = h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "❤️")
	require.NoError(t, err)
	assert.Empty(t, s)

	updates := h.pusher.ofType(entity.EventReactionUpdate)
	require.Len(t, updates, 4)
	last := updates[3].ev.Data.(*entity.ReactionUpdate)
	assert.Empty(t, last.Reactions)
}

func TestReactionUpdateRenderedPerViewer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := h.send(t, "u1", "rm_7", "c1", "hello")

	_, err := h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "👍")
	require.NoError(t, err)

	updates := h.pusher.ofType(entity.EventReactionUpdate)
	require.Len(t, updates, 1)
	scoped, ok := updates[0].ev.Data.(entity.ViewerScoped)
	require.True(t, ok)

	asU2 := scoped.ForViewer("u2").(*entity.ReactionUpdate)
	asU3 := scoped.ForViewer("u3").(*entity.ReactionUpdate)
	assert.True(t, asU2.Reactions[0].CurrentUserHasReacted)
	assert.False(t, asU3.Reactions[0].CurrentUserHasReacted)
}

func TestReactionValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := h.send(t, "u1", "rm_7", "c1", "hello")

	_, err := h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, " ")
	assert.ErrorIs(t, err, errcode.ErrInvalidParam)

	_, err = h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "0123456789012345678901234567890123456789")
	assert.ErrorIs(t, err, errcode.ErrInvalidParam)

	_, err = h.svc.Reaction.Toggle(ctx, "u2", "rm_7", 99, "👍")
	assert.ErrorIs(t, err, errcode.ErrMessageNotFound)

	_, err = h.svc.Reaction.Toggle(ctx, "u4", "rm_7", msg.Id, "👍")
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)

	_, err = h.svc.Message.Delete(ctx, "u1", "rm_7", msg.Id)
	require.NoError(t, err)
	_, err = h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "👍")
	assert.ErrorIs(t, err, errcode.ErrMessageDeleted)
}

func TestConcurrentTogglesResolveToOneNetChange(t *testing.T) {
	h := newHarness(t)
	h.svc.Reaction.lock.wait = 0
	ctx := context.Background()
	msg := h.send(t, "u1", "rm_7", "c1", "hello")

	const n = 11
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Reaction.Toggle(ctx, "u2", "rm_7", msg.Id, "👍")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	page, err := h.svc.Message.History(ctx, "u2", "rm_7", 0, 1)
	require.NoError(t, err)
	require.Len(t, page.Messages[0].Reactions, 1)
	assert.Equal(t, 1, page.Messages[0].Reactions[0].Count)
	assert.Len(t, h.pusher.ofType(entity.EventReactionUpdate), n)
}
