package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/typing"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingStartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "rm_7"))
	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "rm_7"))
	assert.Len(t, h.pusher.ofType(entity.EventTypingStart), 1)
	assert.Equal(t, []string{"u1"}, h.svc.Typing.Active("rm_7"))

	require.NoError(t, h.svc.Typing.Stop(ctx, "u1", "rm_7"))
	require.NoError(t, h.svc.Typing.Stop(ctx, "u1", "rm_7"))
	stops := h.pusher.ofType(entity.EventTypingStop)
	require.Len(t, stops, 1)
	assert.Equal(t, &entity.TypingInfo{ParentId: "rm_7", UserId: "u1"}, stops[0].ev.Data)

	err := h.svc.Typing.Start(ctx, "u4", "rm_7")
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)
}

func TestTypingExpiresAfterTTL(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var now atomic.Int64
	now.Store(time.Unix(1_700_000_000, 0).UnixNano())
	h.tracker.SetClock(func() time.Time { return time.Unix(0, now.Load()) })

	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "rm_7"))
	go h.svc.Typing.Run(ctx, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, h.pusher.ofType(entity.EventTypingStop))

	now.Add(int64(6 * time.Second))
	require.Eventually(t, func() bool {
		return len(h.pusher.ofType(entity.EventTypingStop)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	stops := h.pusher.ofType(entity.EventTypingStop)
	require.Len(t, stops, 1)
	assert.Equal(t, "rm_7", stops[0].target)
	assert.Empty(t, h.svc.Typing.Active("rm_7"))
}

func TestTypingStopAfterTTLBeforeSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, _, err := h.svc.Room.GetOrCreateConversation(ctx, "u1", "u2", "7")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	h.tracker.SetClock(func() time.Time { return now })

	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "rm_7"))
	require.NoError(t, h.svc.Typing.Start(ctx, "u2", "rm_7"))
	require.NoError(t, h.svc.Typing.Start(ctx, "u2", "dm_7:u1:u2"))
	now = now.Add(6 * time.Second)

	require.NoError(t, h.svc.Typing.Stop(ctx, "u1", "rm_7"))
	stops := h.pusher.ofType(entity.EventTypingStop)
	require.Len(t, stops, 1)
	assert.Equal(t, &entity.TypingInfo{ParentId: "rm_7", UserId: "u1"}, stops[0].ev.Data)

	h.svc.Typing.ClearUser("u2")
	stops = h.pusher.ofType(entity.EventTypingStop)
	require.Len(t, stops, 3)
	assert.Equal(t, "dm_7:u1:u2", stops[1].target)
	assert.Equal(t, "rm_7", stops[2].target)

	assert.Empty(t, h.tracker.Sweep())
}

func TestTypingClearedOnDisconnect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, _, err := h.svc.Room.GetOrCreateConversation(ctx, "u1", "u2", "7")
	require.NoError(t, err)

	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "rm_7"))
	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "dm_7:u1:u2"))

	h.svc.Typing.ClearUser("u1")
	stops := h.pusher.ofType(entity.EventTypingStop)
	require.Len(t, stops, 2)
	assert.Equal(t, "dm_7:u1:u2", stops[0].target)
	assert.Equal(t, "rm_7", stops[1].target)
}

func TestTypingRunBroadcastsExpiry(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.svc.Typing.tracker = typing.NewTracker(10 * time.Millisecond)
	require.NoError(t, h.svc.Typing.Start(ctx, "u1", "rm_7"))
	go h.svc.Typing.Run(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(h.pusher.ofType(entity.EventTypingStop)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
