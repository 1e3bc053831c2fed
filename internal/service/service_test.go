package service

import (
	"context"
	"testing"
	"time"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParentLockReturnsTransientWhenBusy(t *testing.T) {
	lock := newParentLock(&config.ChatConfig{
		LockWait:      5 * time.Millisecond,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	})
	ctx := context.Background()

	release, err := lock.locker.Lock(ctx, "rm_7", 0)
	require.NoError(t, err)
	defer release()

	called := false
	err = lock.run(ctx, "rm_7", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errcode.ErrTransient)
	assert.True(t, errcode.IsTransient(err))
	assert.False(t, called)
}

func TestParentLockRetriesUntilFree(t *testing.T) {
	lock := newParentLock(&config.ChatConfig{
		LockWait:      5 * time.Millisecond,
		RetryAttempts: 5,
		RetryBackoff:  10 * time.Millisecond,
	})
	ctx := context.Background()

	release, err := lock.locker.Lock(ctx, "rm_7", 0)
	require.NoError(t, err)
	time.AfterFunc(8*time.Millisecond, release)

	err = lock.run(ctx, "rm_7", func() error { return nil })
	assert.NoError(t, err)
	assert.Zero(t, lock.locker.Len())
}

func TestParentLockPassesThroughErrors(t *testing.T) {
	lock := newParentLock(&config.ChatConfig{LockWait: time.Second, RetryAttempts: 1})

	err := lock.run(context.Background(), "rm_7", func() error { return errcode.ErrMessageNotFound })
	assert.ErrorIs(t, err, errcode.ErrMessageNotFound)
}
