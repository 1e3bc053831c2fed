package service

import (
	"context"
	"errors"
	"time"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/metrics"
	"github.com/mbeoliero/buildingchat/internal/notify"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/repository"
	"github.com/mbeoliero/buildingchat/internal/typing"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/buildingchat/pkg/idgen"
	"github.com/mbeoliero/buildingchat/pkg/keylock"
	"github.com/mbeoliero/kit/log"
)

// EventPusher delivers committed events to sessions
type EventPusher interface {
	// PushToParent delivers ev to every session of every online subscriber of parentId
	PushToParent(parentId string, ev *entity.Event)
	// PushToUser delivers ev to every session of userId
	PushToUser(userId string, ev *entity.Event)
}

// emitter is shared by all services so the pusher can be set once after the gateway exists
type emitter struct {
	pusher EventPusher
}

func (e *emitter) toParent(parentId string, ev *entity.Event) {
	if e.pusher != nil {
		e.pusher.PushToParent(parentId, ev)
	}
}

func (e *emitter) toUser(userId string, ev *entity.Event) {
	if e.pusher != nil {
		e.pusher.PushToUser(userId, ev)
	}
}

// parentLock runs writes of one parent one at a time
type parentLock struct {
	locker   *keylock.Locker
	wait     time.Duration
	attempts int
	backoff  time.Duration
}

func newParentLock(cfg *config.ChatConfig) *parentLock {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &parentLock{
		locker:   keylock.New(),
		wait:     cfg.LockWait,
		attempts: attempts,
		backoff:  cfg.RetryBackoff,
	}
}

// run executes fn while holding the slot of parentId.
// A lock wait timeout is retried with exponential backoff and surfaces as errcode.ErrTransient.
func (l *parentLock) run(ctx context.Context, parentId string, fn func() error) error {
	backoff := l.backoff
	for attempt := 1; ; attempt++ {
		release, err := l.locker.Lock(ctx, parentId, l.wait)
		if err == nil {
			defer release()
			return fn()
		}
		if !errors.Is(err, keylock.ErrWaitTimeout) {
			return err
		}
		if attempt >= l.attempts {
			log.CtxWarn(ctx, "parent lock busy, giving up: parent_id=%s, attempts=%d", parentId, attempt)
			return errcode.ErrTransient
		}

		metrics.LockRetries.Inc()
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

// Services holds every chat service
type Services struct {
	Room     *RoomService
	Message  *MessageService
	Reaction *ReactionService
	Read     *ReadService
	Typing   *TypingService

	emitter *emitter
}

// NewServices wires the chat services over repos
func NewServices(cfg *config.Config, repos *repository.Repositories, registry *presence.Registry, tracker *typing.Tracker, notifier *notify.Dispatcher, ids idgen.IDGenerator) *Services {
	em := &emitter{}
	lock := newParentLock(&cfg.Chat)

	rooms := NewRoomService(repos, registry, em)
	reads := NewReadService(repos, rooms, em)
	return &Services{
		Room:     rooms,
		Message:  NewMessageService(&cfg.Chat, repos, rooms, reads, registry, notifier, ids, lock, em),
		Reaction: NewReactionService(&cfg.Chat, repos, rooms, lock, em),
		Read:     reads,
		Typing:   NewTypingService(rooms, tracker, em),
		emitter:  em,
	}
}

// SetPusher sets the event pusher used by every service
func (s *Services) SetPusher(pusher EventPusher) {
	s.emitter.pusher = pusher
}

// internalErr logs err and maps anything that is not already a business error to fallback
func internalErr(ctx context.Context, op string, err error, fallback *errcode.Error) error {
	var e *errcode.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errcode.ErrTransient.Wrap(err)
	}
	log.CtxError(ctx, "%s failed: %v", op, err)
	return fallback
}
