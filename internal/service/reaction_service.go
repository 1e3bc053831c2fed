package service

import (
	"context"
	"strings"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/repository"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// ReactionService toggles emoji reactions on messages
type ReactionService struct {
	cfg       *config.ChatConfig
	messages  repository.MessageStore
	reactions repository.ReactionStore
	rooms     *RoomService
	lock      *parentLock
	emitter   *emitter
}

// NewReactionService creates a new ReactionService
func NewReactionService(cfg *config.ChatConfig, repos *repository.Repositories, rooms *RoomService, lock *parentLock, em *emitter) *ReactionService {
	return &ReactionService{
		cfg:       cfg,
		messages:  repos.Message,
		reactions: repos.Reaction,
		rooms:     rooms,
		lock:      lock,
		emitter:   em,
	}
}

// Toggle adds userId's emoji to a message, or removes it when already present,
// and returns the message's full reaction aggregate as seen by userId
func (s *ReactionService) Toggle(ctx context.Context, userId, parentId string, messageId int64, emoji string) ([]*entity.ReactionSummary, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > s.cfg.MaxEmojiLength || messageId <= 0 {
		return nil, errcode.ErrInvalidParam
	}
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return nil, err
	}

	var (
		summaries []*entity.ReactionSummary
		added     bool
	)
	err := s.lock.run(ctx, parentId, func() error {
		msg, err := s.messages.Get(ctx, parentId, messageId)
		if err != nil {
			return err
		}
		if msg == nil {
			return errcode.ErrMessageNotFound
		}
		if msg.IsDeleted {
			return errcode.ErrMessageDeleted
		}

		added, err = s.reactions.Toggle(ctx, &entity.Reaction{
			ParentId:  parentId,
			MessageId: messageId,
			Emoji:     emoji,
			UserId:    userId,
			CreatedAt: entity.NowUnixMilli(),
		})
		if err != nil {
			return err
		}

		list, err := s.reactions.ListByMessages(ctx, parentId, []int64{messageId})
		if err != nil {
			return err
		}
		summaries = entity.SummarizeReactions(list, userId)

		s.emitter.toParent(parentId, &entity.Event{
			Type:     entity.EventReactionUpdate,
			ParentId: parentId,
			Data: &entity.ReactionUpdate{
				ParentId:  parentId,
				MessageId: messageId,
				Reactions: summaries,
			},
		})
		return nil
	})
	if err != nil {
		return nil, internalErr(ctx, "toggle reaction", err, errcode.ErrInternalServer)
	}

	log.CtxDebug(ctx, "reaction toggled: parent_id=%s, message_id=%d, user_id=%s, added=%v", parentId, messageId, userId, added)
	return summaries, nil
}
