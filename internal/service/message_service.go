package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/metrics"
	"github.com/mbeoliero/buildingchat/internal/notify"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/repository"
	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/buildingchat/pkg/idgen"
	"github.com/mbeoliero/kit/log"
)

// MessageService handles message-related business logic
type MessageService struct {
	cfg       *config.ChatConfig
	messages  repository.MessageStore
	seq       repository.SeqAllocator
	reactions repository.ReactionStore
	rooms     *RoomService
	reads     *ReadService
	presence  *presence.Registry
	notifier  *notify.Dispatcher
	ids       idgen.IDGenerator
	lock      *parentLock
	emitter   *emitter
}

// NewMessageService creates a new MessageService
func NewMessageService(cfg *config.ChatConfig, repos *repository.Repositories, rooms *RoomService, reads *ReadService,
	registry *presence.Registry, notifier *notify.Dispatcher, ids idgen.IDGenerator, lock *parentLock, em *emitter) *MessageService {
	return &MessageService{
		cfg:       cfg,
		messages:  repos.Message,
		seq:       repos.Seq,
		reactions: repos.Reaction,
		rooms:     rooms,
		reads:     reads,
		presence:  registry,
		notifier:  notifier,
		ids:       ids,
		lock:      lock,
		emitter:   em,
	}
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ParentId    string `json:"parent_id"`
	ClientMsgId string `json:"client_msg_id"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	FileUrl     string `json:"file_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	ReplyToId   int64  `json:"reply_to_id,omitempty"`
}

func (s *MessageService) validateSend(req *SendMessageRequest) error {
	if req.ParentId == "" || req.ClientMsgId == "" || req.ReplyToId < 0 {
		return errcode.ErrInvalidParam
	}
	if req.Type == "" {
		req.Type = constant.MsgTypeText
	}

	switch req.Type {
	case constant.MsgTypeText:
		return s.validateText(req.Content)
	case constant.MsgTypeImage, constant.MsgTypeFile:
		if strings.TrimSpace(req.FileUrl) == "" || req.FileSize < 0 {
			return errcode.ErrContentInvalid
		}
		if utf8.RuneCountInString(req.Content) > s.cfg.MaxContentLength {
			return errcode.ErrContentInvalid
		}
		return nil
	default:
		// system messages are produced by the server only
		return errcode.ErrContentInvalid
	}
}

func (s *MessageService) validateText(content string) error {
	if strings.TrimSpace(content) == "" {
		return errcode.ErrContentInvalid
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return errcode.ErrContentInvalid
	}
	return nil
}

// Send appends a message to a room or conversation. A repeated client_msg_id
// returns the stored message without a second broadcast.
func (s *MessageService) Send(ctx context.Context, senderId string, req *SendMessageRequest) (*entity.MessageView, error) {
	if err := s.validateSend(req); err != nil {
		return nil, err
	}

	parent, err := s.rooms.Authorize(ctx, senderId, req.ParentId)
	if err != nil {
		return nil, err
	}

	var target *entity.Message
	if req.ReplyToId > 0 {
		target, err = s.messages.Get(ctx, req.ParentId, req.ReplyToId)
		if err != nil {
			return nil, internalErr(ctx, "get reply target", err, errcode.ErrSendFailed)
		}
		if target == nil {
			return nil, errcode.ErrReplyTarget
		}
	}

	var (
		view      *entity.MessageView
		duplicate bool
	)
	err = s.lock.run(ctx, req.ParentId, func() error {
		existing, err := s.messages.GetByClientMsgId(ctx, req.ParentId, senderId, req.ClientMsgId)
		if err != nil {
			return err
		}
		if existing != nil {
			duplicate = true
			view, err = s.renderOne(ctx, senderId, existing)
			return err
		}

		id, err := s.seq.AllocSeq(ctx, req.ParentId)
		if err != nil {
			return errcode.ErrSeqAllocFailed.Wrap(err)
		}
		serverMsgId, err := s.ids.NextID()
		if err != nil {
			return errcode.ErrSendFailed.Wrap(err)
		}

		now := entity.NowUnixMilli()
		msg := &entity.Message{
			ParentId:    req.ParentId,
			Id:          id,
			ServerMsgId: serverMsgId,
			ClientMsgId: req.ClientMsgId,
			SenderId:    senderId,
			Type:        req.Type,
			ReplyToId:   req.ReplyToId,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		msg.SetContent(entity.MessageContent{
			Text:     req.Content,
			FileUrl:  req.FileUrl,
			FileName: req.FileName,
			FileSize: req.FileSize,
		})

		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}

		view = msg.ToView()
		if req.ReplyToId > 0 {
			view.ReplyTo = entity.NewReplyPreview(req.ReplyToId, target)
		}
		s.emitter.toParent(req.ParentId, &entity.Event{Type: entity.EventMessageNew, ParentId: req.ParentId, Data: view})
		return nil
	})
	if err != nil {
		return nil, internalErr(ctx, "send message", err, errcode.ErrSendFailed)
	}

	if duplicate {
		log.CtxDebug(ctx, "duplicate message: parent_id=%s, client_msg_id=%s", req.ParentId, req.ClientMsgId)
		return view, nil
	}

	metrics.MessagesSent.WithLabelValues(parent.Kind.String()).Inc()
	log.CtxInfo(ctx, "message sent: parent_id=%s, id=%d, sender_id=%s", req.ParentId, view.Id, senderId)

	s.afterSend(ctx, parent, view)
	return view, nil
}

// afterSend refreshes unread counts of online recipients and triggers offline notifications
func (s *MessageService) afterSend(ctx context.Context, parent *Parent, view *entity.MessageView) {
	recipients, err := s.rooms.Participants(ctx, parent)
	if err != nil {
		log.CtxWarn(ctx, "list recipients failed: parent_id=%s, error=%v", parent.Id, err)
		return
	}

	online := make([]string, 0, len(recipients))
	for _, userId := range recipients {
		if userId == view.SenderId {
			continue
		}
		if s.presence.IsOnline(ctx, userId) {
			online = append(online, userId)
			continue
		}
		s.notifier.Notify(&notify.Trigger{
			UserId:    userId,
			ParentId:  parent.Id,
			MessageId: view.Id,
			SenderId:  view.SenderId,
			Type:      view.Type,
			Preview:   preview(view.Content),
			CreatedAt: view.CreatedAt,
		})
	}
	s.reads.RefreshUnread(ctx, parent.Id, online)
}

func preview(content string) string {
	const max = 80
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	return string([]rune(content)[:max])
}

// Edit replaces the text of a message owned by editorId
func (s *MessageService) Edit(ctx context.Context, editorId, parentId string, messageId int64, content string) (*entity.MessageView, error) {
	if messageId <= 0 {
		return nil, errcode.ErrInvalidParam
	}
	if _, err := s.rooms.Authorize(ctx, editorId, parentId); err != nil {
		return nil, err
	}

	var view *entity.MessageView
	err := s.lock.run(ctx, parentId, func() error {
		msg, err := s.ownedMessage(ctx, editorId, parentId, messageId)
		if err != nil {
			return err
		}
		if msg.IsDeleted {
			return errcode.ErrMessageDeleted
		}
		if msg.Type == constant.MsgTypeText {
			if err := s.validateText(content); err != nil {
				return err
			}
		} else if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
			return errcode.ErrContentInvalid
		}

		msg.Content = content
		msg.IsEdited = true
		msg.UpdatedAt = entity.NowUnixMilli()
		if err := s.messages.UpdateOverlay(ctx, msg); err != nil {
			return err
		}

		view, err = s.renderOne(ctx, editorId, msg)
		if err != nil {
			return err
		}
		s.emitter.toParent(parentId, &entity.Event{Type: entity.EventMessageEdit, ParentId: parentId, Data: view})
		return nil
	})
	if err != nil {
		return nil, internalErr(ctx, "edit message", err, errcode.ErrInternalServer)
	}

	log.CtxInfo(ctx, "message edited: parent_id=%s, id=%d", parentId, messageId)
	return view, nil
}

// Delete soft deletes a message owned by requesterId. Deleting twice is a no-op.
func (s *MessageService) Delete(ctx context.Context, requesterId, parentId string, messageId int64) (*entity.MessageView, error) {
	if messageId <= 0 {
		return nil, errcode.ErrInvalidParam
	}
	if _, err := s.rooms.Authorize(ctx, requesterId, parentId); err != nil {
		return nil, err
	}

	var view *entity.MessageView
	err := s.lock.run(ctx, parentId, func() error {
		msg, err := s.ownedMessage(ctx, requesterId, parentId, messageId)
		if err != nil {
			return err
		}
		if msg.IsDeleted {
			view, err = s.renderOne(ctx, requesterId, msg)
			return err
		}

		msg.ClearContent()
		msg.IsDeleted = true
		msg.UpdatedAt = entity.NowUnixMilli()
		if err := s.messages.UpdateOverlay(ctx, msg); err != nil {
			return err
		}

		view, err = s.renderOne(ctx, requesterId, msg)
		if err != nil {
			return err
		}
		s.emitter.toParent(parentId, &entity.Event{Type: entity.EventMessageDelete, ParentId: parentId, Data: view})
		log.CtxInfo(ctx, "message deleted: parent_id=%s, id=%d", parentId, messageId)
		return nil
	})
	if err != nil {
		return nil, internalErr(ctx, "delete message", err, errcode.ErrInternalServer)
	}
	return view, nil
}

func (s *MessageService) ownedMessage(ctx context.Context, userId, parentId string, messageId int64) (*entity.Message, error) {
	msg, err := s.messages.Get(ctx, parentId, messageId)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errcode.ErrMessageNotFound
	}
	if msg.SenderId != userId {
		return nil, errcode.ErrNotMessageOwner
	}
	return msg, nil
}

func (s *MessageService) pageLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.HistoryPageSize
	}
	if limit > s.cfg.MaxHistoryPageSize {
		return s.cfg.MaxHistoryPageSize
	}
	return limit
}

// History returns messages older than beforeId, newest first; beforeId <= 0 starts at the latest
func (s *MessageService) History(ctx context.Context, userId, parentId string, beforeId int64, limit int) (*entity.HistoryPage, error) {
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return nil, err
	}
	limit = s.pageLimit(limit)

	msgs, err := s.messages.ListBefore(ctx, parentId, beforeId, limit+1)
	if err != nil {
		return nil, internalErr(ctx, "list history", err, errcode.ErrPullFailed)
	}

	page := &entity.HistoryPage{}
	if len(msgs) > limit {
		page.HasMore = true
		msgs = msgs[:limit]
	}
	if page.HasMore && len(msgs) > 0 {
		page.NextBeforeId = msgs[len(msgs)-1].Id
	}

	page.Messages, err = s.render(ctx, userId, parentId, msgs)
	if err != nil {
		return nil, internalErr(ctx, "render history", err, errcode.ErrPullFailed)
	}
	return page, nil
}

// Sync returns messages newer than afterId, oldest first, for clients catching up after a reconnect
func (s *MessageService) Sync(ctx context.Context, userId, parentId string, afterId int64, limit int) (*entity.SyncPage, error) {
	if afterId < 0 {
		return nil, errcode.ErrInvalidParam
	}
	if _, err := s.rooms.Authorize(ctx, userId, parentId); err != nil {
		return nil, err
	}
	limit = s.pageLimit(limit)

	msgs, err := s.messages.ListAfter(ctx, parentId, afterId, limit+1)
	if err != nil {
		return nil, internalErr(ctx, "list sync", err, errcode.ErrPullFailed)
	}

	page := &entity.SyncPage{LastId: afterId}
	if len(msgs) > limit {
		page.HasMore = true
		msgs = msgs[:limit]
	}
	if len(msgs) > 0 {
		page.LastId = msgs[len(msgs)-1].Id
	}

	page.Messages, err = s.render(ctx, userId, parentId, msgs)
	if err != nil {
		return nil, internalErr(ctx, "render sync", err, errcode.ErrPullFailed)
	}
	return page, nil
}

func (s *MessageService) renderOne(ctx context.Context, viewerId string, msg *entity.Message) (*entity.MessageView, error) {
	views, err := s.render(ctx, viewerId, msg.ParentId, []*entity.Message{msg})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// render attaches reply previews and viewer-specific reaction summaries
func (s *MessageService) render(ctx context.Context, viewerId, parentId string, msgs []*entity.Message) ([]*entity.MessageView, error) {
	views := make([]*entity.MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(msgs))
	replyIds := make([]int64, 0)
	for _, msg := range msgs {
		ids = append(ids, msg.Id)
		if msg.ReplyToId > 0 {
			replyIds = append(replyIds, msg.ReplyToId)
		}
	}

	targets := make(map[int64]*entity.Message, len(replyIds))
	if len(replyIds) > 0 {
		found, err := s.messages.GetByIds(ctx, parentId, replyIds)
		if err != nil {
			return nil, err
		}
		for _, t := range found {
			targets[t.Id] = t
		}
	}

	reactions, err := s.reactions.ListByMessages(ctx, parentId, ids)
	if err != nil {
		return nil, err
	}
	byMessage := make(map[int64][]*entity.Reaction)
	for _, r := range reactions {
		byMessage[r.MessageId] = append(byMessage[r.MessageId], r)
	}

	for _, msg := range msgs {
		v := msg.ToView()
		if msg.ReplyToId > 0 {
			v.ReplyTo = entity.NewReplyPreview(msg.ReplyToId, targets[msg.ReplyToId])
		}
		v.Reactions = entity.SummarizeReactions(byMessage[msg.Id], viewerId)
		views = append(views, v)
	}
	return views, nil
}

// IsClientError reports whether err was caused by the request rather than the server
func IsClientError(err error) bool {
	var e *errcode.Error
	if !errors.As(err, &e) {
		return false
	}
	switch errcode.KindOf(e) {
	case errcode.KindInvalid, errcode.KindForbidden, errcode.KindNotFound, errcode.KindConflict:
		return true
	}
	return false
}
