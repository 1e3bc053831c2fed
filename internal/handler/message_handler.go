package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/buildingchat/internal/middleware"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/buildingchat/pkg/response"
)

// MessageHandler handles message-related requests
type MessageHandler struct {
	messages *service.MessageService
	reads    *service.ReadService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *service.MessageService, reads *service.ReadService) *MessageHandler {
	return &MessageHandler{messages: messages, reads: reads}
}

// SendMessage handles send message request (HTTP fallback)
func (h *MessageHandler) SendMessage(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.SendMessageRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	msg, err := h.messages.Send(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// pageQuery reads parent_id, the cursor named cursorKey and limit from the query string
func pageQuery(c *app.RequestContext, cursorKey string) (string, int64, int, bool) {
	parentId := c.Query("parent_id")
	if parentId == "" {
		return "", 0, 0, false
	}

	var cursor int64
	if v := c.Query(cursorKey); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return "", 0, 0, false
		}
		cursor = n
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", 0, 0, false
		}
		limit = n
	}
	return parentId, cursor, limit, true
}

// History returns a descending page before before_id
func (h *MessageHandler) History(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	parentId, beforeId, limit, ok := pageQuery(c, "before_id")
	if !ok {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	page, err := h.messages.History(ctx, userId, parentId, beforeId, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, page)
}

// Sync returns an ascending page after after_id
func (h *MessageHandler) Sync(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	parentId, afterId, limit, ok := pageQuery(c, "after_id")
	if !ok {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	page, err := h.messages.Sync(ctx, userId, parentId, afterId, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, page)
}

// MarkReadRequest represents mark read request
type MarkReadRequest struct {
	ParentId      string `json:"parent_id"`
	UpToMessageId int64  `json:"up_to_message_id"`
}

// MarkRead advances the read cursor of the user
func (h *MessageHandler) MarkRead(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MarkReadRequest
	if err := c.BindAndValidate(&req); err != nil || req.ParentId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	info, err := h.reads.MarkRead(ctx, userId, req.ParentId, req.UpToMessageId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// GetUnreadCount returns the unread count of the user in a parent
func (h *MessageHandler) GetUnreadCount(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	parentId := c.Query("parent_id")
	if parentId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	count, err := h.reads.UnreadCount(ctx, userId, parentId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"parent_id":    parentId,
		"unread_count": count,
	})
}
