package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/buildingchat/internal/middleware"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/buildingchat/pkg/response"
)

// ConversationHandler handles direct conversation requests
type ConversationHandler struct {
	rooms *service.RoomService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(rooms *service.RoomService) *ConversationHandler {
	return &ConversationHandler{rooms: rooms}
}

// GetConversationList handles get conversation list request
func (h *ConversationHandler) GetConversationList(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	convs, err := h.rooms.ListConversationsFor(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, convs)
}

// StartConversationRequest represents start conversation request
type StartConversationRequest struct {
	PeerId     string `json:"peer_id"`
	BuildingId string `json:"building_id"`
}

// StartConversation opens the conversation with a peer of the same building
func (h *ConversationHandler) StartConversation(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req StartConversationRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	summary, err := h.rooms.StartConversation(ctx, userId, req.PeerId, req.BuildingId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, summary)
}
