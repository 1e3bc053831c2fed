package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/buildingchat/internal/middleware"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/buildingchat/pkg/response"
)

// RoomHandler handles room requests
type RoomHandler struct {
	rooms *service.RoomService
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// ListRooms returns one room per building of the user
func (h *RoomHandler) ListRooms(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	rooms, err := h.rooms.ListRoomsFor(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, rooms)
}

// ListParticipants returns the participants of a room or conversation with their presence
func (h *RoomHandler) ListParticipants(ctx context.Context, c *app.RequestContext) {
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

	participants, err := h.rooms.ListParticipants(ctx, userId, parentId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, participants)
}
