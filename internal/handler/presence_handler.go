package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/buildingchat/internal/middleware"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/buildingchat/pkg/response"
)

// maxPresenceQuery bounds the ids of one presence query
const maxPresenceQuery = 200

// PresenceHandler handles presence snapshot requests
type PresenceHandler struct {
	rooms *service.RoomService
}

// NewPresenceHandler creates a new PresenceHandler
func NewPresenceHandler(rooms *service.RoomService) *PresenceHandler {
	return &PresenceHandler{rooms: rooms}
}

// GetPresence returns the presence of user_ids, a comma separated list
func (h *PresenceHandler) GetPresence(ctx context.Context, c *app.RequestContext) {
	if middleware.GetUserId(c) == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	userIds := make([]string, 0)
	for _, id := range strings.Split(c.Query("user_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			userIds = append(userIds, id)
		}
	}
	if len(userIds) == 0 || len(userIds) > maxPresenceQuery {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	records, err := h.rooms.Presence(ctx, userIds)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, records)
}
