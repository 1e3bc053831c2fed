package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/gateway"
	"github.com/mbeoliero/buildingchat/internal/handler"
	"github.com/mbeoliero/buildingchat/internal/middleware"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	Room         *handler.RoomHandler
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Presence     *handler.PresenceHandler
}

// NewHandlers builds every HTTP handler over services
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Room:         handler.NewRoomHandler(services.Room),
		Conversation: handler.NewConversationHandler(services.Room),
		Message:      handler.NewMessageHandler(services.Message, services.Read),
		Presence:     handler.NewPresenceHandler(services.Room),
	}
}

// SetupRouter sets up all routes. wsServer may be nil when sessions are served on a dedicated listener.
func SetupRouter(h *server.Hertz, cfg *config.Config, handlers *Handlers, wsServer *gateway.WsServer) {
	// CORS middleware
	h.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	// Health check
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	h.GET("/metrics", adaptor.HertzHandler(promhttp.Handler()))

	auth := middleware.JWTAuth(cfg.JWT.Secret)

	roomGroup := h.Group("/room", auth)
	{
		roomGroup.GET("/list", handlers.Room.ListRooms)
		roomGroup.GET("/participants", handlers.Room.ListParticipants)
	}

	convGroup := h.Group("/conversation", auth)
	{
		convGroup.GET("/list", handlers.Conversation.GetConversationList)
		convGroup.POST("/start", handlers.Conversation.StartConversation)
	}

	msgGroup := h.Group("/msg", auth)
	{
		msgGroup.POST("/send", handlers.Message.SendMessage)
		msgGroup.GET("/history", handlers.Message.History)
		msgGroup.GET("/sync", handlers.Message.Sync)
		msgGroup.POST("/read", handlers.Message.MarkRead)
		msgGroup.GET("/unread", handlers.Message.GetUnreadCount)
	}

	h.GET("/presence", auth, handlers.Presence.GetPresence)

	if wsServer == nil {
		return
	}

	// WebSocket route using hertz-contrib/websocket with origin validation
	allowedOrigins := cfg.Server.AllowedOrigins
	upgrader := &websocket.HertzUpgrader{
		CheckOrigin: func(ctx *app.RequestContext) bool {
			return checkOrigin(ctx, allowedOrigins)
		},
	}

	h.GET("/ws", func(ctx context.Context, c *app.RequestContext) {
		wsServer.HandleHertzConnection(ctx, c, upgrader)
	})
}

// checkOrigin validates the Origin header against allowed origins.
// Requests without Origin come from non-browser clients and are allowed.
func checkOrigin(ctx *app.RequestContext, allowedOrigins []string) bool {
	origin := string(ctx.Request.Header.Peek("Origin"))
	if origin == "" {
		return true
	}
	return middleware.AllowOrigin(origin, allowedOrigins, false) != ""
}
