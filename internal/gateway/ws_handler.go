package gateway

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/buildingchat/internal/metrics"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// HandleHertzConnection handles a WebSocket connection from Hertz using hertz-contrib/websocket
func (s *WsServer) HandleHertzConnection(ctx context.Context, c *app.RequestContext, upgrader *websocket.HertzUpgrader) {
	hs, status := s.verifyHandshake(ctx, c.Query(QueryToken), c.Query(QuerySendId), c.Query(QueryPlatformId))
	if hs == nil {
		c.String(status, "handshake rejected")
		return
	}

	err := upgrader.Upgrade(c, func(conn *websocket.Conn) {
		// blocks for the lifetime of the session
		s.serve(context.Background(), NewHertzClientConn(conn, s.connOptions(hs.userId)), hs)
	})
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: %v", err)
	}
}

// intentHandler handles the data of one intent and returns the reply payload
type intentHandler func(ctx context.Context, client *Client, data json.RawMessage) (any, error)

func (s *WsServer) intentHandlers() map[string]intentHandler {
	return map[string]intentHandler{
		IntentMessageSend:       s.handleSendMsg,
		IntentMessageEdit:       s.handleEditMsg,
		IntentMessageDelete:     s.handleDeleteMsg,
		IntentMessageHistory:    s.handleHistory,
		IntentMessageSync:       s.handleSync,
		IntentReactionToggle:    s.handleReactionToggle,
		IntentTypingStart:       s.handleTypingStart,
		IntentTypingStop:        s.handleTypingStop,
		IntentReadMark:          s.handleReadMark,
		IntentConversationStart: s.handleConversationStart,
	}
}

// Dispatch decodes and routes one intent of client, returning the encoded reply payload
func (s *WsServer) Dispatch(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	handler, ok := s.handlers[req.Type]
	if !ok {
		metrics.Intents.WithLabelValues("unknown", strconv.Itoa(errcode.ErrInvalidProtocol.Code)).Inc()
		return nil, errcode.ErrInvalidProtocol
	}

	if client.limiter != nil && !client.limiter.Allow() {
		metrics.Intents.WithLabelValues(req.Type, strconv.Itoa(errcode.ErrTooManyRequests.Code)).Inc()
		return nil, errcode.ErrTooManyRequests
	}

	result, err := handler(ctx, client, req.Data)
	if err != nil {
		metrics.Intents.WithLabelValues(req.Type, strconv.Itoa(errcode.From(err).Code)).Inc()
		if !service.IsClientError(err) {
			log.CtxWarn(ctx, "intent failed: type=%s, req_id=%s, user_id=%s, error=%v", req.Type, req.ReqId, client.UserId, err)
		}
		return nil, err
	}
	metrics.Intents.WithLabelValues(req.Type, "0").Inc()

	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errcode.ErrInvalidParam
	}
	if err := Decode(data, v); err != nil {
		return errcode.ErrInvalidParam.Wrap(err)
	}
	return nil
}

// ========== Intent Handlers ==========

func (s *WsServer) handleSendMsg(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req service.SendMessageRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Message.Send(ctx, client.UserId, &req)
}

func (s *WsServer) handleEditMsg(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req EditMsgReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Message.Edit(ctx, client.UserId, req.ParentId, req.MessageId, req.Content)
}

func (s *WsServer) handleDeleteMsg(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req DeleteMsgReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Message.Delete(ctx, client.UserId, req.ParentId, req.MessageId)
}

func (s *WsServer) handleHistory(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req HistoryReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Message.History(ctx, client.UserId, req.ParentId, req.BeforeId, req.Limit)
}

func (s *WsServer) handleSync(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req SyncReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Message.Sync(ctx, client.UserId, req.ParentId, req.AfterId, req.Limit)
}

// reactionToggleResp is the reply of reaction.toggle
type reactionToggleResp struct {
	ParentId  string `json:"parent_id"`
	MessageId int64  `json:"message_id"`
	Reactions any    `json:"reactions"`
}

func (s *WsServer) handleReactionToggle(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req ReactionToggleReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	reactions, err := s.services.Reaction.Toggle(ctx, client.UserId, req.ParentId, req.MessageId, req.Emoji)
	if err != nil {
		return nil, err
	}
	return &reactionToggleResp{ParentId: req.ParentId, MessageId: req.MessageId, Reactions: reactions}, nil
}

func (s *WsServer) handleTypingStart(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req TypingReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return nil, s.services.Typing.Start(ctx, client.UserId, req.ParentId)
}

func (s *WsServer) handleTypingStop(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req TypingReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return nil, s.services.Typing.Stop(ctx, client.UserId, req.ParentId)
}

func (s *WsServer) handleReadMark(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req ReadMarkReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Read.MarkRead(ctx, client.UserId, req.ParentId, req.UpToMessageId)
}

func (s *WsServer) handleConversationStart(ctx context.Context, client *Client, data json.RawMessage) (any, error) {
	var req ConversationStartReq
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return s.services.Room.StartConversation(ctx, client.UserId, req.PeerId, req.BuildingId)
}
