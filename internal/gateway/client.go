package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"golang.org/x/time/rate"
)

// Client represents one WebSocket session of a user
type Client struct {
	mu         sync.Mutex
	conn       ClientConn
	UserId     string
	PlatformId int
	ConnId     string
	server     *WsServer
	limiter    *rate.Limiter
	closed     atomic.Bool
	closedErr  error
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewClient creates a new client
func NewClient(conn ClientConn, userId string, platformId int, connId string, server *WsServer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:       conn,
		UserId:     userId,
		PlatformId: platformId,
		ConnId:     connId,
		server:     server,
		limiter:    server.newIntentLimiter(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the client message handling
func (c *Client) Start() {
	go c.readLoop()
}

// readLoop continuously reads messages from the connection until it fails, then disconnects the session
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.closedErr = ErrPanic
			log.CtxError(c.ctx, "client read loop panic: user_id=%s, error=%v", c.UserId, r)
		}
		c.close()
	}()

	for {
		message, err := c.conn.ReadMessage()
		if err != nil {
			log.CtxDebug(c.ctx, "read message error: user_id=%s, conn_id=%s, error=%v", c.UserId, c.ConnId, err)
			c.closedErr = err
			return
		}

		if c.closed.Load() {
			c.closedErr = ErrConnClosed
			return
		}

		if err := c.handleMessage(message); err != nil {
			log.CtxWarn(c.ctx, "handle message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}
	}
}

// handleMessage handles a single incoming frame; only write failures end the session
func (c *Client) handleMessage(message []byte) error {
	var req WSRequest
	if err := json.Unmarshal(message, &req); err != nil || req.Type == "" {
		return c.reply(&req, errcode.ErrInvalidProtocol, nil)
	}

	log.CtxDebug(c.ctx, "received intent: type=%s, req_id=%s, user_id=%s", req.Type, req.ReqId, c.UserId)

	resp, err := c.server.Dispatch(c.ctx, c, &req)
	return c.reply(&req, err, resp)
}

// reply sends a response to the originating session only
func (c *Client) reply(req *WSRequest, err error, data []byte) error {
	resp := WSResponse{
		Type:  req.Type,
		ReqId: req.ReqId,
		Data:  data,
	}

	if err != nil {
		e := errcode.From(err)
		resp.ErrCode = e.Code
		resp.ErrMsg = e.Msg
		resp.Data = nil
	}

	return c.writeResponse(resp)
}

// writeResponse writes a response to the connection
func (c *Client) writeResponse(resp WSResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}
	return c.conn.WriteMessage(data)
}

// Push writes an already encoded server push frame
func (c *Client) Push(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.write(frame)
}

// Close closes the client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	c.closed.Store(true)
	c.cancel()
	return c.conn.Close()
}

// close handles cleanup when connection is closed
func (c *Client) close() {
	log.CtxDebug(c.ctx, "client closing: user_id=%s, conn_id=%s, reason=%v", c.UserId, c.ConnId, c.closedErr)
	c.Close()
	c.server.Disconnect(context.Background(), c)
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
