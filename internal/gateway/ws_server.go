package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/metrics"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/mbeoliero/buildingchat/pkg/jwt"
	"github.com/mbeoliero/buildingchat/pkg/keylock"
	"github.com/mbeoliero/kit/log"
	"golang.org/x/time/rate"
)

// WsServer is the WebSocket server
type WsServer struct {
	upgrader      *websocket.Upgrader
	cfg           *config.Config
	userMap       *UserMap
	services      *service.Services
	presence      *presence.Registry
	shards        []chan *pushTask
	userLock      *keylock.Locker
	handlers      map[string]intentHandler
	onlineConnNum atomic.Int64
	maxConnNum    int64
}

// pushTask is one event waiting for fan-out
type pushTask struct {
	parentId string
	userId   string
	ev       *entity.Event
}

var _ service.EventPusher = (*WsServer)(nil)

// NewWsServer creates a new WebSocket server
func NewWsServer(cfg *config.Config, services *service.Services, registry *presence.Registry) *WsServer {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	shardNum := cfg.WebSocket.PushShardNum
	if shardNum <= 0 {
		shardNum = defaultPushShardNum
	}
	chanSize := cfg.WebSocket.PushChannelSize
	if chanSize <= 0 {
		chanSize = defaultPushChannelSize
	}
	shards := make([]chan *pushTask, shardNum)
	for i := range shards {
		shards[i] = make(chan *pushTask, chanSize)
	}

	s := &WsServer{
		upgrader:   upgrader,
		cfg:        cfg,
		userMap:    NewUserMap(),
		services:   services,
		presence:   registry,
		shards:     shards,
		userLock:   keylock.New(),
		maxConnNum: cfg.WebSocket.MaxConnNum,
	}
	s.handlers = s.intentHandlers()
	return s
}

// Run starts one push worker per shard
func (s *WsServer) Run(ctx context.Context) {
	for i := range s.shards {
		go s.pushLoop(ctx, s.shards[i])
	}
	log.Info("started %d push workers", len(s.shards))
}

// pushLoop delivers the events of one shard in order
func (s *WsServer) pushLoop(ctx context.Context, shard chan *pushTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-shard:
			s.processPushTask(ctx, task)
		}
	}
}

// processPushTask resolves recipients at delivery time and writes to every session
func (s *WsServer) processPushTask(ctx context.Context, task *pushTask) {
	var targets []string
	if task.userId != "" {
		targets = []string{task.userId}
	} else {
		targets = s.presence.Subscribers(task.parentId)
	}

	scoped, isScoped := task.ev.Data.(entity.ViewerScoped)
	var shared []byte
	if !isScoped {
		frame, err := encodePush(task.ev.Type, task.ev.Data)
		if err != nil {
			log.CtxError(ctx, "encode push failed: type=%s, parent_id=%s, error=%v", task.ev.Type, task.parentId, err)
			return
		}
		shared = frame
	}

	for _, userId := range targets {
		clients, ok := s.userMap.GetAll(userId)
		if !ok {
			continue
		}

		frame := shared
		if isScoped {
			var err error
			frame, err = encodePush(task.ev.Type, scoped.ForViewer(userId))
			if err != nil {
				log.CtxError(ctx, "encode push failed: type=%s, user_id=%s, error=%v", task.ev.Type, userId, err)
				continue
			}
		}

		for _, client := range clients {
			if err := client.Push(frame); err != nil {
				if errors.Is(err, ErrWriteChannelFull) {
					metrics.PushDropped.Inc()
				}
				log.CtxDebug(ctx, "push to client failed: user_id=%s, conn_id=%s, error=%v", userId, client.ConnId, err)
			}
		}
	}
}

func encodePush(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSResponse{Type: eventType, Data: payload})
}

// enqueue hands a task to the shard of key; a full shard drops the event
func (s *WsServer) enqueue(key string, task *pushTask) {
	h := fnv.New32a()
	h.Write([]byte(key))
	shard := s.shards[h.Sum32()%uint32(len(s.shards))]

	select {
	case shard <- task:
	default:
		metrics.PushDropped.Inc()
		log.Warn("push channel full, event dropped: type=%s, parent_id=%s, user_id=%s", task.ev.Type, task.parentId, task.userId)
	}
}

// Broadcast enqueues ev for every session of every online subscriber of parentId.
// Events of one parent share a shard, so they are delivered in the order they were enqueued.
func (s *WsServer) Broadcast(parentId string, ev *entity.Event) {
	s.enqueue(parentId, &pushTask{parentId: parentId, ev: ev})
}

// PushToParent implements service.EventPusher
func (s *WsServer) PushToParent(parentId string, ev *entity.Event) {
	s.Broadcast(parentId, ev)
}

// PushToUser implements service.EventPusher. Events tied to a parent keep that parent's order.
func (s *WsServer) PushToUser(userId string, ev *entity.Event) {
	key := ev.ParentId
	if key == "" {
		key = userId
	}
	s.enqueue(key, &pushTask{parentId: ev.ParentId, userId: userId, ev: ev})
}

// Connect registers client. The first session of a user marks it online,
// subscribes it to its rooms and conversations and announces it.
func (s *WsServer) Connect(ctx context.Context, client *Client) error {
	release, err := s.userLock.Lock(ctx, client.UserId, 0)
	if err != nil {
		return err
	}
	defer release()

	var parentIds []string
	if !s.userMap.HasConnection(client.UserId) {
		parentIds, err = s.services.Room.ParentsFor(ctx, client.UserId)
		if err != nil {
			return err
		}
	}

	first := s.userMap.Register(client)
	s.onlineConnNum.Add(1)
	metrics.OnlineConns.Inc()

	if first {
		metrics.OnlineUsers.Inc()
		s.presence.MarkOnline(ctx, client.UserId, parentIds)
		s.announce(client.UserId, parentIds, &entity.PresenceInfo{UserId: client.UserId, IsOnline: true})
	}

	log.CtxInfo(ctx, "client registered: user_id=%s, platform=%s, conn_id=%s, first=%v, online_users=%d, online_conns=%d",
		client.UserId, constant.PlatformIdToName(client.PlatformId), client.ConnId, first, s.userMap.GetOnlineUserCount(), s.onlineConnNum.Load())
	return nil
}

// Disconnect removes client. Typing indicators of the user are cleared on every
// disconnect; the last session marks the user offline and announces it.
func (s *WsServer) Disconnect(ctx context.Context, client *Client) {
	release, err := s.userLock.Lock(ctx, client.UserId, 0)
	if err != nil {
		log.CtxWarn(ctx, "disconnect lock failed: user_id=%s, error=%v", client.UserId, err)
		return
	}
	defer release()

	removed, last := s.userMap.Unregister(client)
	if !removed {
		return
	}
	s.onlineConnNum.Add(-1)
	metrics.OnlineConns.Dec()

	s.services.Typing.ClearUser(client.UserId)

	if last {
		metrics.OnlineUsers.Dec()
		parentIds, lastSeen := s.presence.MarkOffline(ctx, client.UserId)
		s.announce(client.UserId, parentIds, &entity.PresenceInfo{UserId: client.UserId, IsOnline: false, LastSeen: lastSeen})
	}

	log.CtxInfo(ctx, "client unregistered: user_id=%s, platform=%s, conn_id=%s, user_offline=%v, online_users=%d, online_conns=%d",
		client.UserId, constant.PlatformIdToName(client.PlatformId), client.ConnId, last, s.userMap.GetOnlineUserCount(), s.onlineConnNum.Load())
}

// announce sends presence.update once to every online user sharing a parent with userId
func (s *WsServer) announce(userId string, parentIds []string, info *entity.PresenceInfo) {
	seen := make(map[string]struct{})
	for _, parentId := range parentIds {
		for _, uid := range s.presence.Subscribers(parentId) {
			if uid != userId {
				seen[uid] = struct{}{}
			}
		}
	}

	targets := make([]string, 0, len(seen))
	for uid := range seen {
		targets = append(targets, uid)
	}
	sort.Strings(targets)

	ev := &entity.Event{Type: entity.EventPresenceUpdate, Data: info}
	for _, uid := range targets {
		s.PushToUser(uid, ev)
	}
}

// newIntentLimiter returns the token bucket of one session
func (s *WsServer) newIntentLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(s.cfg.WebSocket.IntentRPS), s.cfg.WebSocket.IntentBurst)
}

// connOptions derives the connection options of a session of userId
func (s *WsServer) connOptions(userId string) ConnOptions {
	ws := s.cfg.WebSocket
	return ConnOptions{
		MaxMessageSize:   ws.MaxMessageSize,
		WriteWait:        ws.WriteWait,
		PongWait:         ws.PongWait,
		PingPeriod:       ws.PingPeriod,
		WriteChannelSize: ws.WriteChannelSize,
		OnPong: func() {
			s.presence.Refresh(context.Background(), userId)
		},
	}
}

// handshake holds the verified identity of a connecting session
type handshake struct {
	userId     string
	platformId int
}

// verifyHandshake checks the token against send_id and platform_id
func (s *WsServer) verifyHandshake(ctx context.Context, token, sendId, platformIdStr string) (*handshake, int) {
	if s.onlineConnNum.Load() >= s.maxConnNum {
		return nil, http.StatusServiceUnavailable
	}
	if token == "" || sendId == "" {
		return nil, http.StatusBadRequest
	}

	platformId := 0
	if platformIdStr != "" {
		var err error
		platformId, err = strconv.Atoi(platformIdStr)
		if err != nil {
			return nil, http.StatusBadRequest
		}
	}

	claims, err := jwt.ValidateToken(token, s.cfg.JWT.Secret, sendId, platformId)
	if err != nil {
		log.CtxDebug(ctx, "token validation failed: send_id=%s, error=%v", sendId, err)
		return nil, http.StatusUnauthorized
	}
	return &handshake{userId: claims.UserId, platformId: claims.PlatformId}, http.StatusOK
}

// serve connects a session and runs its read loop until the connection ends
func (s *WsServer) serve(ctx context.Context, conn ClientConn, hs *handshake) {
	client := NewClient(conn, hs.userId, hs.platformId, uuid.New().String(), s)
	if err := s.Connect(ctx, client); err != nil {
		log.CtxWarn(ctx, "connect failed: user_id=%s, error=%v", hs.userId, err)
		conn.Close()
		return
	}
	client.readLoop()
}

// HandleConnection handles a new WebSocket connection on a net/http listener
func (s *WsServer) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	hs, status := s.verifyHandshake(ctx, query.Get(QueryToken), query.Get(QuerySendId), query.Get(QueryPlatformId))
	if hs == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: %v", err)
		return
	}

	s.serve(context.Background(), NewGorillaClientConn(conn, s.connOptions(hs.userId)), hs)
}

// GetOnlineUserCount returns online user count
func (s *WsServer) GetOnlineUserCount() int64 {
	return int64(s.userMap.GetOnlineUserCount())
}

// GetOnlineConnCount returns online connection count
func (s *WsServer) GetOnlineConnCount() int64 {
	return s.onlineConnNum.Load()
}
