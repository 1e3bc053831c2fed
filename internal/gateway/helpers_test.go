package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/notify"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/repository/memory"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/internal/typing"
	"github.com/mbeoliero/buildingchat/pkg/idgen"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-process ClientConn
type fakeConn struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:   make(chan []byte, 16),
		out:  make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-c.in:
		return m, nil
	case <-c.done:
		return nil, ErrConnClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrWriteChannelFull
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// send queues an intent as if the client had written it
func (c *fakeConn) send(t *testing.T, intent, reqId string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(WSRequest{Type: intent, ReqId: reqId, Data: raw})
	require.NoError(t, err)
	c.in <- frame
}

// expect returns the next frame of eventType, skipping others.
// Replies are matched with reqId; pushes with an empty reqId.
func (c *fakeConn) expect(t *testing.T, eventType, reqId string) WSResponse {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-c.out:
			var resp WSResponse
			require.NoError(t, json.Unmarshal(frame, &resp))
			if resp.Type == eventType && resp.ReqId == reqId {
				return resp
			}
		case <-deadline:
			t.Fatalf("no %s frame (req_id=%q)", eventType, reqId)
			return WSResponse{}
		}
	}
}

// expectNone fails if a push of eventType arrives within wait
func (c *fakeConn) expectNone(t *testing.T, eventType string, wait time.Duration) {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case frame := <-c.out:
			var resp WSResponse
			require.NoError(t, json.Unmarshal(frame, &resp))
			if resp.Type == eventType && resp.ReqId == "" {
				t.Fatalf("unexpected %s push: %s", eventType, string(frame))
			}
		case <-deadline:
			return
		}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *notify.Trigger) error { return nil }

type testServer struct {
	cfg      *config.Config
	presence *presence.Registry
	svc      *service.Services
	ws       *WsServer
}

// newTestServer seeds building 7 with u1, u2, u3 and building 8 with u4
func newTestServer(t *testing.T, tweak func(cfg *config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	if tweak != nil {
		tweak(cfg)
	}

	stores := memory.New()
	for _, u := range []*entity.Identity{
		{Id: "u1", DisplayName: "Ann", Role: "resident"},
		{Id: "u2", DisplayName: "Bob", Role: "manager"},
		{Id: "u3", DisplayName: "Cid", Role: "resident"},
		{Id: "u4", DisplayName: "Dee", Role: "other"},
	} {
		stores.Directory.AddUser(u)
	}
	stores.Directory.AddMember("7", "u1")
	stores.Directory.AddMember("7", "u2")
	stores.Directory.AddMember("7", "u3")
	stores.Directory.AddMember("8", "u4")

	registry := presence.NewRegistry(nil)
	tracker := typing.NewTracker(cfg.Chat.TypingTTL)
	dispatcher := notify.NewDispatcher(nopPublisher{}, 64)
	svc := service.NewServices(cfg, stores.Repositories(), registry, tracker, dispatcher, idgen.NewUUIDGenerator())

	ws := NewWsServer(cfg, svc, registry)
	svc.SetPusher(ws)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go dispatcher.Run(ctx)
	ws.Run(ctx)

	return &testServer{cfg: cfg, presence: registry, svc: svc, ws: ws}
}

// connect opens a session of userId over a fakeConn
func (s *testServer) connect(t *testing.T, userId, connId string) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	client := NewClient(conn, userId, 5, connId, s.ws)
	require.NoError(t, s.ws.Connect(context.Background(), client))
	client.Start()
	t.Cleanup(func() { conn.Close() })
	return client, conn
}
