package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/internal/notify"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/repository/memory"
	"github.com/mbeoliero/buildingchat/internal/typing"
	"github.com/mbeoliero/buildingchat/pkg/idgen"
	"github.com/stretchr/testify/require"
)

type pushed struct {
	target string
	toUser bool
	ev     *entity.Event
}

type recordingPusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPusher) PushToParent(parentId string, ev *entity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{target: parentId, ev: ev})
}

func (p *recordingPusher) PushToUser(userId string, ev *entity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{target: userId, toUser: true, ev: ev})
}

func (p *recordingPusher) ofType(eventType string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pushed, 0)
	for _, e := range p.events {
		if e.ev.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type capturePublisher struct {
	ch chan *notify.Trigger
}

func (p *capturePublisher) Publish(_ context.Context, trigger *notify.Trigger) error {
	select {
	case p.ch <- trigger:
	default:
	}
	return nil
}

type harness struct {
	cfg      *config.Config
	stores   *memory.Stores
	presence *presence.Registry
	tracker  *typing.Tracker
	triggers chan *notify.Trigger
	pusher   *recordingPusher
	svc      *Services
}

// newHarness seeds building 7 with u1, u2, u3 and building 8 with u4
func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.Default()
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
	pub := &capturePublisher{ch: make(chan *notify.Trigger, 64)}
	dispatcher := notify.NewDispatcher(pub, 64)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go dispatcher.Run(ctx)

	svc := NewServices(cfg, stores.Repositories(), registry, tracker, dispatcher, idgen.NewUUIDGenerator())
	pusher := &recordingPusher{}
	svc.SetPusher(pusher)

	return &harness{
		cfg:      cfg,
		stores:   stores,
		presence: registry,
		tracker:  tracker,
		triggers: pub.ch,
		pusher:   pusher,
		svc:      svc,
	}
}

func (h *harness) send(t *testing.T, senderId, parentId, clientMsgId, content string) *entity.MessageView {
	t.Helper()
	v, err := h.svc.Message.Send(context.Background(), senderId, &SendMessageRequest{
		ParentId:    parentId,
		ClientMsgId: clientMsgId,
		Content:     content,
	})
	require.NoError(t, err)
	return v
}

func (h *harness) nextTrigger(t *testing.T) *notify.Trigger {
	t.Helper()
	select {
	case tr := <-h.triggers:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("no notify trigger")
		return nil
	}
}
