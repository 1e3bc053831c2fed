// Package notify emits fire-and-forget push triggers for recipients that were
// offline when a message was committed. Delivery to devices happens elsewhere.
package notify

import (
	"context"
	"encoding/json"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
)

// Trigger is one offline notification request
type Trigger struct {
	UserId    string `json:"user_id"`
	ParentId  string `json:"parent_id"`
	MessageId int64  `json:"message_id"`
	SenderId  string `json:"sender_id"`
	Type      string `json:"type"`
	Preview   string `json:"preview"`
	CreatedAt int64  `json:"created_at"`
}

// Publisher hands a trigger to the outside world
type Publisher interface {
	Publish(ctx context.Context, trigger *Trigger) error
}

// RedisPublisher publishes triggers as JSON on a Redis channel
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a new RedisPublisher
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Publish publishes the trigger
func (p *RedisPublisher) Publish(ctx context.Context, trigger *Trigger) error {
	data, err := json.Marshal(trigger)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, data).Err()
}

// LogPublisher only logs triggers
type LogPublisher struct{}

// Publish logs the trigger
func (LogPublisher) Publish(ctx context.Context, trigger *Trigger) error {
	log.CtxInfo(ctx, "notify trigger: user_id=%s, parent_id=%s, message_id=%d, sender_id=%s",
		trigger.UserId, trigger.ParentId, trigger.MessageId, trigger.SenderId)
	return nil
}

// Dispatcher queues triggers and publishes them from a background loop
type Dispatcher struct {
	queue chan *Trigger
	pub   Publisher
}

// NewDispatcher creates a Dispatcher; a nil publisher discards every trigger
func NewDispatcher(pub Publisher, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		queue: make(chan *Trigger, queueSize),
		pub:   pub,
	}
}

// NewFromConfig picks the publisher selected by cfg.Notify.Driver
func NewFromConfig(cfg *config.Config, rdb *redis.Client) *Dispatcher {
	var pub Publisher
	switch cfg.Notify.Driver {
	case config.NotifyDriverRedis:
		if rdb != nil {
			pub = NewRedisPublisher(rdb, cfg.Redis.KeyPrefix+cfg.Notify.Channel)
		} else {
			log.Warn("notify driver redis without redis client, falling back to log")
			pub = LogPublisher{}
		}
	case config.NotifyDriverLog:
		pub = LogPublisher{}
	}
	return NewDispatcher(pub, cfg.Notify.QueueSize)
}

// Notify queues a trigger without blocking; it reports false when the trigger was dropped
func (d *Dispatcher) Notify(trigger *Trigger) bool {
	if d == nil || d.pub == nil {
		return false
	}

	select {
	case d.queue <- trigger:
		return true
	default:
		log.Warn("notify queue full, trigger dropped: user_id=%s, parent_id=%s, message_id=%d",
			trigger.UserId, trigger.ParentId, trigger.MessageId)
		return false
	}
}

// Run publishes queued triggers until ctx is done
func (d *Dispatcher) Run(ctx context.Context) {
	if d.pub == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-d.queue:
			if err := d.pub.Publish(ctx, trigger); err != nil {
				log.CtxWarn(ctx, "notify publish failed: user_id=%s, parent_id=%s, error=%v",
					trigger.UserId, trigger.ParentId, err)
			}
		}
	}
}
