// Package presence tracks which users are online in this process and which
// rooms and conversations each online user is subscribed to.
package presence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
)

// Registry is the process-local presence state with an optional Redis mirror
type Registry struct {
	mu       sync.RWMutex
	online   map[string]struct{}            // userId
	lastSeen map[string]int64               // userId -> unix ms
	subs     map[string]map[string]struct{} // parentId -> userIds
	parents  map[string]map[string]struct{} // userId -> parentIds
	rdb      *redis.Client
	now      func() time.Time
}

// NewRegistry creates a Registry; rdb may be nil
func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{
		online:   make(map[string]struct{}),
		lastSeen: make(map[string]int64),
		subs:     make(map[string]map[string]struct{}),
		parents:  make(map[string]map[string]struct{}),
		rdb:      rdb,
		now:      time.Now,
	}
}

// SetClock replaces the clock, for tests
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// MarkOnline marks userId online and subscribes it to parentIds.
// It returns false when the user was already online.
func (r *Registry) MarkOnline(ctx context.Context, userId string, parentIds []string) bool {
	r.mu.Lock()
	_, already := r.online[userId]
	r.online[userId] = struct{}{}
	for _, parentId := range parentIds {
		r.subscribeLocked(parentId, userId)
	}
	r.mu.Unlock()

	if !already {
		r.setOnline(ctx, userId)
	}
	return !already
}

// MarkOffline marks userId offline, records last_seen and drops its subscriptions.
// It returns the parents the user was subscribed to and the recorded last_seen.
func (r *Registry) MarkOffline(ctx context.Context, userId string) ([]string, int64) {
	r.mu.Lock()
	delete(r.online, userId)
	lastSeen := r.now().UnixMilli()
	r.lastSeen[userId] = lastSeen

	parentIds := make([]string, 0, len(r.parents[userId]))
	for parentId := range r.parents[userId] {
		parentIds = append(parentIds, parentId)
		if set, ok := r.subs[parentId]; ok {
			delete(set, userId)
			if len(set) == 0 {
				delete(r.subs, parentId)
			}
		}
	}
	delete(r.parents, userId)
	r.mu.Unlock()

	sort.Strings(parentIds)
	r.setOffline(ctx, userId, lastSeen)
	return parentIds, lastSeen
}

// IsOnline reports whether userId is online locally or, with a mirror, on another process
func (r *Registry) IsOnline(ctx context.Context, userId string) bool {
	r.mu.RLock()
	_, ok := r.online[userId]
	r.mu.RUnlock()
	if ok {
		return true
	}

	if r.rdb != nil {
		key := fmt.Sprintf(constant.RedisKeyOnline(), userId)
		exists, err := r.rdb.Exists(ctx, key).Result()
		if err != nil {
			log.CtxDebug(ctx, "presence online lookup failed: user_id=%s, error=%v", userId, err)
			return false
		}
		return exists > 0
	}
	return false
}

// LastSeen returns the last offline transition of userId, 0 when unknown
func (r *Registry) LastSeen(ctx context.Context, userId string) int64 {
	r.mu.RLock()
	v, ok := r.lastSeen[userId]
	r.mu.RUnlock()
	if ok {
		return v
	}

	if r.rdb != nil {
		key := fmt.Sprintf(constant.RedisKeyLastSeen(), userId)
		s, err := r.rdb.Get(ctx, key).Result()
		if err != nil {
			if err != redis.Nil {
				log.CtxDebug(ctx, "presence last_seen lookup failed: user_id=%s, error=%v", userId, err)
			}
			return 0
		}
		v, _ = strconv.ParseInt(s, 10, 64)
		return v
	}
	return 0
}

// Snapshot returns the presence of each user in userIds, in order
func (r *Registry) Snapshot(ctx context.Context, userIds []string) []*entity.PresenceInfo {
	result := make([]*entity.PresenceInfo, 0, len(userIds))
	for _, userId := range userIds {
		info := &entity.PresenceInfo{UserId: userId, IsOnline: r.IsOnline(ctx, userId)}
		if !info.IsOnline {
			info.LastSeen = r.LastSeen(ctx, userId)
		}
		result = append(result, info)
	}
	return result
}

// Subscribe adds userId to the subscribers of parentId if the user is online
func (r *Registry) Subscribe(parentId, userId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.online[userId]; !ok {
		return false
	}
	r.subscribeLocked(parentId, userId)
	return true
}

func (r *Registry) subscribeLocked(parentId, userId string) {
	set, ok := r.subs[parentId]
	if !ok {
		set = make(map[string]struct{})
		r.subs[parentId] = set
	}
	set[userId] = struct{}{}

	ps, ok := r.parents[userId]
	if !ok {
		ps = make(map[string]struct{})
		r.parents[userId] = ps
	}
	ps[parentId] = struct{}{}
}

// Unsubscribe removes userId from the subscribers of parentId
func (r *Registry) Unsubscribe(parentId, userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.subs[parentId]; ok {
		delete(set, userId)
		if len(set) == 0 {
			delete(r.subs, parentId)
		}
	}
	if ps, ok := r.parents[userId]; ok {
		delete(ps, parentId)
		if len(ps) == 0 {
			delete(r.parents, userId)
		}
	}
}

// Subscribers returns the online users subscribed to parentId, sorted
func (r *Registry) Subscribers(parentId string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userIds := make([]string, 0, len(r.subs[parentId]))
	for userId := range r.subs[parentId] {
		userIds = append(userIds, userId)
	}
	sort.Strings(userIds)
	return userIds
}

// ParentsOf returns the parents userId is subscribed to, sorted
func (r *Registry) ParentsOf(userId string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parentIds := make([]string, 0, len(r.parents[userId]))
	for parentId := range r.parents[userId] {
		parentIds = append(parentIds, parentId)
	}
	sort.Strings(parentIds)
	return parentIds
}

// OnlineCount returns the number of locally online users
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.online)
}

// Refresh extends the Redis online key of a locally online user
func (r *Registry) Refresh(ctx context.Context, userId string) {
	if r.rdb == nil {
		return
	}
	r.mu.RLock()
	_, ok := r.online[userId]
	r.mu.RUnlock()
	if !ok {
		return
	}

	key := fmt.Sprintf(constant.RedisKeyOnline(), userId)
	if err := r.rdb.Expire(ctx, key, constant.OnlineTTL).Err(); err != nil {
		log.CtxDebug(ctx, "presence refresh failed: user_id=%s, error=%v", userId, err)
	}
}

// setOnline marks user as online in Redis
func (r *Registry) setOnline(ctx context.Context, userId string) {
	if r.rdb == nil {
		return
	}

	key := fmt.Sprintf(constant.RedisKeyOnline(), userId)
	if err := r.rdb.Set(ctx, key, "1", constant.OnlineTTL).Err(); err != nil {
		log.CtxWarn(ctx, "presence set online failed: user_id=%s, error=%v", userId, err)
	}
}

// setOffline marks user as offline in Redis and stores last_seen
func (r *Registry) setOffline(ctx context.Context, userId string, lastSeen int64) {
	if r.rdb == nil {
		return
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(constant.RedisKeyOnline(), userId))
	pipe.Set(ctx, fmt.Sprintf(constant.RedisKeyLastSeen(), userId), lastSeen, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		log.CtxWarn(ctx, "presence set offline failed: user_id=%s, error=%v", userId, err)
	}
}
