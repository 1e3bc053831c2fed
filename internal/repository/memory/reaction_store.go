package memory

import (
	"context"
	"sync"

	"github.com/mbeoliero/buildingchat/internal/entity"
)

type reactionKey struct {
	parentId  string
	messageId int64
	emoji     string
	userId    string
}

// ReactionStore keeps reactions in memory
type ReactionStore struct {
	mu        sync.RWMutex
	reactions map[reactionKey]*entity.Reaction
}

// NewReactionStore creates a new ReactionStore
func NewReactionStore() *ReactionStore {
	return &ReactionStore{reactions: make(map[reactionKey]*entity.Reaction)}
}

// Toggle removes the row if present, otherwise inserts it
func (s *ReactionStore) Toggle(_ context.Context, reaction *entity.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{reaction.ParentId, reaction.MessageId, reaction.Emoji, reaction.UserId}
	if _, ok := s.reactions[key]; ok {
		delete(s.reactions, key)
		return false, nil
	}
	if reaction.CreatedAt == 0 {
		reaction.CreatedAt = entity.NowUnixMilli()
	}
	c := *reaction
	s.reactions[key] = &c
	return true, nil
}

// ListByMessages gets all reactions of the given messages
func (s *ReactionStore) ListByMessages(_ context.Context, parentId string, messageIds []int64) ([]*entity.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[int64]struct{}, len(messageIds))
	for _, id := range messageIds {
		want[id] = struct{}{}
	}
	result := make([]*entity.Reaction, 0)
	for key, r := range s.reactions {
		if key.parentId != parentId {
			continue
		}
		if _, ok := want[key.messageId]; ok {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

// ReadCursorStore keeps read cursors in memory
type ReadCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]map[string]int64 // user -> parent -> id
}

// NewReadCursorStore creates a new ReadCursorStore
func NewReadCursorStore() *ReadCursorStore {
	return &ReadCursorStore{cursors: make(map[string]map[string]int64)}
}

// Get gets a user's cursor in a parent
func (s *ReadCursorStore) Get(_ context.Context, userId, parentId string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[userId][parentId], nil
}

// GetMany gets a user's cursors for several parents
func (s *ReadCursorStore) GetMany(_ context.Context, userId string, parentIds []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64, len(parentIds))
	for _, parentId := range parentIds {
		if v, ok := s.cursors[userId][parentId]; ok {
			result[parentId] = v
		}
	}
	return result, nil
}

// Advance moves the cursor forward only
func (s *ReadCursorStore) Advance(_ context.Context, userId, parentId string, upTo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byParent, ok := s.cursors[userId]
	if !ok {
		byParent = make(map[string]int64)
		s.cursors[userId] = byParent
	}
	if upTo > byParent[parentId] {
		byParent[parentId] = upTo
	}
	return nil
}
