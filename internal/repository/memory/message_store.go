package memory

import (
	"context"
	"sync"

	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/buildingchat/pkg/errcode"
)

type parentLog struct {
	mu sync.RWMutex
	// messages in ascending id order
	messages []*entity.Message
	byId     map[int64]*entity.Message
	byClient map[string]*entity.Message
}

// MessageStore keeps each parent's log in memory.
// mu guards only the parents map; each log carries its own lock.
type MessageStore struct {
	mu      sync.RWMutex
	parents map[string]*parentLog
}

// NewMessageStore creates a new MessageStore
func NewMessageStore() *MessageStore {
	return &MessageStore{parents: make(map[string]*parentLog)}
}

func (s *MessageStore) log(parentId string) (*parentLog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pl, ok := s.parents[parentId]
	return pl, ok
}

func (s *MessageStore) logOrCreate(parentId string) *parentLog {
	if pl, ok := s.log(parentId); ok {
		return pl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.parents[parentId]
	if !ok {
		pl = &parentLog{
			byId:     make(map[int64]*entity.Message),
			byClient: make(map[string]*entity.Message),
		}
		s.parents[parentId] = pl
	}
	return pl
}

func clientKey(senderId, clientMsgId string) string {
	return senderId + "\x00" + clientMsgId
}

// Create appends a message; ids must arrive in increasing order per parent
func (s *MessageStore) Create(_ context.Context, msg *entity.Message) error {
	pl := s.logOrCreate(msg.ParentId)
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if _, dup := pl.byId[msg.Id]; dup {
		return errcode.ErrConflict
	}
	key := clientKey(msg.SenderId, msg.ClientMsgId)
	if msg.ClientMsgId != "" {
		if _, dup := pl.byClient[key]; dup {
			return errcode.ErrConflict
		}
	}
	if n := len(pl.messages); n > 0 && pl.messages[n-1].Id >= msg.Id {
		return errcode.ErrConflict
	}

	c := msg.Clone()
	pl.messages = append(pl.messages, c)
	pl.byId[c.Id] = c
	if c.ClientMsgId != "" {
		pl.byClient[key] = c
	}
	return nil
}

// Get gets a message by parent and id
func (s *MessageStore) Get(_ context.Context, parentId string, id int64) (*entity.Message, error) {
	pl, ok := s.log(parentId)
	if !ok {
		return nil, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	msg, ok := pl.byId[id]
	if !ok {
		return nil, nil
	}
	return msg.Clone(), nil
}

// GetByIds gets messages of a parent by id list, ascending
func (s *MessageStore) GetByIds(_ context.Context, parentId string, ids []int64) ([]*entity.Message, error) {
	result := make([]*entity.Message, 0, len(ids))
	pl, ok := s.log(parentId)
	if !ok {
		return result, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, msg := range pl.messages {
		if _, ok := want[msg.Id]; ok {
			result = append(result, msg.Clone())
		}
	}
	return result, nil
}

// GetByClientMsgId gets message by sender and client_msg_id
func (s *MessageStore) GetByClientMsgId(_ context.Context, parentId, senderId, clientMsgId string) (*entity.Message, error) {
	pl, ok := s.log(parentId)
	if !ok {
		return nil, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	msg, ok := pl.byClient[clientKey(senderId, clientMsgId)]
	if !ok {
		return nil, nil
	}
	return msg.Clone(), nil
}

// UpdateOverlay writes the mutable fields of a message
func (s *MessageStore) UpdateOverlay(_ context.Context, msg *entity.Message) error {
	pl, ok := s.log(msg.ParentId)
	if !ok {
		return errcode.ErrMessageNotFound
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	stored, ok := pl.byId[msg.Id]
	if !ok {
		return errcode.ErrMessageNotFound
	}
	stored.SetContent(msg.GetContent())
	stored.IsEdited = msg.IsEdited
	stored.IsDeleted = msg.IsDeleted
	stored.UpdatedAt = msg.UpdatedAt
	return nil
}

// ListBefore gets up to limit messages older than beforeId, newest first
func (s *MessageStore) ListBefore(_ context.Context, parentId string, beforeId int64, limit int) ([]*entity.Message, error) {
	result := make([]*entity.Message, 0)
	pl, ok := s.log(parentId)
	if !ok {
		return result, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	for i := len(pl.messages) - 1; i >= 0 && len(result) < limit; i-- {
		msg := pl.messages[i]
		if beforeId > 0 && msg.Id >= beforeId {
			continue
		}
		result = append(result, msg.Clone())
	}
	return result, nil
}

// ListAfter gets up to limit messages newer than afterId, oldest first
func (s *MessageStore) ListAfter(_ context.Context, parentId string, afterId int64, limit int) ([]*entity.Message, error) {
	result := make([]*entity.Message, 0)
	pl, ok := s.log(parentId)
	if !ok {
		return result, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	for _, msg := range pl.messages {
		if len(result) >= limit {
			break
		}
		if msg.Id > afterId {
			result = append(result, msg.Clone())
		}
	}
	return result, nil
}

// MaxId gets the highest stored id of a parent
func (s *MessageStore) MaxId(_ context.Context, parentId string) (int64, error) {
	pl, ok := s.log(parentId)
	if !ok || len(pl.messages) == 0 {
		return 0, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.messages[len(pl.messages)-1].Id, nil
}

// CountAfter counts messages after afterId not sent by excludeSenderId
func (s *MessageStore) CountAfter(_ context.Context, parentId string, afterId int64, excludeSenderId string) (int64, error) {
	pl, ok := s.log(parentId)
	if !ok {
		return 0, nil
	}
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	var count int64
	for _, msg := range pl.messages {
		if msg.Id > afterId && msg.SenderId != excludeSenderId {
			count++
		}
	}
	return count, nil
}

// SeqStore allocates ids from an in-memory counter per parent
type SeqStore struct {
	mu       sync.Mutex
	seqs     map[string]int64
	messages *MessageStore
}

// NewSeqStore creates a new SeqStore seeded lazily from messages
func NewSeqStore(messages *MessageStore) *SeqStore {
	return &SeqStore{seqs: make(map[string]int64), messages: messages}
}

// AllocSeq allocates the next id for a parent
func (s *SeqStore) AllocSeq(ctx context.Context, parentId string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.seqs[parentId]
	if !ok && s.messages != nil {
		maxId, err := s.messages.MaxId(ctx, parentId)
		if err != nil {
			return 0, err
		}
		cur = maxId
	}
	cur++
	s.seqs[parentId] = cur
	return cur, nil
}
