// Package memory holds in-process implementations of the chat stores.
// They back the memory store driver and the service tests.
package memory

import (
	"github.com/mbeoliero/buildingchat/internal/repository"
)

// Stores groups the memory stores so callers can seed the directory
type Stores struct {
	Room         *RoomStore
	Conversation *ConversationStore
	Message      *MessageStore
	Seq          *SeqStore
	Reaction     *ReactionStore
	ReadCursor   *ReadCursorStore
	Directory    *Directory
}

// New creates empty memory stores
func New() *Stores {
	msgs := NewMessageStore()
	return &Stores{
		Room:         NewRoomStore(),
		Conversation: NewConversationStore(),
		Message:      msgs,
		Seq:          NewSeqStore(msgs),
		Reaction:     NewReactionStore(),
		ReadCursor:   NewReadCursorStore(),
		Directory:    NewDirectory(),
	}
}

// Repositories exposes the stores through repository.Repositories
func (s *Stores) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Room:         s.Room,
		Conversation: s.Conversation,
		Message:      s.Message,
		Seq:          s.Seq,
		Reaction:     s.Reaction,
		ReadCursor:   s.ReadCursor,
		Directory:    s.Directory,
	}
}

// NewRepositories creates memory backed repositories with an empty directory
func NewRepositories() *repository.Repositories {
	return New().Repositories()
}
