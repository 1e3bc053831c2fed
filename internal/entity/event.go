package entity

// Event types exchanged over a session. Intents flow client to server,
// notifications flow server to client; some names are used both ways.
const (
	EventMessageSend       = "message.send"
	EventMessageNew        = "message.new"
	EventMessageEdit       = "message.edit"
	EventMessageDelete     = "message.delete"
	EventMessageHistory    = "message.history"
	EventMessageSync       = "message.sync"
	EventReactionToggle    = "reaction.toggle"
	EventReactionUpdate    = "reaction.update"
	EventTypingStart       = "typing.start"
	EventTypingStop        = "typing.stop"
	EventPresenceUpdate    = "presence.update"
	EventReadMark          = "read.mark"
	EventUnreadUpdate      = "unread.update"
	EventConversationStart = "conversation.start"
	EventConversationNew   = "conversation.new"
)

// Event is a committed state change to be delivered to sessions
type Event struct {
	Type     string `json:"type"`
	ParentId string `json:"parent_id,omitempty"`
	Data     any    `json:"data"`
}

// ViewerScoped payloads are rendered per recipient before delivery
type ViewerScoped interface {
	ForViewer(viewerId string) any
}

// TypingInfo is the payload of typing.start and typing.stop
type TypingInfo struct {
	ParentId string `json:"parent_id"`
	UserId   string `json:"user_id"`
}

// PresenceInfo is the payload of presence.update
type PresenceInfo struct {
	UserId   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
	LastSeen int64  `json:"last_seen"`
}
