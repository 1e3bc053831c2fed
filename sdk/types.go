package sdk

import "encoding/json"

// Response represents the standard API response
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types
const (
	MsgTypeText  = "text"
	MsgTypeImage = "image"
	MsgTypeFile  = "file"
)

// SendMessageRequest is the body of /msg/send
type SendMessageRequest struct {
	ParentId    string `json:"parent_id"`
	ClientMsgId string `json:"client_msg_id"`
	Type        string `json:"type,omitempty"`
	Content     string `json:"content"`
	FileUrl     string `json:"file_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	ReplyToId   int64  `json:"reply_to_id,omitempty"`
}

// ReplyPreview is the quoted target of a reply
type ReplyPreview struct {
	Id        int64  `json:"id"`
	SenderId  string `json:"sender_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Content   string `json:"content"`
	IsDeleted bool   `json:"is_deleted"`
}

// ReactionSummary aggregates one emoji on one message
type ReactionSummary struct {
	Emoji                 string   `json:"emoji"`
	Count                 int      `json:"count"`
	UserIds               []string `json:"user_ids"`
	CurrentUserHasReacted bool     `json:"current_user_has_reacted"`
}

// Message is a message as seen by the caller
type Message struct {
	Id          int64              `json:"id"`
	ParentId    string             `json:"parent_id"`
	ServerMsgId string             `json:"server_msg_id"`
	ClientMsgId string             `json:"client_msg_id"`
	SenderId    string             `json:"sender_id"`
	Type        string             `json:"type"`
	Content     string             `json:"content"`
	FileUrl     string             `json:"file_url,omitempty"`
	FileName    string             `json:"file_name,omitempty"`
	FileSize    int64              `json:"file_size,omitempty"`
	ReplyToId   int64              `json:"reply_to_id,omitempty"`
	ReplyTo     *ReplyPreview      `json:"reply_to,omitempty"`
	IsEdited    bool               `json:"is_edited"`
	IsDeleted   bool               `json:"is_deleted"`
	Reactions   []*ReactionSummary `json:"reactions"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
}

// HistoryPage is a descending page of messages
type HistoryPage struct {
	Messages     []*Message `json:"messages"`
	NextBeforeId int64      `json:"next_before_id,omitempty"`
	HasMore      bool       `json:"has_more"`
}

// SyncPage is an ascending page of messages
type SyncPage struct {
	Messages []*Message `json:"messages"`
	LastId   int64      `json:"last_id"`
	HasMore  bool       `json:"has_more"`
}

// Presence is a user's presence, optionally within a room or conversation
type Presence struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	ParentId    string `json:"parent_id,omitempty"`
	IsOnline    bool   `json:"is_online"`
	LastSeen    int64  `json:"last_seen"`
}

// Room is the summary of a building room
type Room struct {
	RoomId            string   `json:"room_id"`
	BuildingId        string   `json:"building_id"`
	ParticipantsCount int      `json:"participants_count"`
	UnreadCount       int64    `json:"unread_count"`
	LastMessage       *Message `json:"last_message,omitempty"`
	CreatedAt         int64    `json:"created_at"`
}

// Conversation is the summary of a direct conversation
type Conversation struct {
	ConversationId string    `json:"conversation_id"`
	BuildingId     string    `json:"building_id"`
	Peer           *Presence `json:"peer"`
	UnreadCount    int64     `json:"unread_count"`
	LastMessage    *Message  `json:"last_message,omitempty"`
	CreatedAt      int64     `json:"created_at"`
}

// UnreadInfo is the read state of the caller in a parent
type UnreadInfo struct {
	ParentId          string `json:"parent_id"`
	UnreadCount       int64  `json:"unread_count"`
	LastReadMessageId int64  `json:"last_read_message_id"`
}
