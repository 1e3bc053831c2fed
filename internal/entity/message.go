package entity

import "github.com/mbeoliero/buildingchat/pkg/constant"

// MessageContent is the client-supplied body of a message
type MessageContent struct {
	Text     string `json:"content"`
	FileUrl  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// Message is one entry of a room's or conversation's log.
// (ParentId, Id) is the identity; Id increases strictly within a parent.
type Message struct {
	ParentId    string `json:"parent_id" gorm:"column:parent_id;primaryKey;uniqueIndex:uk_client_msg,priority:1"`
	Id          int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement:false"`
	ServerMsgId string `json:"server_msg_id" gorm:"column:server_msg_id;uniqueIndex"`
	ClientMsgId string `json:"client_msg_id" gorm:"column:client_msg_id;uniqueIndex:uk_client_msg,priority:3"`
	SenderId    string `json:"sender_id" gorm:"column:sender_id;uniqueIndex:uk_client_msg,priority:2"`
	Type        string `json:"type" gorm:"column:type"`
	Content     string `json:"content" gorm:"column:content;type:text"`
	FileUrl     string `json:"file_url" gorm:"column:file_url"`
	FileName    string `json:"file_name" gorm:"column:file_name"`
	FileSize    int64  `json:"file_size" gorm:"column:file_size"`
	ReplyToId   int64  `json:"reply_to_id" gorm:"column:reply_to_id"`
	IsEdited    bool   `json:"is_edited" gorm:"column:is_edited"`
	IsDeleted   bool   `json:"is_deleted" gorm:"column:is_deleted"`
	CreatedAt   int64  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   int64  `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "chat_messages"
}

// GetContent returns message content as struct
func (m *Message) GetContent() MessageContent {
	return MessageContent{
		Text:     m.Content,
		FileUrl:  m.FileUrl,
		FileName: m.FileName,
		FileSize: m.FileSize,
	}
}

// SetContent sets message content from struct
func (m *Message) SetContent(c MessageContent) {
	m.Content = c.Text
	m.FileUrl = c.FileUrl
	m.FileName = c.FileName
	m.FileSize = c.FileSize
}

// ClearContent empties every content and file field, as a soft delete does
func (m *Message) ClearContent() {
	m.SetContent(MessageContent{})
}

// Clone returns a shallow copy
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// ReplyPreview is the quoted target of a reply
type ReplyPreview struct {
	Id        int64  `json:"id"`
	SenderId  string `json:"sender_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Content   string `json:"content"`
	IsDeleted bool   `json:"is_deleted"`
}

// NewReplyPreview builds the preview of target; a nil or deleted target renders as a placeholder
func NewReplyPreview(id int64, target *Message) *ReplyPreview {
	if target == nil {
		return &ReplyPreview{Id: id, Content: constant.DeletedPlaceholder, IsDeleted: true}
	}
	p := &ReplyPreview{
		Id:       target.Id,
		SenderId: target.SenderId,
		Type:     target.Type,
		Content:  target.Content,
	}
	if target.IsDeleted {
		p.Content = constant.DeletedPlaceholder
		p.IsDeleted = true
	}
	return p
}

// MessageView is a message as delivered to clients
type MessageView struct {
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

// ToView converts Message to MessageView
func (m *Message) ToView() *MessageView {
	return &MessageView{
		Id:          m.Id,
		ParentId:    m.ParentId,
		ServerMsgId: m.ServerMsgId,
		ClientMsgId: m.ClientMsgId,
		SenderId:    m.SenderId,
		Type:        m.Type,
		Content:     m.Content,
		FileUrl:     m.FileUrl,
		FileName:    m.FileName,
		FileSize:    m.FileSize,
		ReplyToId:   m.ReplyToId,
		IsEdited:    m.IsEdited,
		IsDeleted:   m.IsDeleted,
		Reactions:   []*ReactionSummary{},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ForViewer implements ViewerScoped
func (v *MessageView) ForViewer(viewerId string) any {
	c := *v
	c.Reactions = ForViewer(v.Reactions, viewerId)
	return &c
}

// HistoryPage is one page of a parent's log
type HistoryPage struct {
	Messages     []*MessageView `json:"messages"`
	NextBeforeId int64          `json:"next_before_id,omitempty"`
	HasMore      bool           `json:"has_more"`
}

// SyncPage is an ascending continuation after a known id
type SyncPage struct {
	Messages []*MessageView `json:"messages"`
	LastId   int64          `json:"last_id"`
	HasMore  bool           `json:"has_more"`
}
