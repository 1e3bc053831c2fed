package entity

// ReadCursor is the last message id a user acknowledged in a parent
type ReadCursor struct {
	UserId            string `json:"user_id" gorm:"column:user_id;primaryKey"`
	ParentId          string `json:"parent_id" gorm:"column:parent_id;primaryKey"`
	LastReadMessageId int64  `json:"last_read_message_id" gorm:"column:last_read_message_id"`
	UpdatedAt         int64  `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for ReadCursor
func (ReadCursor) TableName() string {
	return "chat_read_cursors"
}

// UnreadInfo is the payload of an unread.update event
type UnreadInfo struct {
	ParentId          string `json:"parent_id"`
	UnreadCount       int64  `json:"unread_count"`
	LastReadMessageId int64  `json:"last_read_message_id"`
}
