package entity

// Conversation is a direct message thread between two users within a building.
// UserA < UserB; the pair never changes after creation.
type Conversation struct {
	Id         string `json:"id" gorm:"column:id;primaryKey"`
	BuildingId string `json:"building_id" gorm:"column:building_id;uniqueIndex:uk_building_pair"`
	UserA      string `json:"user_a" gorm:"column:user_a;uniqueIndex:uk_building_pair;index:idx_user_a"`
	UserB      string `json:"user_b" gorm:"column:user_b;uniqueIndex:uk_building_pair;index:idx_user_b"`
	CreatedAt  int64  `json:"created_at" gorm:"column:created_at"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "chat_conversations"
}

// HasParticipant reports whether userId is one of the pair
func (c *Conversation) HasParticipant(userId string) bool {
	return c.UserA == userId || c.UserB == userId
}

// Peer returns the other participant
func (c *Conversation) Peer(userId string) string {
	if c.UserA == userId {
		return c.UserB
	}
	return c.UserA
}

// ConversationSummary is a conversation as listed for one user
type ConversationSummary struct {
	ConversationId string          `json:"conversation_id"`
	BuildingId     string          `json:"building_id"`
	Peer           *PresenceRecord `json:"peer"`
	UnreadCount    int64           `json:"unread_count"`
	LastMessage    *MessageView    `json:"last_message,omitempty"`
	CreatedAt      int64           `json:"created_at"`
}
