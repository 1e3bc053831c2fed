package entity

// Room is the group chat of a building. Participants are the building's members.
type Room struct {
	Id         string `json:"id" gorm:"column:id;primaryKey"`
	BuildingId string `json:"building_id" gorm:"column:building_id;uniqueIndex"`
	CreatedAt  int64  `json:"created_at" gorm:"column:created_at"`
}

// TableName returns the table name for Room
func (Room) TableName() string {
	return "chat_rooms"
}

// RoomSummary is a room as listed for one user
type RoomSummary struct {
	RoomId            string       `json:"room_id"`
	BuildingId        string       `json:"building_id"`
	ParticipantsCount int          `json:"participants_count"`
	UnreadCount       int64        `json:"unread_count"`
	LastMessage       *MessageView `json:"last_message,omitempty"`
	CreatedAt         int64        `json:"created_at"`
}
