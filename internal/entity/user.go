package entity

// Identity is a chat participant as read from the host application's user table
type Identity struct {
	Id          string `json:"id" gorm:"column:id;primaryKey"`
	DisplayName string `json:"display_name" gorm:"column:display_name"`
	Role        string `json:"role" gorm:"column:role"`
}

// TableName returns the table name for Identity
func (Identity) TableName() string {
	return "users"
}

// BuildingMember links a user to a building; owned by the host application
type BuildingMember struct {
	BuildingId string `json:"building_id" gorm:"column:building_id;primaryKey"`
	UserId     string `json:"user_id" gorm:"column:user_id;primaryKey;index"`
}

// TableName returns the table name for BuildingMember
func (BuildingMember) TableName() string {
	return "building_members"
}

// PresenceRecord is a participant's presence within a room or conversation
type PresenceRecord struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	ParentId    string `json:"parent_id,omitempty"`
	IsOnline    bool   `json:"is_online"`
	LastSeen    int64  `json:"last_seen"`
}
