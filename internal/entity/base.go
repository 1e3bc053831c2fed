package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbeoliero/buildingchat/pkg/constant"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// ParentKind distinguishes rooms from direct conversations
type ParentKind int

const (
	ParentUnknown ParentKind = iota
	ParentRoom
	ParentConversation
)

func (k ParentKind) String() string {
	switch k {
	case ParentRoom:
		return "room"
	case ParentConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// GenRoomId generates the room Id of a building
// Format: rm_{buildingId}
func GenRoomId(buildingId string) string {
	return constant.RoomPrefix + buildingId
}

// GenConversationId generates the conversation Id of a pair within a building
// Format: dm_{buildingId}:{min(userA,userB)}:{max(userA,userB)}
func GenConversationId(buildingId, userA, userB string) string {
	a, b := SortPair(userA, userB)
	return fmt.Sprintf("%s%s:%s:%s", constant.ConversationPrefix, buildingId, a, b)
}

// SortPair returns the two user ids in lexicographic order
func SortPair(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

// ValidId reports whether an id can be embedded in a parent Id
func ValidId(id string) bool {
	return id != "" && !strings.Contains(id, ":")
}

// ParentRef is a parsed parent Id
type ParentRef struct {
	Id         string
	Kind       ParentKind
	BuildingId string
	UserA      string
	UserB      string
}

// ParseParentId parses a room or conversation Id; ok is false for malformed Ids
func ParseParentId(parentId string) (ParentRef, bool) {
	ref := ParentRef{Id: parentId}
	switch {
	case strings.HasPrefix(parentId, constant.RoomPrefix):
		ref.Kind = ParentRoom
		ref.BuildingId = parentId[len(constant.RoomPrefix):]
		return ref, ValidId(ref.BuildingId)
	case strings.HasPrefix(parentId, constant.ConversationPrefix):
		parts := strings.Split(parentId[len(constant.ConversationPrefix):], ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" || parts[1] >= parts[2] {
			return ref, false
		}
		ref.Kind = ParentConversation
		ref.BuildingId, ref.UserA, ref.UserB = parts[0], parts[1], parts[2]
		return ref, true
	default:
		return ref, false
	}
}

// IsRoom checks if parent Id is a room
func IsRoom(parentId string) bool {
	return strings.HasPrefix(parentId, constant.RoomPrefix)
}

// IsConversation checks if parent Id is a direct conversation
func IsConversation(parentId string) bool {
	return strings.HasPrefix(parentId, constant.ConversationPrefix)
}
