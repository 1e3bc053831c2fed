package constant

import "time"

// Message types
const (
	MsgTypeText   = "text"
	MsgTypeImage  = "image"
	MsgTypeFile   = "file"
	MsgTypeSystem = "system"
)

// Identity roles, display only
const (
	RoleManager         = "manager"
	RoleInternalManager = "internal_manager"
	RoleResident        = "resident"
	RoleOther           = "other"
)

// NormalizeRole maps roles the chat does not know to RoleOther
func NormalizeRole(role string) string {
	switch role {
	case RoleManager, RoleInternalManager, RoleResident:
		return role
	default:
		return RoleOther
	}
}

// DeletedPlaceholder is rendered in place of a soft-deleted reply target
const DeletedPlaceholder = "message deleted"

// Platform Ids
const (
	PlatformIdUnknown = 0
	PlatformIdIOS     = 1
	PlatformIdAndroid = 2
	PlatformIdWindows = 3
	PlatformIdMacOS   = 4
	PlatformIdWeb     = 5
)

// PlatformIdToName converts platform Id to name
func PlatformIdToName(platformId int) string {
	switch platformId {
	case PlatformIdIOS:
		return "iOS"
	case PlatformIdAndroid:
		return "Android"
	case PlatformIdWindows:
		return "Windows"
	case PlatformIdMacOS:
		return "macOS"
	case PlatformIdWeb:
		return "Web"
	default:
		return "Unknown"
	}
}

// Parent Id prefixes
const (
	RoomPrefix         = "rm_"
	ConversationPrefix = "dm_"
)

// OnlineTTL is how long a Redis online key survives without a heartbeat
const OnlineTTL = 60 * time.Second

// Redis key patterns (without prefix, use RedisKey() to get full key)
const (
	redisKeyOnline    = "online:%s"     // online:{user_id}
	redisKeyLastSeen  = "last_seen:%s"  // last_seen:{user_id}
	redisKeySeqParent = "seq:parent:%s" // seq:parent:{parent_id}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "buildingchat:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyOnline() string    { return redisKeyPrefix + redisKeyOnline }
func RedisKeyLastSeen() string  { return redisKeyPrefix + redisKeyLastSeen }
func RedisKeySeqParent() string { return redisKeyPrefix + redisKeySeqParent }
