package gateway

// Query parameter keys of the handshake
const (
	QueryToken      = "token"
	QuerySendId     = "send_id"
	QueryPlatformId = "platform_id"
)

// Intent types accepted from clients
const (
	IntentMessageSend       = "message.send"
	IntentMessageEdit       = "message.edit"
	IntentMessageDelete     = "message.delete"
	IntentMessageHistory    = "message.history"
	IntentMessageSync       = "message.sync"
	IntentReactionToggle    = "reaction.toggle"
	IntentTypingStart       = "typing.start"
	IntentTypingStop        = "typing.stop"
	IntentReadMark          = "read.mark"
	IntentConversationStart = "conversation.start"
)

// Defaults used when config leaves a value unset
const (
	defaultWriteChannelSize = 256
	defaultPushShardNum     = 16
	defaultPushChannelSize  = 1024
)
