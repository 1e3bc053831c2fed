package gateway

import "encoding/json"

// WSRequest is a client intent frame
type WSRequest struct {
	Type  string          `json:"type"`
	ReqId string          `json:"req_id"`
	Data  json.RawMessage `json:"data"`
}

// WSResponse is a reply to an intent or, without req_id, a server push
type WSResponse struct {
	Type    string          `json:"type"`
	ReqId   string          `json:"req_id,omitempty"`
	ErrCode int             `json:"err_code"`
	ErrMsg  string          `json:"err_msg"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// EditMsgReq represents message.edit data
type EditMsgReq struct {
	ParentId  string `json:"parent_id"`
	MessageId int64  `json:"message_id"`
	Content   string `json:"content"`
}

// DeleteMsgReq represents message.delete data
type DeleteMsgReq struct {
	ParentId  string `json:"parent_id"`
	MessageId int64  `json:"message_id"`
}

// ReactionToggleReq represents reaction.toggle data
type ReactionToggleReq struct {
	ParentId  string `json:"parent_id"`
	MessageId int64  `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// TypingReq represents typing.start and typing.stop data
type TypingReq struct {
	ParentId string `json:"parent_id"`
}

// ReadMarkReq represents read.mark data
type ReadMarkReq struct {
	ParentId      string `json:"parent_id"`
	UpToMessageId int64  `json:"up_to_message_id"`
}

// HistoryReq represents message.history data
type HistoryReq struct {
	ParentId string `json:"parent_id"`
	BeforeId int64  `json:"before_id"`
	Limit    int    `json:"limit"`
}

// SyncReq represents message.sync data
type SyncReq struct {
	ParentId string `json:"parent_id"`
	AfterId  int64  `json:"after_id"`
	Limit    int    `json:"limit"`
}

// ConversationStartReq represents conversation.start data
type ConversationStartReq struct {
	PeerId     string `json:"peer_id"`
	BuildingId string `json:"building_id"`
}

// Encode encodes data to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes to struct
func Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
