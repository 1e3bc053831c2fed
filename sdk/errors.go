package sdk

import (
	"errors"
	"fmt"
)

// Error represents an API error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %d, msg: %s", e.Code, e.Msg)
}

// IsCode reports whether err is an API error with code
func IsCode(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Error codes returned by the server
const (
	CodeSuccess = 0

	CodeInvalidParam    = 1001
	CodeInternalServer  = 1002
	CodeUnauthorized    = 1003
	CodeForbidden       = 1004
	CodeNotFound        = 1005
	CodeTooManyRequests = 1006
	CodeConflict        = 1008
	CodeTransient       = 1009

	CodeTokenInvalid = 2001
	CodeTokenExpired = 2002
	CodeTokenMissing = 2003

	CodeNotBuildingMember = 3001

	CodeMessageNotFound  = 4001
	CodeParentNotFound   = 4003
	CodeContentInvalid   = 4007
	CodeNotMessageOwner  = 4008
	CodeNotParticipant   = 4009
	CodeSelfConversation = 4010
	CodeMessageDeleted   = 4011
	CodeReplyTarget      = 4012
)
