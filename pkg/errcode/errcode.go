package errcode

import (
	"errors"
	"fmt"
)

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// Is reports whether target carries the same code, so wrapped errors still match their sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// From extracts the business error from err, falling back to ErrInternalServer
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternalServer
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam    = New(1001, "invalid parameter")
	ErrInternalServer  = New(1002, "internal server error")
	ErrUnauthorized    = New(1003, "unauthorized")
	ErrForbidden       = New(1004, "forbidden")
	ErrNotFound        = New(1005, "not found")
	ErrTooManyRequests = New(1006, "too many requests")
	ErrNoPermission    = New(1007, "no permission to access this resource")
	ErrConflict        = New(1008, "conflict")
	ErrTransient       = New(1009, "temporarily unavailable, retry")

	// Auth errors (2xxx)
	ErrTokenInvalid  = New(2001, "token invalid")
	ErrTokenExpired  = New(2002, "token expired")
	ErrTokenMissing  = New(2003, "token missing")
	ErrTokenMismatch = New(2004, "token user mismatch")
	ErrUserNotFound  = New(2006, "user not found")

	// Building errors (3xxx)
	ErrNotBuildingMember = New(3001, "not a member of the building")
	ErrBuildingNotFound  = New(3002, "building not found")

	// Message errors (4xxx)
	ErrMessageNotFound  = New(4001, "message not found")
	ErrParentNotFound   = New(4003, "room or conversation not found")
	ErrSeqAllocFailed   = New(4004, "seq allocation failed")
	ErrSendFailed       = New(4005, "message send failed")
	ErrPullFailed       = New(4006, "message pull failed")
	ErrContentInvalid   = New(4007, "message content invalid")
	ErrNotMessageOwner  = New(4008, "only the sender can modify this message")
	ErrNotParticipant   = New(4009, "not a participant of this room or conversation")
	ErrSelfConversation = New(4010, "a conversation needs two distinct participants")
	ErrMessageDeleted   = New(4011, "message has been deleted")
	ErrReplyTarget      = New(4012, "reply target not found in this room or conversation")

	// WebSocket errors (5xxx)
	ErrConnOverLimit   = New(5001, "connection over max limit")
	ErrConnClosed      = New(5002, "connection closed")
	ErrInvalidProtocol = New(5003, "invalid protocol")
	ErrPushFailed      = New(5004, "push message failed")
)

// Kind classifies an error into the chat error taxonomy
type Kind string

const (
	KindNone      Kind = ""
	KindInvalid   Kind = "invalid"
	KindForbidden Kind = "forbidden"
	KindNotFound  Kind = "not_found"
	KindConflict  Kind = "conflict"
	KindTransient Kind = "transient"
	KindInternal  Kind = "internal"
)

var kinds = map[int]Kind{
	ErrInvalidParam.Code:     KindInvalid,
	ErrContentInvalid.Code:   KindInvalid,
	ErrSelfConversation.Code: KindInvalid,
	ErrMessageDeleted.Code:   KindInvalid,
	ErrReplyTarget.Code:      KindInvalid,
	ErrInvalidProtocol.Code:  KindInvalid,

	ErrForbidden.Code:         KindForbidden,
	ErrNoPermission.Code:      KindForbidden,
	ErrNotMessageOwner.Code:   KindForbidden,
	ErrNotParticipant.Code:    KindForbidden,
	ErrNotBuildingMember.Code: KindForbidden,

	ErrNotFound.Code:         KindNotFound,
	ErrMessageNotFound.Code:  KindNotFound,
	ErrParentNotFound.Code:   KindNotFound,
	ErrUserNotFound.Code:     KindNotFound,
	ErrBuildingNotFound.Code: KindNotFound,

	ErrConflict.Code: KindConflict,

	ErrTransient.Code:       KindTransient,
	ErrTooManyRequests.Code: KindTransient,
}

// KindOf returns the taxonomy kind of err
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	e := From(err)
	if k, ok := kinds[e.Code]; ok {
		return k
	}
	return KindInternal
}

// IsTransient reports whether the caller may retry err
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
