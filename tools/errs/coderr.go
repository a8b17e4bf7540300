package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// CodeError is the structured failure shape surfaced to clients over the
// real-time channel (send acks). Code values are stable; Msg is safe to show
// to end users; Detail is for logs only.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Msg, e.Detail)
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Gateway error codes.
const (
	CodeInvalidRequest = 1001
	CodeAccessDenied   = 1002
	CodeContentTooLong = 1003
	CodeInternal       = 1500
)

var (
	ErrInvalidRequest = NewCodeError(CodeInvalidRequest, "invalid request")
	ErrInvalidChatID  = NewCodeError(CodeInvalidRequest, "invalid chat id")
	ErrEmptyContent   = NewCodeError(CodeInvalidRequest, "message content is required")
	ErrContentTooLong = NewCodeError(CodeContentTooLong, "message too long")
	ErrChatAccess     = NewCodeError(CodeAccessDenied, "chat not found or access denied")
	ErrSendFailed     = NewCodeError(CodeInternal, "failed to send message")
	ErrPeerBlocked    = NewCodeError(CodeAccessDenied, "cannot create chat with this user")
)

// New / Wrap / WrapMsg delegate to pkg/errors so infrastructure call sites get
// stack traces without importing two error packages.
func New(msg string) error { return errors.New(msg) }

func Wrap(err error) error { return errors.WithStack(err) }

func WrapMsg(err error, msg string, kv ...any) error {
	if len(kv) > 0 {
		msg = msg + " " + fmt.Sprint(kv...)
	}
	return errors.Wrap(err, msg)
}
