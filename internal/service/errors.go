package service

import (
	"errors"
	"fmt"
)

// Kind 错误类别，决定对外的状态码
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindInsufficientBalance
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInsufficientBalance:
		return "insufficient_balance"
	default:
		return "internal"
	}
}

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别的错误视为相等，便于 errors.Is(err, service.ErrConflict)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "参数错误"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "资源不存在"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "账户未启用"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "重复请求"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "账户余额不足"}
	ErrInternal            = &Error{Kind: KindInternal, Message: "服务器内部错误"}
)

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf 返回错误类别，非业务错误一律视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
