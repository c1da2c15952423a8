package errcode

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// 通知错误码约定（写入 WebSocket 推送）：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)

// Kind 对错误进行分类，决定 HTTP 状态码。
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindConflict
	KindForbidden
	KindUnauthorized
)

// Error 是服务层返回的业务错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status 返回对应的 HTTP 状态码。
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error   { return New(KindNotFound, msg) }
func BadRequest(msg string) *Error { return New(KindBadRequest, msg) }
func Conflict(msg string) *Error   { return New(KindConflict, msg) }
func Forbidden(msg string) *Error  { return New(KindForbidden, msg) }

// Internal 包装底层错误，消息原样透传给客户端。
func Internal(err error) *Error {
	return Wrap(KindInternal, err.Error(), err)
}

// From 将任意错误归类为 *Error。
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(KindConflict, "record already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(KindBadRequest, "invalid reference", err)
	default:
		return Internal(err)
	}
}

// Is 判断 err 是否属于给定分类。
func Is(err error, kind Kind) bool {
	e := From(err)
	return e != nil && e.Kind == kind
}
