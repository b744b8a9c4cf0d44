package service

import (
	"errors"
	"fmt"

	"Gin_postgres_redis_lendshare/db"
)

// 错误分类：controllers 按 Sentinel 映射 HTTP 状态码
var (
	ErrValidation             = errors.New("validation error")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrNotFound               = errors.New("not found")
	ErrAuthenticationRequired = errors.New("authentication required")
)

// Error carries a caller-facing message next to its category.
type Error struct {
	Sentinel error
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *Error) Unwrap() error        { return e.Cause }

func validationf(format string, args ...any) error {
	return &Error{Sentinel: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func permissionf(format string, args ...any) error {
	return &Error{Sentinel: ErrPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Sentinel: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func authf(format string, args ...any) error {
	return &Error{Sentinel: ErrAuthenticationRequired, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing text of a taxonomy error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// notFoundOr 把存储层的 not found 换成业务 NotFound，其余原样返回
func notFoundOr(err error, what string) error {
	if db.IsNotFound(err) {
		return notFoundf("%s not found", what)
	}
	return err
}
