package db

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no rows.
	ErrNotFound = errors.New("db: record not found")

	// ErrDuplicateKey is returned on unique constraint violations.
	ErrDuplicateKey = errors.New("db: duplicate key")
)

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }

// Error keeps the driver error next to the sentinel it was mapped to.
type Error struct {
	Sentinel error
	Cause    error
}

func (e *Error) Error() string        { return fmt.Sprintf("%s (cause: %v)", e.Sentinel, e.Cause) }
func (e *Error) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *Error) Unwrap() error        { return e.Cause }

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Sentinel: ErrNotFound, Cause: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Sentinel: ErrDuplicateKey, Cause: err}
	}
	// 兜底：驱动没翻译时按文本识别（pq SQLSTATE / sqlite）
	s := err.Error()
	if strings.Contains(s, "SQLSTATE 23505") || strings.Contains(s, "UNIQUE constraint failed") {
		return &Error{Sentinel: ErrDuplicateKey, Cause: err}
	}
	return err
}
