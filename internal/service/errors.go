package service

import (
	"errors"
	"fmt"
)

// Классы ошибок бизнес-логики. HTTP слой маппит их в статус-коды через errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidState     = errors.New("invalid state")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// Error ошибка с классом (kind) и сообщением для клиента
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap позволяет errors.Is(err, ErrNotFound) и т.п.
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return newError(ErrInvalidArgument, format, args...)
}

func invalidState(format string, args ...any) error {
	return newError(ErrInvalidState, format, args...)
}

func permissionDenied(format string, args ...any) error {
	return newError(ErrPermissionDenied, format, args...)
}

func unauthenticated(format string, args ...any) error {
	return newError(ErrUnauthenticated, format, args...)
}

// IsClassified сообщает, несёт ли ошибка сообщение, которое можно показать клиенту
func IsClassified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
