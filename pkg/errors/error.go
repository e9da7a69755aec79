package errors

import (
	"errors"
	"fmt"
)

// 표준 라이브러리 함수 재노출
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error extends error with a stable code used for transport mapping.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError is the application error carried from use cases to handlers.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

// Message returns the caller-facing message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Is matches another AppError by code, so errors.Is(err, NotFound("")) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !As(target, &t) {
		return false
	}
	return t.code == e.code && (t.message == "" || t.message == e.message)
}

// NewAppError creates an application error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...interface{}) *AppError {
	return NewAppError(ErrNotFound, fmt.Sprintf(format, args...), nil)
}

// BadRequest reports a validation failure.
func BadRequest(format string, args ...interface{}) *AppError {
	return NewAppError(ErrInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// Forbidden reports an authorization failure on an existing entity.
func Forbidden(format string, args ...interface{}) *AppError {
	return NewAppError(ErrUnauthorized, fmt.Sprintf(format, args...), nil)
}

// Conflict reports a uniqueness or state conflict.
func Conflict(format string, args ...interface{}) *AppError {
	return NewAppError(ErrConflict, fmt.Sprintf(format, args...), nil)
}

// Wrap wraps err keeping the code of an inner AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf returns the code of the outermost AppError, or ErrInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}
