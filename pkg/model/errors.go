package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed command for the presentation layer.
type ErrorCode string

const (
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeAlreadyCompleted   ErrorCode = "ALREADY_COMPLETED"
	CodeDeadlineMissed     ErrorCode = "DEADLINE_MISSED"
	CodeInsufficientPoints ErrorCode = "INSUFFICIENT_POINTS"
	CodeEmptyBucket        ErrorCode = "EMPTY_BUCKET"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodePersistence        ErrorCode = "PERSISTENCE_FAILURE"
	CodeBusy               ErrorCode = "BUSY"
)

// Error is a domain-level error. A command that returns one has made no
// change to the engine state.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf builds a domain error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the code of a domain error, or "" for any other error.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ""
}
