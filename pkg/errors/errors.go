// Package errors defines the error taxonomy shared by services and handlers.
//
// Every domain failure wraps one of the Err* kinds so callers can branch with
// errors.Is without knowing which service produced it.
package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock reports that a versioned row was changed by another writer.
var ErrOptimisticLock = errors.New("record was modified concurrently, please retry")

// Error kinds.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrExpired      = errors.New("expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream provider failure")
)

// Error is a classified failure with a message that is safe to show users.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation builds a ValidationError.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError for the named resource.
func NotFound(what string) *Error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// AlreadyUsed builds an AlreadyUsedError.
func AlreadyUsed(msg string) *Error {
	return &Error{Kind: ErrAlreadyUsed, Message: msg}
}

// Expired builds an ExpiredError.
func Expired(msg string) *Error {
	return &Error{Kind: ErrExpired, Message: msg}
}

// Unauthorized builds an UnauthorizedError.
func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// Upstream wraps a provider failure. The provider error stays available to
// logs through Unwrap but never reaches the user-facing message.
func Upstream(provider string, err error) *Error {
	return &Error{Kind: ErrUpstream, Message: provider + " is unavailable", Err: err}
}

// Message returns the user-facing message of err, or fallback when err is
// not a classified Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrUpstream {
		return e.Message
	}
	return fallback
}
