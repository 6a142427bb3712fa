// Package statemachine provides the apply/snapshot skeleton shared by the
// catalog, id-allocator and timestamp replicated state machines, along with
// the uniform error taxonomy they all report through.
package statemachine

import (
	"errors"
	"fmt"
)

// Error is a structured state-machine error carried on every RPC response
// as an (errcode, errmsg) pair rather than surfaced as a host exception.
type Error struct {
	Code    string // stable error code, e.g. "NotLeader"
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

// Wrap is an alias for WithCause, used when propagating a lower-level error.
func (e *Error) Wrap(cause error) *Error { return e.WithCause(cause) }

// Is reports whether err is a *Error with the given code. An empty code
// only checks that err is a *Error at all.
func Is(err error, code string) bool {
	var se *Error
	if errors.As(err, &se) {
		if code == "" {
			return true
		}
		return se.Code == code
	}
	return false
}

// Code extracts the error code from err if it is a *Error.
func Code(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Base protocol errors, set on the response envelope of every write path
// (see the base state machine's apply step).
var (
	ErrNotLeader       = New("NotLeader", "this replica is not the raft leader")
	ErrParseFromPbFail = New("ParseFromPbFail", "failed to parse request payload")
	ErrInputParam      = New("InputParamError", "invalid input parameter")
	ErrInternal        = New("InternalError", "internal error")
	ErrUnknownReqType  = New("UnknownReqType", "unknown request op_type")
	ErrHaveNotInit     = New("HaveNotInit", "server has not finished loading state")
	ErrRetryLater      = New("RetryLater", "retry later")
)

// Catalog domain errors.
var (
	ErrAppExists           = New("AppExists", "app already exists")
	ErrAppNotFound         = New("AppNotFound", "app not found")
	ErrAppHasZones         = New("AppHasZones", "app still owns zones")
	ErrZoneExists          = New("ZoneExists", "zone already exists")
	ErrZoneNotFound        = New("ZoneNotFound", "zone not found")
	ErrZoneNoApp           = New("ZoneNoApp", "parent app does not exist")
	ErrZoneHasServlets     = New("ZoneHasServlets", "zone still owns servlets")
	ErrServletExists       = New("ServletExists", "servlet already exists")
	ErrServletNotFound     = New("ServletNotFound", "servlet not found")
	ErrServletNoApp        = New("ServletNoApp", "parent app does not exist")
	ErrServletNoZone       = New("ServletNoZone", "parent zone does not exist")
	ErrServletQuarantined  = New("ServletQuarantined", "servlet was removed recently and its name is cooling off")
	ErrServletHasInstances = New("ServletHasInstances", "servlet still owns instances")
	ErrInstanceNotFound    = New("InstanceNotFound", "instance not found")
	ErrInstanceQuarantined = New("InstanceQuarantined", "address was removed recently and is quarantined")
	ErrConfigExists        = New("ConfigExists", "config already exist")
	ErrConfigNotFound      = New("ConfigNotFound", "config not found")
	ErrConfigVersion       = New("ConfigVersionError", "version numbers must increase monotonically")
	ErrUserExists          = New("UserExists", "user already exists")
	ErrUserNotFound        = New("UserNotFound", "user not found")
)

// ID-allocator domain errors.
var (
	ErrServletIDNotFound = New("ServletIDNotFound", "servlet id has no counter")
	ErrIDRollback        = New("IDRollback", "requested start is below the current watermark")
)

// Timestamp domain errors.
var (
	ErrTSOExhausted = New("TsoExhausted", "logical clock space exhausted for this tick")
	ErrTSORollback  = New("TsoRollback", "requested time moves backward")
)
