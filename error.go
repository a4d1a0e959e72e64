package themis

import "fmt"

// ErrorCode enumerates the coordinator's error categories (§7 of the error taxonomy).
type ErrorCode int

const (
	// Unknown represents an unspecified error condition.
	Unknown ErrorCode = iota
	// InvalidRequest marks a user-supplied get/put/delete/scan lacking required columns.
	InvalidRequest
	// InvalidState marks commit attempted with no selectable primary.
	InvalidState
	// LockConflict marks a conflicting lock the cleaner could not resolve after one retry. User-retryable.
	LockConflict
	// LockCleaned marks this transaction's primary lock having been erased by a peer's cleaner. Terminal.
	LockCleaned
	// Fatal marks an invariant violation by the server or a collaborator. Non-recoverable.
	Fatal
	// IO marks a transport-level failure talking to a collaborator.
	IO
)

func (c ErrorCode) String() string {
	switch c {
	case InvalidRequest:
		return "INVALID_REQUEST"
	case InvalidState:
		return "INVALID_STATE"
	case LockConflict:
		return "LOCK_CONFLICT"
	case LockCleaned:
		return "LOCK_CLEANED"
	case Fatal:
		return "FATAL"
	case IO:
		return "IO"
	default:
		return "UNKNOWN"
	}
}

// Error is the coordinator's error type, carrying a classification code, the wrapped
// cause, and optional collaborator-supplied context (e.g. the conflicting lock).
type Error struct {
	Code     ErrorCode
	Err      error
	UserData any
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.UserData != nil {
		return fmt.Errorf("%s: user data: %v, details: %w", e.Code, e.UserData, e.Err).Error()
	}
	return fmt.Errorf("%s: %w", e.Code, e.Err).Error()
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given code wrapping err, with no user data.
func NewError(code ErrorCode, err error) Error {
	return Error{Code: code, Err: err}
}

// NewErrorWithData builds an Error of the given code wrapping err, carrying userData
// (e.g. a ConflictLock for LockConflict, or the lock owner for LockCleaned).
func NewErrorWithData(code ErrorCode, err error, userData any) Error {
	return Error{Code: code, Err: err, UserData: userData}
}
