package livechat

import "errors"

type ErrorCode string

const (
	ErrorCodeInvalidInput       ErrorCode = "invalid_input"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodePreconditionFailed ErrorCode = "precondition_failed"
	ErrorCodeDependencyFailure  ErrorCode = "dependency_failure"
)

// Reasons are stable machine-readable strings surfaced to clients next to the code.
const (
	ReasonRoomOnHold           = "room-on-hold"
	ReasonRoomClosed           = "room-closed"
	ReasonInvalidDepartment    = "invalid-department"
	ReasonInvalidUser          = "invalid-user"
	ReasonInvalidUserRole      = "invalid-user-role"
	ReasonInvalidTransferredBy = "invalid-transferred-by"
	ReasonInvalidStatus        = "invalid-status"
	ReasonReturnToQueueFailed  = "return-to-queue-failed"
)

// ErrNotFound is returned by collaborators when the requested record does not exist.
var ErrNotFound = errors.New("livechat repository: not found")

type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{
		Code:    code,
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func IsReason(err error, reason string) bool {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Reason == reason
	}
	return false
}

// dependencyError wraps a collaborator failure unless it is already a typed *Error.
func dependencyError(message string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return newError(ErrorCodeDependencyFailure, "", message, err)
}
