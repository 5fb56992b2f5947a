package api

import (
	"errors"
	"net/http"

	"livechat-backend/internal/service/livechat"
)

type HTTPError struct {
	StatusCode int
	Message    string
	Reason     string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.ErrorLog
}

type ApiError struct {
	Error  string `json:"message"`
	Reason string `json:"reason,omitempty"`
}

// FromServiceError maps a livechat error onto an HTTPError. Untyped errors become 500s.
func FromServiceError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var svcErr *livechat.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: err}
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case livechat.ErrorCodeInvalidInput:
		status = http.StatusBadRequest
	case livechat.ErrorCodeNotFound:
		status = http.StatusNotFound
	case livechat.ErrorCodePreconditionFailed:
		status = http.StatusConflict
	case livechat.ErrorCodeDependencyFailure:
		status = http.StatusBadGateway
	}
	return &HTTPError{StatusCode: status, Message: svcErr.Message, Reason: svcErr.Reason, ErrorLog: err}
}
