package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation   = "validation_error"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeSendFailed   = "send_failed"
	ErrCodeBlocked      = "blocked"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeSuperseded   = "superseded"
	ErrCodeBadRequest   = "bad_request"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrBadRequest   = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
