// Package apperr defines the core's error taxonomy and its HTTP mapping.
package apperr

import (
	"fmt"
	"net/http"
)

// Code is one of the core-relevant error kinds from the error taxonomy.
type Code string

const (
	TranscriptNotAvailable Code = "transcript_not_available"
	VideoNotFound          Code = "video_not_found"
	RateLimited            Code = "rate_limited"
	QuotaExceeded          Code = "quota_exceeded"
	FactCheckUnavailable   Code = "fact_check_unavailable"
	LLMUnavailable         Code = "llm_unavailable"
	InvalidInput           Code = "invalid_input"
	PermissionDenied       Code = "permission_denied"
)

// Error is a typed, user-surfaceable application error carrying arbitrary
// context (e.g. daily_limit/daily_used for quota_exceeded).
type Error struct {
	Code    Code
	Message string
	Context map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus implements the §7 status-code table.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case InvalidInput:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case VideoNotFound:
		return http.StatusNotFound
	case QuotaExceeded, RateLimited:
		return http.StatusTooManyRequests
	case TranscriptNotAvailable, LLMUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New constructs an Error with optional context pairs (key, value, key, value...).
func New(code Code, message string, kv ...any) *Error {
	e := &Error{Code: code, Message: message}
	if len(kv) > 0 {
		e.Context = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			e.Context[key] = kv[i+1]
		}
	}
	return e
}

// Wrap attaches an underlying cause to a new typed error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	ae, ok := err.(*Error)
	return ok && ae.Code == code
}
