package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure returned to clients following RFC 7807.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Offline    bool                   `json:"offline"`
	Retryable  bool                   `json:"retryable"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:       e.Code,
			Message:    e.Message,
			Suggestion: e.Suggestion(),
			Offline:    e.Code == ErrCodeNetworkUnavailable,
			Retryable:  e.Retryable,
			Details:    e.Details,
		},
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError returns err as an *AppError, wrapping foreign errors as Unknown.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Unknown(err.Error()).WithCause(err)
}

// CodeOf returns the code of err, or ErrCodeUnknown for foreign errors and
// the empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeUnknown
}

// IsOffline reports whether err means "offline, nothing usable cached" as
// opposed to a failure of a reachable service.
func IsOffline(err error) bool {
	return CodeOf(err) == ErrCodeNetworkUnavailable
}
