package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code so errors.Is(err, NetworkUnavailable())
// works without comparing pointers.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// StatusCode returns the upstream HTTP status carried by a SERVER_STATUS
// error, or 0.
func (e *AppError) StatusCode() int {
	if e.Code != ErrCodeServerStatus {
		return 0
	}
	code, _ := e.Details["status_code"].(int)
	return code
}

// Suggestion returns a short recovery hint for the user.
func (e *AppError) Suggestion() string {
	switch e.Code {
	case ErrCodeNetworkUnavailable:
		return "Check your internet connection and try again."
	case ErrCodeDecoding:
		return "Try refreshing the data."
	case ErrCodeStorage:
		return "Clear the cache and try again."
	case ErrCodeQueueExhausted:
		return "Wait for pending requests to complete."
	case ErrCodeServerStatus:
		return "The server is experiencing issues. Please try again later."
	case ErrCodeInvalidRequest:
		return "Contact support if this issue persists."
	case ErrCodeTransport:
		return "Check your network and please try again."
	default:
		return "Please try again or contact support."
	}
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Constructors ---

// NetworkUnavailable reports that the device is offline and nothing usable
// was cached.
func NetworkUnavailable() *AppError {
	return &AppError{
		Code: ErrCodeNetworkUnavailable, Message: "No internet connection available",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// Transport wraps an I/O-level network failure.
func Transport(cause error) *AppError {
	msg := "Network error"
	if cause != nil {
		msg = fmt.Sprintf("Network error: %v", cause)
	}
	return &AppError{
		Code: ErrCodeTransport, Message: msg,
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// ServerStatus reports a non-2xx answer from a reachable server.
// 5xx and 429 are retryable.
func ServerStatus(code int) *AppError {
	return &AppError{
		Code: ErrCodeServerStatus, Message: fmt.Sprintf("Server error: %d", code),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  code >= 500 || code == http.StatusTooManyRequests,
		Details:    map[string]any{"status_code": code},
	}
}

// Decoding reports a response body that did not match the expected shape.
func Decoding(cause error) *AppError {
	msg := "Data parsing error"
	if cause != nil {
		msg = fmt.Sprintf("Data parsing error: %v", cause)
	}
	return &AppError{
		Code: ErrCodeDecoding, Message: msg,
		HTTPStatus: http.StatusBadGateway, Retryable: false, Cause: cause,
	}
}

// Storage reports a cache write failure.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("Cache operation failed: %s", op),
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
		Details: map[string]any{"operation": op},
	}
}

// QueueExhausted reports a queued request that reached its retry cap.
func QueueExhausted(id string, attempts int, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeQueueExhausted,
		Message:    fmt.Sprintf("Queued request dropped after %d retries", attempts),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false, Cause: cause,
		Details: map[string]any{"queue_id": id, "attempts": attempts},
	}
}

// InvalidRequest reports a request that could not be constructed.
func InvalidRequest(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRequest, Message: fmt.Sprintf("Invalid request: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Unknown is the catch-all; message must describe what happened.
func Unknown(message string) *AppError {
	if message == "" {
		message = "unspecified failure"
	}
	return &AppError{
		Code: ErrCodeUnknown, Message: fmt.Sprintf("Unknown error: %s", message),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}
