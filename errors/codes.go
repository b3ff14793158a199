package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connectivity errors (retryable)
const (
	// ErrCodeNetworkUnavailable means the device is offline and no usable stale data exists.
	ErrCodeNetworkUnavailable ErrorCode = "NETWORK_UNAVAILABLE"
	// ErrCodeTransport indicates an I/O-level network failure.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeServerStatus indicates a reachable server answered with a non-2xx status.
	ErrCodeServerStatus ErrorCode = "SERVER_STATUS"
)

// Data errors
const (
	// ErrCodeDecoding indicates the response body did not match the expected shape.
	ErrCodeDecoding ErrorCode = "DECODING"
	// ErrCodeStorage indicates a cache write failure.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Request errors
const (
	// ErrCodeInvalidRequest indicates the request could not be constructed.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeQueueExhausted indicates a queued request hit its retry cap.
	ErrCodeQueueExhausted ErrorCode = "QUEUE_EXHAUSTED"
)

// ErrCodeUnknown is the catch-all code.
const ErrCodeUnknown ErrorCode = "UNKNOWN"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeNetworkUnavailable: true,
	ErrCodeTransport:          true,
	ErrCodeStorage:            true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// SERVER_STATUS is decided per status code, see ServerStatus.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
