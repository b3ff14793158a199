// Package errors provides the error taxonomy of the offline data-access
// layer. Every failure that reaches a caller is an *AppError carrying a
// machine-readable code, a user-facing message, a recovery suggestion and
// the recommended HTTP status for outer surfaces.
//
// Codes follow the failure kinds of a catalog read: NETWORK_UNAVAILABLE,
// TRANSPORT, SERVER_STATUS, DECODING, STORAGE, QUEUE_EXHAUSTED,
// INVALID_REQUEST and UNKNOWN.
package errors
