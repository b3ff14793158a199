// Package api exposes the artwork use cases and the offline machinery over
// HTTP under /api/v1.
//
// Read endpoints answer 200 for fresh and stale pages, 202 when the request
// was queued for replay, and the error envelope otherwise.
package api
