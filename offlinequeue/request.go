package offlinequeue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Request is a search that could not be served while offline.
type Request struct {
	ID         uuid.UUID `json:"id"`
	Query      string    `json:"query"`
	Page       int       `json:"page"`
	RetryCount int       `json:"retry_count"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Fetcher replays one request. A nil error removes the request from the
// queue.
type Fetcher func(ctx context.Context, req Request) error

// Status is a snapshot of the queue size.
type Status struct {
	Count   int  `json:"count"`
	IsEmpty bool `json:"is_empty"`
}

// DrainReport lists what one drain pass did with each snapshotted request.
// Requests carry their retry count as of the end of the pass.
type DrainReport struct {
	Succeeded []Request `json:"succeeded"`
	Retried   []Request `json:"retried"`
	Dropped   []Request `json:"dropped"`
	// Skipped were in the snapshot but not attempted because the drain's
	// context ended first. They stay queued unchanged.
	Skipped []Request `json:"skipped,omitempty"`
}

// Attempted is the number of requests the fetcher was called for.
func (r DrainReport) Attempted() int {
	return len(r.Succeeded) + len(r.Retried) + len(r.Dropped)
}
