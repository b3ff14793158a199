package offlinequeue

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/observability"
)

// DefaultMaxRetries is how many failed replays a request survives.
const DefaultMaxRetries = 3

var (
	// ErrDrainInProgress is returned by Drain while another drain runs.
	ErrDrainInProgress = stderrors.New("offlinequeue: drain already in progress")
	// ErrStopped is returned once the worker has exited.
	ErrStopped = stderrors.New("offlinequeue: worker stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = stderrors.New("offlinequeue: worker already running")
)

// Config holds queue settings.
type Config struct {
	// MaxRetries is the number of failed replays after which a request is
	// dropped. Zero drops on the first failure.
	MaxRetries *int `yaml:"max_retries" mapstructure:"max_retries" validate:"omitempty,gte=0"`
}

// Retries returns the configured cap or DefaultMaxRetries.
func (c Config) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// WithClock replaces time.Now for EnqueuedAt.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithMetrics records queue depth and replay outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// state is owned by the worker goroutine; only ops touch it.
type state struct {
	pending  []Request
	draining bool
}

type op func(s *state)

// Queue holds pending requests. Every operation is executed by one worker
// goroutine (Run) in the order it was received, so no two operations
// interleave their reads and writes of the pending list.
type Queue struct {
	maxRetries int
	now        func() time.Time
	log        *logger.Logger
	metrics    *observability.Metrics

	ops     chan op
	stopped chan struct{}
	running atomic.Bool
}

// New creates a Queue. Operations block until Run is started.
func New(log *logger.Logger, opts ...Option) *Queue {
	if log == nil {
		log = logger.Nop()
	}
	q := &Queue{
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		log:        log.WithComponent("offlinequeue").WithCategory(logger.CategoryOffline),
		ops:        make(chan op),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// MaxRetries returns the retry cap.
func (q *Queue) MaxRetries() int { return q.maxRetries }

// Run is the worker loop. It returns ctx.Err() when ctx ends; after that
// every operation fails with ErrStopped.
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(q.stopped)

	var s state
	for {
		select {
		case fn := <-q.ops:
			fn(&s)
		case <-ctx.Done():
			if n := len(s.pending); n > 0 {
				q.log.Log("queue stopped with pending requests", logger.CategoryOffline, logger.LevelWarn,
					logger.Fields("count", n))
			}
			return ctx.Err()
		}
	}
}

// do hands fn to the worker and waits for it to run. Once accepted the
// worker always runs fn to completion.
func (q *Queue) do(ctx context.Context, fn op) error {
	done := make(chan struct{})
	wrapped := func(s *state) {
		defer close(done)
		fn(s)
	}
	select {
	case q.ops <- wrapped:
	case <-q.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Enqueue appends a new request with RetryCount 0. Identical requests are
// not merged.
func (q *Queue) Enqueue(ctx context.Context, query string, page int) (Request, error) {
	req := Request{
		ID:         uuid.New(),
		Query:      query,
		Page:       page,
		EnqueuedAt: q.now().UTC(),
	}
	var count int
	if err := q.do(ctx, func(s *state) {
		s.pending = append(s.pending, req)
		count = len(s.pending)
	}); err != nil {
		return Request{}, err
	}

	q.metrics.RecordEnqueue(ctx)
	q.log.Log("request queued for replay", logger.CategoryOffline, logger.LevelInfo,
		logger.Fields(logger.FieldQueueID, req.ID.String(), logger.FieldQuery, query,
			logger.FieldPage, page, "count", count))
	return req, nil
}

// Status returns the current size.
func (q *Queue) Status(ctx context.Context) (Status, error) {
	var st Status
	err := q.do(ctx, func(s *state) {
		st = Status{Count: len(s.pending), IsEmpty: len(s.pending) == 0}
	})
	return st, err
}

// Pending returns a copy of the pending requests in queue order.
func (q *Queue) Pending(ctx context.Context) ([]Request, error) {
	var out []Request
	err := q.do(ctx, func(s *state) {
		out = append([]Request(nil), s.pending...)
	})
	return out, err
}

// Clear empties the queue. Clearing an empty queue succeeds.
func (q *Queue) Clear(ctx context.Context) error {
	var removed int
	if err := q.do(ctx, func(s *state) {
		removed = len(s.pending)
		s.pending = nil
	}); err != nil {
		return err
	}
	q.metrics.RecordQueueRemoved(ctx, removed)
	if removed > 0 {
		q.log.Log("queue cleared", logger.CategoryOffline, logger.LevelInfo, logger.Fields("removed", removed))
	}
	return nil
}

// Drain replays every request pending at the time of the call, once each.
//
// The pass works on a snapshot: fetch runs outside the worker, so Enqueue,
// Status and Clear stay responsive, and requests enqueued meanwhile are
// left for the next drain. Outcomes are applied in one batch at the end:
// successes are removed, failures below the retry cap have RetryCount
// incremented, and failures at the cap are removed and reported as
// dropped. If ctx ends mid-pass, unattempted requests stay as they were
// and ctx.Err() is returned with the partial report.
func (q *Queue) Drain(ctx context.Context, fetch Fetcher) (DrainReport, error) {
	var (
		snapshot []Request
		busy     bool
	)
	if err := q.do(ctx, func(s *state) {
		if s.draining {
			busy = true
			return
		}
		s.draining = true
		snapshot = append([]Request(nil), s.pending...)
	}); err != nil {
		return DrainReport{}, err
	}
	if busy {
		return DrainReport{}, ErrDrainInProgress
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanQueueDrain)
	defer span.End()
	span.SetAttributes(attribute.Int(observability.AttrQueueSize, len(snapshot)))

	started := q.now()
	results := make(map[uuid.UUID]error, len(snapshot))
	var skipped []Request
	for _, req := range snapshot {
		if ctx.Err() != nil {
			skipped = append(skipped, req)
			continue
		}
		err := fetch(ctx, req)
		if err != nil && ctx.Err() != nil {
			skipped = append(skipped, req)
			continue
		}
		results[req.ID] = err
	}

	var report DrainReport
	// The apply step must run even if ctx has ended, or the queue would
	// stay marked as draining.
	if err := q.do(context.WithoutCancel(ctx), func(s *state) {
		report = q.apply(s, results)
		s.draining = false
	}); err != nil {
		return DrainReport{}, err
	}
	report.Skipped = skipped

	q.record(ctx, report, results)
	q.log.Log("queue drained", logger.CategoryOffline, logger.LevelInfo, logger.Fields(
		"attempted", report.Attempted(),
		"succeeded", len(report.Succeeded),
		"retried", len(report.Retried),
		"dropped", len(report.Dropped),
		"skipped", len(skipped),
		logger.FieldDuration, q.now().Sub(started).Milliseconds(),
	))

	if err := ctx.Err(); err != nil {
		observability.SetSpanError(span, err)
		return report, err
	}
	return report, nil
}

// apply runs inside the worker. Requests removed by Clear during the pass
// are no longer pending and are ignored.
func (q *Queue) apply(s *state, results map[uuid.UUID]error) DrainReport {
	var report DrainReport
	remove := make(map[uuid.UUID]bool)
	for i := range s.pending {
		req := &s.pending[i]
		err, attempted := results[req.ID]
		if !attempted {
			continue
		}
		switch {
		case err == nil:
			remove[req.ID] = true
			report.Succeeded = append(report.Succeeded, *req)
		case req.RetryCount < q.maxRetries:
			req.RetryCount++
			report.Retried = append(report.Retried, *req)
		default:
			remove[req.ID] = true
			report.Dropped = append(report.Dropped, *req)
		}
	}
	if len(remove) > 0 {
		kept := s.pending[:0]
		for _, req := range s.pending {
			if !remove[req.ID] {
				kept = append(kept, req)
			}
		}
		clear(s.pending[len(kept):])
		s.pending = kept
	}
	return report
}

func (q *Queue) record(ctx context.Context, report DrainReport, results map[uuid.UUID]error) {
	for range report.Succeeded {
		q.metrics.RecordReplay(ctx, "succeeded")
	}
	for range report.Retried {
		q.metrics.RecordReplay(ctx, "retried")
	}
	for _, req := range report.Dropped {
		q.metrics.RecordReplay(ctx, "dropped")
		exhausted := errors.QueueExhausted(req.ID.String(), req.RetryCount, results[req.ID])
		q.log.Log("queued request dropped", logger.CategoryOffline, logger.LevelError,
			logger.MergeWithError(logger.Fields(
				logger.FieldQueueID, req.ID.String(),
				logger.FieldQuery, req.Query,
				logger.FieldPage, req.Page,
				"retry_count", req.RetryCount,
			), exhausted))
	}
	q.metrics.RecordQueueRemoved(ctx, len(report.Succeeded)+len(report.Dropped))
}
