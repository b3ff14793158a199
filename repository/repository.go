package repository

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/observability"
	"github.com/kbukum/artcache/offlinequeue"
)

// Fetcher is the remote catalog.
type Fetcher interface {
	Search(ctx context.Context, query string, limit, page int) (*catalog.Page, error)
}

// Cache is the subset of *cache.Store the repository reads and writes.
type Cache interface {
	LoadEntry(ctx context.Context, key string, maxAge time.Duration, dst any) (cache.Entry, bool, error)
	Save(ctx context.Context, key string, value any) error
}

// Queue is the subset of *offlinequeue.Queue the repository uses.
type Queue interface {
	Enqueue(ctx context.Context, query string, page int) (offlinequeue.Request, error)
	Drain(ctx context.Context, fetch offlinequeue.Fetcher) (offlinequeue.DrainReport, error)
}

// Monitor is the connectivity source.
type Monitor interface {
	Connected() bool
	Subscribe() *connectivity.Subscription
}

// Config holds the read policy.
type Config struct {
	// TTL is how long a cached page counts as fresh.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	// MaxStaleAge bounds the offline fallback. 0 accepts any age.
	MaxStaleAge time.Duration `yaml:"max_stale_age" mapstructure:"max_stale_age" validate:"gte=0"`
	// StaleWarnAfter logs a warning when serving stale data older than
	// this. 0 disables the warning.
	StaleWarnAfter time.Duration `yaml:"stale_warn_after" mapstructure:"stale_warn_after" validate:"gte=0"`
	// PageSize is the limit sent to the fetcher.
	PageSize int `yaml:"page_size" mapstructure:"page_size" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = cache.DefaultTTL
	}
	if c.PageSize <= 0 {
		c.PageSize = catalog.DefaultPageSize
	}
}

// readLimit bounds the single cache read in Fetch. It never drops below
// TTL, so a MaxStaleAge shorter than TTL cannot discard a fresh entry.
func (c Config) readLimit() time.Duration {
	if c.MaxStaleAge <= 0 {
		return cache.NoExpiry
	}
	return max(c.TTL, c.MaxStaleAge)
}

// Option configures a Repository.
type Option func(*Repository)

// WithMetrics records fetch outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithDrainObserver calls fn with the report of every completed drain,
// whether started by Run or by a direct Drain call.
func WithDrainObserver(fn func(offlinequeue.DrainReport)) Option {
	return func(r *Repository) { r.onDrain = fn }
}

// WithClock replaces time.Now for durations.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository implements the offline-first read policy over a cache, a
// connectivity monitor, a replay queue and the remote fetcher. It keeps
// no state of its own and is safe for concurrent use.
type Repository struct {
	cfg     Config
	fetcher Fetcher
	cache   Cache
	queue   Queue
	monitor Monitor
	log     *logger.Logger
	metrics *observability.Metrics
	onDrain func(offlinequeue.DrainReport)
	now     func() time.Time
}

// New wires a Repository.
func New(cfg Config, fetcher Fetcher, c Cache, q Queue, m Monitor, log *logger.Logger, opts ...Option) *Repository {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	r := &Repository{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   c,
		queue:   q,
		monitor: m,
		log:     log.WithComponent("repository"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective policy.
func (r *Repository) Config() Config { return r.cfg }

// Fetch returns page of the search results for query:
//
//  1. a cached page younger than TTL is returned as Fresh without I/O;
//  2. offline, an older non-empty page is returned as Stale, otherwise the
//     request is queued and the result is Failed(NETWORK_UNAVAILABLE);
//  3. online, the page is fetched, written through and returned as Fresh.
//     Remote failures are returned as Failed and never queued.
//
// Cache read failures count as misses.
func (r *Repository) Fetch(ctx context.Context, query string, page int) Result {
	started := r.now()
	query = strings.TrimSpace(query)
	key := CacheKey(query, page)

	ctx, span := observability.StartSpan(ctx, observability.SpanRepositoryFetch)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrCacheKey, key),
		attribute.Int(observability.AttrPage, page),
	)

	res := r.fetch(ctx, query, page, key)

	span.SetAttributes(attribute.String(observability.AttrResultKind, res.Presentation().Kind.String()))
	if res.Err != nil {
		span.SetAttributes(attribute.String(observability.AttrErrorCode, string(res.Err.Code)))
		if res.Kind == Failed {
			observability.SetSpanError(span, res.Err)
		}
	}
	r.metrics.RecordFetch(ctx, res.Presentation().Kind.String(), r.now().Sub(started))
	return res
}

func (r *Repository) fetch(ctx context.Context, query string, page int, key string) Result {
	if query == "" || page < 1 {
		return Result{Kind: Failed, Key: key, Err: errors.InvalidRequest("query must be non-empty and page at least 1")}
	}
	fields := logger.Fields(logger.FieldCacheKey, key)

	// One read bounded by the stale limit: an entry past its TTL is still
	// needed for the offline fallback, so it must not be deleted here.
	var cached catalog.Page
	entry, found, err := r.cache.LoadEntry(ctx, key, r.cfg.readLimit(), &cached)
	if err != nil {
		r.log.Log("cache read failed, treating as miss", logger.CategoryCache, logger.LevelWarn,
			logger.MergeWithError(fields, err))
		found = false
	}
	if found && entry.Age <= r.cfg.TTL {
		r.log.Log("serving cached page", logger.CategoryCache, logger.LevelInfo,
			logger.Fields(logger.FieldCacheKey, key, "count", len(cached.Data)))
		return Result{Kind: Fresh, Key: key, Data: &cached, Age: entry.Age}
	}

	connected := r.monitor.Connected()
	if !connected {
		return r.offline(ctx, query, page, key, &cached, entry, found)
	}

	data, err := r.fetcher.Search(ctx, query, r.cfg.PageSize, page)
	if err != nil {
		appErr := errors.FromError(err)
		r.log.Log("remote fetch failed", logger.CategoryAPI, logger.LevelError,
			logger.MergeWithError(fields, appErr))
		return Result{Kind: Failed, Key: key, Err: appErr}
	}

	res := Result{Kind: Fresh, Key: key, Data: data, Fetched: true}
	if err := r.cache.Save(ctx, key, data); err != nil {
		res.Err = errors.FromError(err)
		r.log.Log("fetched page could not be cached", logger.CategoryCache, logger.LevelWarn,
			logger.MergeWithError(fields, err))
	}
	return res
}

func (r *Repository) offline(ctx context.Context, query string, page int, key string, cached *catalog.Page, entry cache.Entry, found bool) Result {
	if found && !cached.Empty() {
		level := logger.LevelInfo
		if r.cfg.StaleWarnAfter > 0 && entry.Age > r.cfg.StaleWarnAfter {
			level = logger.LevelWarn
		}
		r.log.Log("offline, serving stale page", logger.CategoryOffline, level,
			logger.Fields(logger.FieldCacheKey, key, "age_s", int64(entry.Age/time.Second)))
		return Result{Kind: Stale, Key: key, Data: cached, Age: entry.Age}
	}

	res := Result{Kind: Failed, Key: key, Err: errors.NetworkUnavailable()}
	req, err := r.queue.Enqueue(ctx, query, page)
	if err != nil {
		r.log.Log("offline request could not be queued", logger.CategoryOffline, logger.LevelError,
			logger.MergeWithError(logger.Fields(logger.FieldCacheKey, key), err))
		return res
	}
	res.Pending = &req
	return res
}

// Replay is the queue fetcher: it fetches the request's page and writes
// it through to the cache. A failed cache write does not fail the replay.
func (r *Repository) Replay(ctx context.Context, req offlinequeue.Request) error {
	data, err := r.fetcher.Search(ctx, req.Query, r.cfg.PageSize, req.Page)
	if err != nil {
		return err
	}
	key := CacheKey(req.Query, req.Page)
	if err := r.cache.Save(ctx, key, data); err != nil {
		r.log.Log("replayed page could not be cached", logger.CategoryCache, logger.LevelWarn,
			logger.MergeWithError(logger.Fields(logger.FieldCacheKey, key, logger.FieldQueueID, req.ID.String()), err))
	}
	return nil
}

// Drain replays the queue once through Replay.
func (r *Repository) Drain(ctx context.Context) (offlinequeue.DrainReport, error) {
	report, err := r.queue.Drain(ctx, r.Replay)
	if err == nil && r.onDrain != nil {
		r.onDrain(report)
	}
	return report, err
}

// Run drains the queue once for every Disconnected -> Connected transition
// until ctx ends. Transitions arriving during a drain are handled after it
// in order.
func (r *Repository) Run(ctx context.Context) error {
	sub := r.monitor.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tr, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !tr.Reconnected() {
				continue
			}
			r.log.Log("connection restored, replaying queue", logger.CategoryOffline, logger.LevelInfo)
			report, err := r.Drain(ctx)
			switch {
			case stderrors.Is(err, offlinequeue.ErrDrainInProgress):
				r.log.Log("drain already running", logger.CategoryOffline, logger.LevelDebug)
			case err != nil:
				r.log.Log("replay failed", logger.CategoryOffline, logger.LevelError, logger.MergeWithError(nil, err))
				if ctx.Err() != nil {
					return ctx.Err()
				}
			default:
				r.log.Log("replay finished", logger.CategoryOffline, logger.LevelInfo, logger.Fields(
					"succeeded", len(report.Succeeded), "retried", len(report.Retried), "dropped", len(report.Dropped)))
			}
		}
	}
}
