package cache

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/observability"
	"github.com/kbukum/artcache/storage"
)

// NoExpiry as maxAge accepts an entry of any age.
const NoExpiry time.Duration = math.MaxInt64

// DefaultTTL is the freshness window for search pages.
const DefaultTTL = 300 * time.Second

// Envelope is the persisted form of an entry. Save always writes a whole
// new envelope.
type Envelope struct {
	WrittenAt time.Time       `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Entry describes a loaded envelope.
type Entry struct {
	WrittenAt time.Time
	Age       time.Duration
}

// Config holds cache settings.
type Config struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gt=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records lookup and write outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store is a persistent key/value cache whose entries expire lazily on
// read. It is safe for concurrent use; atomicity of each write comes from
// the storage backend.
type Store struct {
	backend storage.Storage
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a Store over backend.
func New(backend storage.Storage, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		backend: backend,
		log:     log.WithComponent("cache").WithCategory(logger.CategoryCache),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save encodes value as JSON and replaces the entry for key. The only
// failures are encoding and storage errors, both reported as STORAGE.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		s.metrics.RecordCacheWrite(ctx, err)
		return errors.Storage("encode", err)
	}
	data, err := json.Marshal(Envelope{WrittenAt: s.now().UTC(), Payload: payload})
	if err != nil {
		s.metrics.RecordCacheWrite(ctx, err)
		return errors.Storage("encode", err)
	}

	err = s.backend.Upload(ctx, SlotName(key), bytes.NewReader(data))
	s.metrics.RecordCacheWrite(ctx, err)
	if err != nil {
		s.log.Log("cache write failed", logger.CategoryCache, logger.LevelError,
			logger.MergeWithError(logger.Fields(logger.FieldCacheKey, key), err))
		return errors.Storage("save", err)
	}
	s.log.Log("cached", logger.CategoryCache, logger.LevelDebug,
		logger.Fields(logger.FieldCacheKey, key, "bytes", len(data)))
	return nil
}

// Load decodes the entry for key into dst when it exists and is no older
// than maxAge. Expired and corrupt entries are deleted and reported as
// absent. The error is non-nil only when the backend itself fails.
func (s *Store) Load(ctx context.Context, key string, maxAge time.Duration, dst any) (bool, error) {
	_, ok, err := s.LoadEntry(ctx, key, maxAge, dst)
	return ok, err
}

// LoadEntry is Load that also reports the entry's age.
func (s *Store) LoadEntry(ctx context.Context, key string, maxAge time.Duration, dst any) (Entry, bool, error) {
	slot := SlotName(key)

	raw, err := s.read(ctx, slot)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			s.metrics.RecordCacheLookup(ctx, observability.LookupMiss)
			return Entry{}, false, nil
		}
		s.metrics.RecordCacheLookup(ctx, observability.LookupError)
		return Entry{}, false, fmt.Errorf("cache: load %q: %w", key, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.WrittenAt.IsZero() || len(env.Payload) == 0 {
		if err == nil {
			err = stderrors.New("incomplete envelope")
		}
		s.discard(ctx, key, slot, observability.LookupCorrupt, err)
		return Entry{}, false, nil
	}

	entry := Entry{WrittenAt: env.WrittenAt, Age: s.now().Sub(env.WrittenAt)}
	if entry.Age > maxAge {
		s.discard(ctx, key, slot, observability.LookupExpired, nil)
		return Entry{}, false, nil
	}

	if err := json.Unmarshal(env.Payload, dst); err != nil {
		s.discard(ctx, key, slot, observability.LookupCorrupt, err)
		return Entry{}, false, nil
	}

	s.metrics.RecordCacheLookup(ctx, observability.LookupHit)
	return entry, true, nil
}

func (s *Store) read(ctx context.Context, slot string) ([]byte, error) {
	rc, err := s.backend.Download(ctx, slot)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only
	return io.ReadAll(rc)
}

// discard deletes an unusable slot. A failed delete is logged and
// otherwise ignored; the next read will try again.
func (s *Store) discard(ctx context.Context, key, slot, outcome string, cause error) {
	s.metrics.RecordCacheLookup(ctx, outcome)

	fields := logger.Fields(logger.FieldCacheKey, key, "outcome", outcome)
	level := logger.LevelDebug
	if cause != nil {
		fields = logger.MergeWithError(fields, cause)
		level = logger.LevelWarn
	}
	s.log.Log("discarding cache entry", logger.CategoryCache, level, fields)

	if err := s.backend.Delete(ctx, slot); err != nil {
		s.log.Log("failed to delete cache entry", logger.CategoryCache, logger.LevelWarn,
			logger.MergeWithError(logger.Fields(logger.FieldCacheKey, key), err))
	}
}

// Remove deletes the entry for key. Removing a missing key succeeds.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, SlotName(key)); err != nil {
		return errors.Storage("remove", err)
	}
	return nil
}

// Clear deletes every entry. It stops at the first failed delete and
// leaves the remaining entries in place.
func (s *Store) Clear(ctx context.Context) error {
	files, err := s.backend.List(ctx, "")
	if err != nil {
		return errors.Storage("clear", err)
	}
	removed := 0
	for _, f := range files {
		if _, err := KeyFromSlot(f.Path); err != nil {
			continue
		}
		if err := s.backend.Delete(ctx, f.Path); err != nil {
			s.log.Log("cache clear aborted", logger.CategoryCache, logger.LevelError,
				logger.MergeWithError(logger.Fields("removed", removed, "slot", f.Path), err))
			return errors.Storage("clear", err).WithDetail("removed", removed)
		}
		removed++
	}
	s.log.Log("cache cleared", logger.CategoryCache, logger.LevelInfo, logger.Fields("removed", removed))
	return nil
}

// Keys lists the keys of all stored entries, fresh or not.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	files, err := s.backend.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		if key, err := KeyFromSlot(f.Path); err == nil {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
