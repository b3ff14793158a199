// Package redis stores cache objects as Redis string keys.
package redis

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderRedis, func(_ storage.Config, providerCfg any, log *logger.Logger) (storage.Storage, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("redis: expected *redis.Config, got %T", providerCfg)
			}
			c = pc
		}
		return New(*c, log)
	})
}

const scanBatch = 256

// Storage implements storage.Storage on a go-redis client. Objects never
// expire in Redis; freshness is decided by the cache on read.
type Storage struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a client. It does not dial; call Ping to verify.
func New(cfg Config, log *logger.Logger) (*Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	log.Log("redis client created", logger.CategoryCache, logger.LevelInfo, map[string]interface{}{
		"addr":   cfg.Addr,
		"db":     cfg.DB,
		"prefix": cfg.KeyPrefix,
	})
	return &Storage{rdb: rdb, prefix: cfg.KeyPrefix, log: log}, nil
}

func (s *Storage) key(path string) string { return s.prefix + path }

// Ping verifies the Redis connection is alive.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Upload stores the whole object with a single SET, which Redis applies
// atomically.
func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("redis: read object: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", path, err)
	}
	return nil
}

// Download fetches the object.
func (s *Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	data, err := s.rdb.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("redis: get %s: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object. Missing keys are not an error.
func (s *Storage) Delete(ctx context.Context, path string) error {
	if err := s.rdb.Del(ctx, s.key(path)).Err(); err != nil {
		return fmt.Errorf("redis: del %s: %w", path, err)
	}
	return nil
}

// Exists checks whether the object exists.
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(path)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: exists %s: %w", path, err)
	}
	return n > 0, nil
}

// List walks the keyspace with SCAN. Size is the STRLEN of each value;
// Redis keeps no modification time so LastModified is zero.
func (s *Storage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	var (
		files  []storage.FileInfo
		cursor uint64
	)
	match := escapeGlob(s.prefix+prefix) + "*"
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: scan: %w", err)
		}
		for _, k := range keys {
			size, err := s.rdb.StrLen(ctx, k).Result()
			if err != nil {
				return nil, fmt.Errorf("redis: strlen %s: %w", k, err)
			}
			files = append(files, storage.FileInfo{
				Path: strings.TrimPrefix(k, s.prefix),
				Size: size,
			})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	// SCAN may return a key more than once.
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	out := files[:0]
	for i, f := range files {
		if i > 0 && f.Path == files[i-1].Path {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Close closes the connection pool. Safe to call multiple times.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Log("closing redis connection", logger.CategoryCache, logger.LevelInfo)
	return s.rdb.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	_ storage.Storage = (*Storage)(nil)
	_ storage.Pinger  = (*Storage)(nil)
	_ storage.Closer  = (*Storage)(nil)
)
