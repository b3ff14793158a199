package artworks

import (
	"context"
	"strconv"
	"time"

	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/repository"
)

// Reader is the read policy the use cases run through.
type Reader interface {
	Fetch(ctx context.Context, query string, page int) repository.Result
}

// DetailStore holds per-artwork entries.
type DetailStore interface {
	Load(ctx context.Context, key string, maxAge time.Duration, dst any) (bool, error)
	Save(ctx context.Context, key string, value any) error
}

// DetailsKey is the cache key of a single artwork.
func DetailsKey(id int) string {
	return "artwork:" + strconv.Itoa(id)
}

// Service exposes the artwork use cases.
type Service struct {
	reader  Reader
	details DetailStore
	ttl     time.Duration
	log     *logger.Logger
}

// NewService creates a Service. Details are considered valid for ttl; a
// zero ttl uses cache.DefaultTTL.
func NewService(reader Reader, details DetailStore, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		reader:  reader,
		details: details,
		ttl:     ttl,
		log:     log.WithComponent("artworks").WithCategory(logger.CategoryUI),
	}
}

// GetArtworks returns the given page of an artist's works.
func (s *Service) GetArtworks(ctx context.Context, artist string, page int) repository.Result {
	return s.run(ctx, "get artworks", artist, page)
}

// LoadMore returns a follow-up page for an artist already on screen.
func (s *Service) LoadMore(ctx context.Context, artist string, page int) repository.Result {
	return s.run(ctx, "load more artworks", artist, page)
}

// Search runs a free-text search.
func (s *Service) Search(ctx context.Context, query string, page int) repository.Result {
	return s.run(ctx, "search artworks", query, page)
}

func (s *Service) run(ctx context.Context, op, query string, page int) repository.Result {
	fields := logger.Fields(logger.FieldOperation, op, logger.FieldQuery, query, logger.FieldPage, page)
	s.log.Log(op, logger.CategoryAPI, logger.LevelInfo, fields)

	res := s.reader.Fetch(ctx, query, page)
	shown := res.Presentation()

	switch {
	case res.HasData():
		s.log.Log(op+" succeeded", logger.CategoryAPI, logger.LevelInfo, logger.Fields(
			logger.FieldOperation, op, "kind", shown.Kind.String(), "count", len(res.Data.Data)))
		if res.Fetched {
			s.seed(ctx, res.Data)
		}
	case shown.Kind == repository.Queued:
		s.log.Log(op+" queued for replay", logger.CategoryOffline, logger.LevelWarn, fields)
	case res.Err != nil:
		s.log.Log(op+" failed", logger.CategoryAPI, logger.LevelError, logger.MergeWithError(fields, res.Err))
	}
	return res
}

// seed stores each artwork of a freshly fetched page under its own key so
// Details can answer without a dedicated endpoint. Cache hits do not seed,
// so detail entries age from the fetch that produced them.
func (s *Service) seed(ctx context.Context, page *catalog.Page) {
	for _, a := range page.Data {
		if err := s.details.Save(ctx, DetailsKey(a.ID), a); err != nil {
			s.log.Log("could not cache artwork details", logger.CategoryCache, logger.LevelWarn,
				logger.MergeWithError(logger.Fields("artwork_id", a.ID), err))
			return
		}
	}
}

// Details returns an artwork seen in a recent search. There is no remote
// lookup; an artwork not cached within the TTL is UNKNOWN.
func (s *Service) Details(ctx context.Context, id int) (*catalog.Artwork, error) {
	if id <= 0 {
		return nil, errors.InvalidRequest("artwork id must be positive")
	}
	var a catalog.Artwork
	ok, err := s.details.Load(ctx, DetailsKey(id), s.ttl, &a)
	if err != nil {
		s.log.Log("details lookup failed", logger.CategoryCache, logger.LevelWarn,
			logger.MergeWithError(logger.Fields("artwork_id", id), err))
	}
	if !ok {
		return nil, errors.Unknown("artwork details not available").WithDetail("artwork_id", id)
	}
	return &a, nil
}
