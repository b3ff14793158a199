package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/httpclient"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/observability"
)

const (
	// DefaultBaseURL is the public Art Institute of Chicago API.
	DefaultBaseURL = "https://api.artic.edu/api/v1"
	// DefaultPageSize is the number of artworks requested per page.
	DefaultPageSize = 20

	searchPath   = "/artworks/search"
	searchFields = "id,title,image_id,artist_title,date_display,short_description"
)

// Config configures the catalog client.
type Config struct {
	HTTP     httpclient.Config `yaml:"http" mapstructure:"http"`
	PageSize int               `yaml:"page_size" mapstructure:"page_size" validate:"gte=0,lte=100"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.BaseURL == "" {
		c.HTTP.BaseURL = DefaultBaseURL
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	c.HTTP.ApplyDefaults()
}

// Client searches the remote catalog.
type Client struct {
	http     *httpclient.Client
	pageSize int
	log      *logger.Logger
}

// New builds a Client from cfg.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("catalog")
	hc, err := httpclient.New(cfg.HTTP, httpclient.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, pageSize: cfg.PageSize, log: log}, nil
}

// PageSize returns the default limit used by callers that do not pick one.
func (c *Client) PageSize() int { return c.pageSize }

// Search fetches one page of artworks matching query. A limit <= 0 uses
// the configured page size. Errors are TRANSPORT, SERVER_STATUS, DECODING
// or INVALID_REQUEST.
func (c *Client) Search(ctx context.Context, query string, limit, page int) (*Page, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanCatalogSearch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrQuery, query),
			attribute.Int(observability.AttrPage, page),
		))
	defer span.End()

	if strings.TrimSpace(query) == "" || page < 1 {
		err := errors.InvalidRequest("query must be non-empty and page at least 1")
		observability.SetSpanError(span, err)
		return nil, err
	}

	fields := logger.Fields("query", query, "page", page, "limit", limit)
	c.log.Log("searching artworks", logger.CategoryAPI, logger.LevelInfo, fields)

	params := url.Values{
		"q":      {query},
		"fields": {searchFields},
		"limit":  {strconv.Itoa(limit)},
		"page":   {strconv.Itoa(page)},
	}
	result, err := httpclient.GetJSON[Page](ctx, c.http, searchPath, params)
	if err != nil {
		c.log.Log("search failed", logger.CategoryAPI, logger.LevelError, logger.MergeWithError(fields, err))
		span.SetAttributes(attribute.String(observability.AttrErrorCode, string(errors.CodeOf(err))))
		observability.SetSpanError(span, err)
		return nil, err
	}
	if result.Data == nil {
		result.Data = []Artwork{}
	}

	c.log.Log("fetched artworks", logger.CategoryAPI, logger.LevelInfo,
		logger.Fields("query", query, "page", page, "count", len(result.Data)))
	if result.Pagination != nil {
		c.log.Log("pagination", logger.CategoryAPI, logger.LevelDebug, logger.Fields(
			"current_page", result.Pagination.CurrentPage,
			"total_pages", result.Pagination.TotalPages,
			"total", result.Pagination.Total,
		))
	}
	return result, nil
}
