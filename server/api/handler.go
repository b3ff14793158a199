package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/repository"
	"github.com/kbukum/artcache/server"
	"github.com/kbukum/artcache/validation"
)

// Artworks is the use-case layer.
type Artworks interface {
	GetArtworks(ctx context.Context, artist string, page int) repository.Result
	LoadMore(ctx context.Context, artist string, page int) repository.Result
	Search(ctx context.Context, query string, page int) repository.Result
	Details(ctx context.Context, id int) (*catalog.Artwork, error)
}

// Queue is the read and admin side of the replay queue.
type Queue interface {
	Status(ctx context.Context) (offlinequeue.Status, error)
	Pending(ctx context.Context) ([]offlinequeue.Request, error)
	Clear(ctx context.Context) error
}

// Drainer replays the queue on demand.
type Drainer interface {
	Drain(ctx context.Context) (offlinequeue.DrainReport, error)
}

// Cache is the admin side of the response cache.
type Cache interface {
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Connectivity reads and overrides the connectivity snapshot.
type Connectivity interface {
	State() connectivity.State
	Since() time.Time
	Observe(connected bool) bool
}

// Deps groups what the handlers serve.
type Deps struct {
	Artworks     Artworks
	Queue        Queue
	Drainer      Drainer
	Cache        Cache
	Connectivity Connectivity
	// Events serves the live event stream. Optional.
	Events http.Handler
}

// Handler serves /api/v1.
type Handler struct {
	deps Deps
	log  *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(deps Deps, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{deps: deps, log: log.WithComponent("api").WithCategory(logger.CategoryUI)}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.GET("/search", h.Search)
	v1.GET("/artists/:artist/artworks", h.ArtistArtworks)
	v1.GET("/artworks/:id", h.ArtworkDetails)

	v1.GET("/queue", h.QueueStatus)
	v1.GET("/queue/pending", h.QueuePending)
	v1.POST("/queue/drain", h.QueueDrain)
	v1.DELETE("/queue", h.QueueClear)

	v1.GET("/cache/keys", h.CacheKeys)
	v1.DELETE("/cache", h.CacheClear)

	v1.GET("/connectivity", h.GetConnectivity)
	v1.PUT("/connectivity", h.SetConnectivity)

	if h.deps.Events != nil {
		v1.GET("/events", gin.WrapH(h.deps.Events))
	}
}

type searchParams struct {
	Query string `form:"q" validate:"required,max=200"`
	Page  int    `form:"page,default=1" validate:"gte=1"`
}

type pageParams struct {
	Page int `form:"page,default=1" validate:"gte=1"`
}

type connectivityBody struct {
	Connected *bool `json:"connected" validate:"required"`
}

// bind decodes query parameters into dst and validates them.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return errors.InvalidRequest("malformed query parameters").WithCause(err)
	}
	return validation.Validate(dst)
}

// Search handles GET /api/v1/search?q=&page=.
func (h *Handler) Search(c *gin.Context) {
	var p searchParams
	if err := bind(c, &p); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.respondResult(c, h.deps.Artworks.Search(c.Request.Context(), p.Query, p.Page))
}

// ArtistArtworks handles GET /api/v1/artists/:artist/artworks?page=. Pages
// after the first are load-more requests.
func (h *Handler) ArtistArtworks(c *gin.Context) {
	var p pageParams
	if err := bind(c, &p); err != nil {
		server.RespondWithError(c, err)
		return
	}
	artist := c.Param("artist")
	ctx := c.Request.Context()
	if p.Page == 1 {
		h.respondResult(c, h.deps.Artworks.GetArtworks(ctx, artist, p.Page))
		return
	}
	h.respondResult(c, h.deps.Artworks.LoadMore(ctx, artist, p.Page))
}

// ArtworkDetails handles GET /api/v1/artworks/:id.
func (h *Handler) ArtworkDetails(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		server.RespondWithError(c, errors.InvalidRequest("artwork id must be a number").WithCause(err))
		return
	}
	a, err := h.deps.Artworks.Details(c.Request.Context(), id)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeUnknown {
			appErr := errors.FromError(err)
			appErr.HTTPStatus = http.StatusNotFound
			err = appErr
		}
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, newArtworkView(*a))
}

func (h *Handler) respondResult(c *gin.Context, res repository.Result) {
	switch res.Presentation().Kind {
	case repository.Fresh, repository.Stale:
		server.RespondOK(c, newResultView(res))
	case repository.Queued:
		server.RespondAccepted(c, newResultView(res))
	default:
		err := error(res.Err)
		if res.Err == nil {
			err = errors.Unknown("read returned no data")
		}
		server.RespondWithError(c, err)
	}
}

// QueueStatus handles GET /api/v1/queue.
func (h *Handler) QueueStatus(c *gin.Context) {
	st, err := h.deps.Queue.Status(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, errors.Unknown("queue unavailable").WithCause(err))
		return
	}
	server.RespondOK(c, st)
}

// QueuePending handles GET /api/v1/queue/pending.
func (h *Handler) QueuePending(c *gin.Context) {
	reqs, err := h.deps.Queue.Pending(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, errors.Unknown("queue unavailable").WithCause(err))
		return
	}
	if reqs == nil {
		reqs = []offlinequeue.Request{}
	}
	server.RespondOK(c, reqs)
}

// QueueDrain handles POST /api/v1/queue/drain.
func (h *Handler) QueueDrain(c *gin.Context) {
	report, err := h.deps.Drainer.Drain(c.Request.Context())
	switch {
	case stderrors.Is(err, offlinequeue.ErrDrainInProgress):
		server.RespondWithError(c, errors.New(errors.ErrCodeInvalidRequest,
			"A drain is already running", http.StatusConflict).WithCause(err))
		return
	case err != nil:
		server.RespondWithError(c, errors.Unknown("queue drain failed").WithCause(err))
		return
	}
	h.log.Log("queue drained on request", logger.CategoryOffline, logger.LevelInfo, logger.Fields(
		"succeeded", len(report.Succeeded), "retried", len(report.Retried), "dropped", len(report.Dropped)))
	server.RespondOK(c, report)
}

// QueueClear handles DELETE /api/v1/queue.
func (h *Handler) QueueClear(c *gin.Context) {
	if err := h.deps.Queue.Clear(c.Request.Context()); err != nil {
		server.RespondWithError(c, errors.Unknown("queue unavailable").WithCause(err))
		return
	}
	server.RespondNoContent(c)
}

// CacheKeys handles GET /api/v1/cache/keys.
func (h *Handler) CacheKeys(c *gin.Context) {
	keys, err := h.deps.Cache.Keys(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	server.RespondOK(c, keys)
}

// CacheClear handles DELETE /api/v1/cache.
func (h *Handler) CacheClear(c *gin.Context) {
	if err := h.deps.Cache.Clear(c.Request.Context()); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.log.Log("cache cleared on request", logger.CategoryCache, logger.LevelInfo)
	server.RespondNoContent(c)
}

// GetConnectivity handles GET /api/v1/connectivity.
func (h *Handler) GetConnectivity(c *gin.Context) {
	server.RespondOK(c, newConnectivityView(h.deps.Connectivity.State(), h.deps.Connectivity.Since()))
}

// SetConnectivity handles PUT /api/v1/connectivity. It feeds an
// observation to the monitor, which is how a client reports its own
// reachability.
func (h *Handler) SetConnectivity(c *gin.Context) {
	var body connectivityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, errors.InvalidRequest("malformed body").WithCause(err))
		return
	}
	if err := validation.Validate(body); err != nil {
		server.RespondWithError(c, err)
		return
	}
	changed := h.deps.Connectivity.Observe(*body.Connected)
	v := newConnectivityView(h.deps.Connectivity.State(), h.deps.Connectivity.Since())
	v.Changed = &changed
	server.RespondOK(c, v)
}
