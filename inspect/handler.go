package inspect

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scopecache/cache"
	"github.com/kbukum/scopecache/component"
	"github.com/kbukum/scopecache/errors"
	"github.com/kbukum/scopecache/logger"
)

// Route paths.
const (
	PathStats  = "/cache/stats"
	PathHealth = "/cache/health"
	PathPrune  = "/cache/prune"
)

// Handler serves the admin routes of one cache.
type Handler struct {
	cache *cache.Cache
	log   *logger.Logger
}

// NewHandler creates a handler for c.
func NewHandler(c *cache.Cache, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{cache: c, log: log.WithComponent("inspect")}
}

// Register mounts the admin routes for c on router.
func Register(router gin.IRouter, c *cache.Cache) *Handler {
	h := NewHandler(c, nil)
	h.Mount(router)
	return h
}

// Mount adds the handler's routes to router.
func (h *Handler) Mount(router gin.IRouter) {
	router.GET(PathStats, h.Stats)
	router.GET(PathHealth, h.Health)
	router.POST(PathPrune, h.Prune)
}

// Routes lists the mounted routes.
func (h *Handler) Routes() []component.Route {
	return []component.Route{
		{Method: http.MethodGet, Path: PathStats, Handler: "inspect.Stats"},
		{Method: http.MethodGet, Path: PathHealth, Handler: "inspect.Health"},
		{Method: http.MethodPost, Path: PathPrune, Handler: "inspect.Prune"},
	}
}

// Stats reports the cache's counters.
func (h *Handler) Stats(c *gin.Context) {
	respondOK(c, h.cache.Stats())
}

// Health reports whether the cache accepts new entries.
func (h *Handler) Health(c *gin.Context) {
	stats := h.cache.Stats()

	status := component.StatusHealthy
	httpStatus := http.StatusOK
	switch {
	case stats.Disposed:
		status = component.StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable
	case stats.DeactivationFailures > 0:
		status = component.StatusDegraded
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"cache_id":  stats.ID,
		"entries":   stats.Entries,
		"pending":   stats.Pending,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Prune runs one sweep on the request's goroutine.
func (h *Handler) Prune(c *gin.Context) {
	if h.cache.Disposed() {
		respondWithError(c, errors.AlreadyDisposed("cache"))
		return
	}

	start := time.Now()
	n := h.cache.Prune(c.Request.Context())
	h.log.Info("Manual prune", logger.MergeWithDuration(logger.Fields(
		logger.FieldCacheID, h.cache.ID(),
		logger.FieldEvicted, n,
	), time.Since(start)))

	respondOK(c, gin.H{"deactivated": n})
}
