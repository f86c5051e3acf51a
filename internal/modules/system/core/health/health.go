package health

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/middleware"
	"github.com/drawing-gallery/core/internal/pkg/cron"
	"github.com/drawing-gallery/core/internal/pkg/nativelog"
	redispkg "github.com/drawing-gallery/core/internal/pkg/redis"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type logItem struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  int64  `json:"created"`
}

// Handler reports liveness and exposes the admin maintenance endpoints.
// redis may be nil.
type Handler struct {
	db     *gorm.DB
	redis  *redispkg.Client
	sched  *cron.Scheduler
	logDir string
	now    func() time.Time
}

func NewHandler(db *gorm.DB, redis *redispkg.Client, sched *cron.Scheduler, logDir string) *Handler {
	return &Handler{db: db, redis: redis, sched: sched, logDir: nativelog.ResolveDir(logDir), now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/health", h.health)

	admin := rg.Group("/health", authMW)
	admin.GET("/cron", h.cronList)
	admin.POST("/cron/run/:name", h.cronRun)
	admin.GET("/log/list", h.logList)
	admin.GET("/log", h.logRead)
	admin.DELETE("/log", h.logDelete)
	admin.DELETE("/cache", h.purgeCache)
}

// GET /health
func (h *Handler) health(c *gin.Context) {
	ctx := c.Request.Context()
	sqlDB, err := h.db.DB()
	dbOK := err == nil && sqlDB.PingContext(ctx) == nil

	body := gin.H{"database": dbOK}
	healthy := dbOK
	if h.redis != nil {
		redisOK := h.redis.Ping(ctx) == nil
		body["redis"] = redisOK
		healthy = healthy && redisOK
	}

	code := http.StatusOK
	body["status"] = "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(code, body)
}

// GET /health/cron
func (h *Handler) cronList(c *gin.Context) {
	items := h.sched.List()
	byName := make(map[string]cron.ListItem, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}
	response.OK(c, byName)
}

// POST /health/cron/run/:name
func (h *Handler) cronRun(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}

// GET /health/log/list
func (h *Handler) logList(c *gin.Context) {
	entries, err := os.ReadDir(h.logDir)
	if errors.Is(err, os.ErrNotExist) {
		response.OK(c, []logItem{})
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Filename: entry.Name(),
			Size:     info.Size(),
			Created:  info.ModTime().UnixMilli(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Created > items[j].Created })
	response.OK(c, items)
}

// GET /health/log?filename=
func (h *Handler) logRead(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		response.NotFoundMsg(c, "log file not exists")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// DELETE /health/log?filename=
// Today's file is truncated instead of removed since the writer still holds it.
func (h *Handler) logDelete(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	var err error
	if filepath.Base(path) == nativelog.TodayFilename(h.now()) {
		err = os.Truncate(path, 0)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) logPath(c *gin.Context) (string, bool) {
	filename := strings.TrimSpace(c.Query("filename"))
	base := filepath.Base(filename)
	if filename == "" || base != filename || !strings.HasSuffix(base, ".log") {
		response.BadRequest(c, "filename must be a log file name")
		return "", false
	}
	return filepath.Join(h.logDir, base), true
}

// DELETE /health/cache
func (h *Handler) purgeCache(c *gin.Context) {
	if h.redis == nil {
		response.OK(c, gin.H{"purged": 0})
		return
	}
	n, err := middleware.PurgeHTTPCache(c.Request.Context(), h.redis)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"purged": n})
}
