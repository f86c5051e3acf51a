package app

import (
	"net/http"

	"github.com/drawing-gallery/core/internal/middleware"
	"github.com/drawing-gallery/core/internal/modules/auth/auth"
	"github.com/drawing-gallery/core/internal/modules/content/category"
	"github.com/drawing-gallery/core/internal/modules/content/post"
	"github.com/drawing-gallery/core/internal/modules/content/youtube"
	"github.com/drawing-gallery/core/internal/modules/storage/backup"
	"github.com/drawing-gallery/core/internal/modules/storage/media"
	"github.com/drawing-gallery/core/internal/modules/syndication/feed"
	"github.com/drawing-gallery/core/internal/modules/syndication/sitemap"
	"github.com/drawing-gallery/core/internal/modules/system/core/health"
	"github.com/drawing-gallery/core/internal/modules/system/util/slugtracker"
	"github.com/drawing-gallery/core/internal/pkg/jwt"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api/v1"

var appInfo = gin.H{
	"name":    "drawing-gallery-core",
	"version": "1.0.0",
}

func (a *App) registerRoutes() {
	r := a.router
	db := a.db
	rc := a.redis
	signer := jwt.NewSigner(a.cfg.JWTSecret, a.cfg.JWTTTL)
	authMW := middleware.Auth(signer)

	r.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(a.cfg.AllowedOrigins, a.cfg.IsProduction())))

	// Root-level endpoints
	root := r.Group("")
	root.GET("/metrics", gin.WrapH(promhttp.Handler()))
	sitemap.NewHandler(sitemap.NewService(db, a.cfg.Site.BaseURL, a.logger.Named("sitemap"))).RegisterRoutes(root)
	feed.NewHandler(feed.NewService(db, a.cfg.Site)).RegisterRoutes(root)

	// Versioned API
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(signer))
	api.Use(middleware.RateLimit(rc, a.cfg.Cache.RateLimit))
	api.Use(middleware.HTTPCache(rc, middleware.HTTPCacheOptions{
		TTL: a.cfg.Cache.TTL,
		SkipPaths: []string{
			apiPrefix + "/health*",
			apiPrefix + "/auth/*",
			apiPrefix + "/backups*",
		},
	}))
	api.Use(middleware.Idempotence(rc, middleware.IdempotenceOptions{
		SkipPaths: []string{apiPrefix + "/auth/login"},
		HeaderOnlyPaths: []string{
			apiPrefix + "/posts*",
			apiPrefix + "/categories*",
			apiPrefix + "/youtube",
		},
	}))
	api.Use(middleware.PurgeOnWrite(rc))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })

	// Infrastructure
	health.NewHandler(db, rc, a.sched, a.cfg.Paths.Logs).RegisterRoutes(api, authMW)

	// Auth
	auth.NewHandler(auth.NewService(a.cfg.Admin, signer)).RegisterRoutes(api, authMW)

	// Content
	slugTrackerSvc := slugtracker.NewService(db)
	categorySvc := category.NewService(db, a.cfg.Content.CategoryDeletePolicy)
	categorySvc.SetSlugTracker(slugTrackerSvc)
	postSvc := post.NewService(db, categorySvc)
	postSvc.SetSlugTracker(slugTrackerSvc)

	category.NewHandler(categorySvc).RegisterRoutes(api, authMW)
	post.NewHandler(postSvc).RegisterRoutes(api, authMW)
	youtube.NewHandler(youtube.NewService(db)).RegisterRoutes(api, authMW)
	slugtracker.NewHandler(slugTrackerSvc).RegisterRoutes(api, authMW)

	// Storage
	media.NewHandler(media.NewService(a.store, a.cfg.Media.Prefix, a.cfg.Media.MaxUploadMB)).RegisterRoutes(api, authMW)
	backupSvc := backup.NewService(db, a.cfg.Paths.Backups, a.cfg.Backup, a.store, a.logger.Named("backup"))
	backup.NewHandler(backupSvc).RegisterRoutes(api, authMW)
	if job, ok := backupSvc.Job(); ok {
		a.sched.Register(job)
	}
}
