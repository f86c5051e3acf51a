package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/database"
	"github.com/drawing-gallery/core/internal/modules/storage/media"
	pkgcron "github.com/drawing-gallery/core/internal/pkg/cron"
	"github.com/drawing-gallery/core/internal/pkg/metrics"
	pkgredis "github.com/drawing-gallery/core/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	redis  *pkgredis.Client
	store  media.ObjectStore
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: DB, optional Redis, object storage, routes
// and the scheduler.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Open(cfg.Database, cfg.Env, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		metrics.RegisterDBStats(sqlDB, cfg.Database.Driver)
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		rc, err = pkgredis.Connect(context.Background(), cfg.Redis.URLValue())
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Info("redis disabled, response cache and rate limiting are off")
	}

	s3, err := media.NewS3Store(cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("media: %w", err)
	}
	var store media.ObjectStore
	if s3 != nil {
		store = s3
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  rc,
		store:  store,
		logger: logger,
		cancel: cancel,
		sched:  pkgcron.New(logger.Named("cron")),
	}
	app.registerRoutes()
	app.sched.Start(ctx)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = database.Close(a.db)
}
