// Package app 把配置、存储、上游客户端和 HTTP 引擎组装成可运行的服务，
// 服务端与命令行工具都基于它构建。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fishinglog/internal/config"
	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/handler"
	"github.com/fishinglog/internal/metrics"
	"github.com/fishinglog/internal/router"
	"github.com/fishinglog/internal/scheduler"
	"github.com/fishinglog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App 持有运行实例的长期依赖
type App struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	DB        *gorm.DB
	Photos    service.PhotoStore
	API       *handler.API
	Engine    *gin.Engine
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// New 打开存储并构造 handler。Redis、MinIO 与备份调度均为可选，
// 只有配置后才会启用。
func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, Metrics: metrics.New()}

	gdb, err := db.Open(db.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
		Silent: cfg.GinMode == gin.ReleaseMode,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = gdb
	a.closers = append(a.closers, func() error { return db.Close(gdb) })
	if err := db.Migrate(gdb); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	photos, err := openPhotoStore(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Photos = photos

	cache := a.openCache(ctx)

	forecast := service.NewForecastService(service.ForecastOptions{
		BaseURL:  cfg.Upstream.ForecastBaseURL,
		Timeout:  cfg.Upstream.Timeout,
		Cache:    cache,
		CacheTTL: cfg.Redis.TTL,
		Logger:   log.Named("svc.forecast"),
		Metrics:  a.Metrics,
	})
	geocode := service.NewGeocodeService(service.GeocodeOptions{
		BaseURL:   cfg.Upstream.GeocodeBaseURL,
		UserAgent: cfg.Upstream.GeocodeUserAgent,
		Timeout:   cfg.Upstream.Timeout,
		Cache:     cache,
		CacheTTL:  cfg.Redis.TTL,
		Logger:    log.Named("svc.geocode"),
		Metrics:   a.Metrics,
	})

	a.API = handler.NewAPI(handler.Options{
		DB:                gdb,
		Photos:            photos,
		PhotoMaxDimension: cfg.Photos.MaxDimension,
		Location:          cfg.TimeLocation(),
		DefaultPlace: service.Place{
			Lat:         cfg.Location.Lat,
			Lon:         cfg.Location.Lon,
			DisplayName: cfg.Location.Name,
		},
		Forecast: forecast,
		Geocode:  geocode,
		Logger:   log.Named("handler"),
	})

	gin.SetMode(cfg.GinMode)
	a.Engine = router.SetupRouter(a.API, router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookie:  cfg.GinMode == gin.ReleaseMode,
		Logger:        log.Named("http"),
		Metrics:       a.Metrics,
	})

	if cfg.Backup.Cron != "" {
		sched, err := scheduler.NewScheduler(scheduler.Options{
			Spec:     cfg.Backup.Cron,
			Dir:      cfg.Backup.Dir,
			Keep:     cfg.Backup.Keep,
			Location: cfg.TimeLocation(),
		}, a.API.Archive(), a.Metrics, log.Named("scheduler"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Scheduler = sched
	}

	return a, nil
}

func openPhotoStore(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (service.PhotoStore, error) {
	if cfg.Minio.Endpoint != "" {
		store, err := service.NewMinioPhotoStore(ctx, service.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("open minio photo store: %w", err)
		}
		log.Info("photos stored in object storage", zap.String("endpoint", cfg.Minio.Endpoint), zap.String("bucket", cfg.Minio.Bucket))
		return store, nil
	}

	store, err := service.NewLocalPhotoStore(cfg.Photos.Dir)
	if err != nil {
		return nil, fmt.Errorf("open local photo store: %w", err)
	}
	log.Info("photos stored on disk", zap.String("dir", cfg.Photos.Dir))
	return store, nil
}

// openCache 在未配置或无法连接 redis 时退回到不缓存
func (a *App) openCache(ctx context.Context) service.Cache {
	if a.Config.Redis.Addr == "" {
		return service.NoopCache{}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	client, err := service.NewRedisClient(pingCtx, a.Config.Redis.Addr, a.Config.Redis.Password)
	if err != nil {
		a.Logger.Warn("redis unavailable, upstream responses will not be cached", zap.Error(err))
		return service.NoopCache{}
	}
	a.closers = append(a.closers, client.Close)
	return service.NewRedisCache(client, "fishlog:")
}

// Run 持续提供 HTTP 服务直到 ctx 取消，然后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Start()
		defer a.Scheduler.Stop()
	}

	srv := &http.Server{
		Addr:         a.Config.ListenAddr,
		Handler:      a.Engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.Logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// Close 按打开的逆序释放存储连接
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
