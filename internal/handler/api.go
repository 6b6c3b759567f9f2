package handler

import (
	"context"
	"time"

	"github.com/fishinglog/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Forecaster 提供某坐标某天的天气
type Forecaster interface {
	Daily(ctx context.Context, lat, lon float64, date string) (service.DailyForecast, error)
}

// Geocoder 提供地名搜索与逆地理编码
type Geocoder interface {
	Search(ctx context.Context, query string) (service.Place, error)
	Reverse(ctx context.Context, lat, lon float64) (service.Place, error)
}

// Options 描述构造 API 所需的依赖，Forecast 与 Geocode 可以为空。
type Options struct {
	DB                *gorm.DB
	Photos            service.PhotoStore
	PhotoMaxDimension int
	Location          *time.Location
	DefaultPlace      service.Place
	Forecast          Forecaster
	Geocode           Geocoder
	Logger            *zap.Logger
}

// API 汇集 HTTP handler 共享的服务与配置
type API struct {
	trips       *service.TripService
	weather     *service.WeatherLogService
	catches     *service.CatchService
	tacklebox   *service.TackleboxService
	analytics   *service.AnalyticsService
	search      *service.SearchService
	archive     *service.ArchiveService
	forecast    Forecaster
	geocode     Geocoder
	generations *service.Generations
	loc         *time.Location
	place       service.Place
	logger      *zap.Logger
	now         func() time.Time
}

// NewAPI 根据 Options 构造 handler 集合，Logger 与 Location 缺省时使用 Nop 与本地时区
func NewAPI(opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &API{
		trips:       service.NewTripService(opts.DB, opts.Photos, log.Named("svc.trips")),
		weather:     service.NewWeatherLogService(opts.DB),
		catches:     service.NewCatchService(opts.DB, opts.Photos, opts.PhotoMaxDimension, log.Named("svc.catches")),
		tacklebox:   service.NewTackleboxService(opts.DB),
		analytics:   service.NewAnalyticsService(opts.DB, loc),
		search:      service.NewSearchService(opts.DB),
		archive:     service.NewArchiveService(opts.DB, opts.Photos, opts.PhotoMaxDimension, log.Named("svc.archive")),
		forecast:    opts.Forecast,
		geocode:     opts.Geocode,
		generations: service.NewGenerations(),
		loc:         loc,
		place:       opts.DefaultPlace,
		logger:      log,
		now:         time.Now,
	}
}

// Archive 暴露归档服务，供备份调度和命令行使用
func (a *API) Archive() *service.ArchiveService {
	return a.archive
}

func (a *API) today() time.Time {
	now := a.now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
}
