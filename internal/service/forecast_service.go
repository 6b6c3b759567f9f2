package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fishinglog/internal/lunar"
	"github.com/fishinglog/internal/metrics"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrUpstream 表示外部服务请求失败
	ErrUpstream = errors.New("upstream service failed")
	// ErrForecastUnavailable 表示返回数据中没有指定日期
	ErrForecastUnavailable = errors.New("forecast unavailable for date")
)

// DefaultForecastBaseURL 是 open-meteo 的默认地址
const DefaultForecastBaseURL = "https://api.open-meteo.com"

var cardinalLabels = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindCardinal 把风向角度映射到八个方位
func WindCardinal(degrees float64) string {
	idx := int(math.Round(degrees/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return cardinalLabels[idx]
}

// DailyForecast 是某一天的天气概要
type DailyForecast struct {
	Date                 string  `json:"date"`
	TempMin              float64 `json:"tempMin"`
	TempMax              float64 `json:"tempMax"`
	WindSpeed            float64 `json:"windSpeed"`
	WindDirectionDegrees float64 `json:"windDirectionDegrees"`
	WindDirection        string  `json:"windDirection"`
}

type openMeteoResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		WindSpeedMax  []float64 `json:"windspeed_10m_max"`
		WindDirection []float64 `json:"winddirection_10m_dominant"`
	} `json:"daily"`
}

// ForecastService 调用 open-meteo 获取每日天气，可选 redis 缓存
type ForecastService struct {
	client  *resty.Client
	cache   Cache
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// ForecastOptions 描述 ForecastService 的依赖
type ForecastOptions struct {
	BaseURL  string
	Timeout  time.Duration
	Cache    Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// NewForecastService 构造 ForecastService
func NewForecastService(opts ForecastOptions) *ForecastService {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultForecastBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cache := opts.Cache
	if cache == nil {
		cache = NoopCache{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &ForecastService{client: client, cache: cache, ttl: opts.CacheTTL, log: log, metrics: opts.Metrics}
}

// Daily 返回坐标处指定日期（YYYY-MM-DD）的天气
func (s *ForecastService) Daily(ctx context.Context, lat, lon float64, date string) (DailyForecast, error) {
	day, err := time.Parse(lunar.DateFormat, strings.TrimSpace(date))
	if err != nil {
		return DailyForecast{}, fmt.Errorf("%w: %q", ErrTripInvalidDate, date)
	}
	date = day.Format(lunar.DateFormat)

	cacheKey := fmt.Sprintf("forecast:%.3f:%.3f:%s", lat, lon, date)
	var cached DailyForecast
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warn("forecast cache read failed", zap.Error(err))
	} else if hit {
		s.metrics.ObserveCache("forecast", true)
		return cached, nil
	}
	s.metrics.ObserveCache("forecast", false)

	result := new(openMeteoResponse)
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":   fmt.Sprintf("%.4f", lat),
			"longitude":  fmt.Sprintf("%.4f", lon),
			"daily":      "temperature_2m_max,temperature_2m_min,windspeed_10m_max,winddirection_10m_dominant",
			"timezone":   "auto",
			"start_date": date,
			"end_date":   date,
		}).
		SetResult(result).
		Get("/v1/forecast")
	if err == nil && resp.IsError() {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	s.metrics.ObserveUpstream("forecast", err)
	if err != nil {
		s.log.Error("forecast request failed", zap.String("date", date), zap.Error(err))
		return DailyForecast{}, fmt.Errorf("%w: forecast: %v", ErrUpstream, err)
	}

	forecast, err := pickDaily(result, date)
	if err != nil {
		return DailyForecast{}, err
	}

	if err := s.cache.Set(ctx, cacheKey, forecast, s.ttl); err != nil {
		s.log.Warn("forecast cache write failed", zap.Error(err))
	}
	return forecast, nil
}

func pickDaily(result *openMeteoResponse, date string) (DailyForecast, error) {
	d := result.Daily
	for i, t := range d.Time {
		if t != date {
			continue
		}
		if i >= len(d.TempMax) || i >= len(d.TempMin) || i >= len(d.WindSpeedMax) || i >= len(d.WindDirection) {
			break
		}
		return DailyForecast{
			Date:                 date,
			TempMin:              d.TempMin[i],
			TempMax:              d.TempMax[i],
			WindSpeed:            d.WindSpeedMax[i],
			WindDirectionDegrees: d.WindDirection[i],
			WindDirection:        WindCardinal(d.WindDirection[i]),
		}, nil
	}
	return DailyForecast{}, fmt.Errorf("%w: %s", ErrForecastUnavailable, date)
}
