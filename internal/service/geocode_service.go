package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fishinglog/internal/metrics"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrPlaceNotFound 表示地名搜索没有结果
var ErrPlaceNotFound = errors.New("place not found")

const (
	// DefaultGeocodeBaseURL 是 nominatim 的默认地址
	DefaultGeocodeBaseURL = "https://nominatim.openstreetmap.org"
	defaultGeocodeAgent   = "fishinglog/1.0"
)

// Place 是一个带名称的坐标
type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// GeocodeService 通过 nominatim 做地名搜索与逆地理编码
type GeocodeService struct {
	client  *resty.Client
	cache   Cache
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// GeocodeOptions 描述 GeocodeService 的依赖
type GeocodeOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Cache     Cache
	CacheTTL  time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// NewGeocodeService 构造 GeocodeService
func NewGeocodeService(opts GeocodeOptions) *GeocodeService {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultGeocodeBaseURL
	}
	agent := strings.TrimSpace(opts.UserAgent)
	if agent == "" {
		agent = defaultGeocodeAgent
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

	// nominatim 的使用条款要求提供可识别的 User-Agent
	client := resty.New().
		SetBaseURL(base).
		SetHeader("User-Agent", agent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &GeocodeService{client: client, cache: cache, ttl: opts.CacheTTL, log: log, metrics: opts.Metrics}
}

// FormatCoordinates 是逆地理编码失败时的显示名称
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// Search 返回第一个匹配的地点
func (s *GeocodeService) Search(ctx context.Context, query string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, ErrSearchQueryEmpty
	}

	cacheKey := "geocode:search:" + strings.ToLower(query)
	var cached Place
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warn("geocode cache read failed", zap.Error(err))
	} else if hit {
		s.metrics.ObserveCache("geocode", true)
		return cached, nil
	}
	s.metrics.ObserveCache("geocode", false)

	var results []nominatimPlace
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": query, "format": "json", "limit": "1"}).
		SetResult(&results).
		Get("/search")
	if err == nil && resp.IsError() {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	s.metrics.ObserveUpstream("geocode", err)
	if err != nil {
		s.log.Error("geocode search failed", zap.String("query", query), zap.Error(err))
		return Place{}, fmt.Errorf("%w: geocode: %v", ErrUpstream, err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrPlaceNotFound, query)
	}

	place, err := results[0].toPlace()
	if err != nil {
		return Place{}, fmt.Errorf("%w: geocode: %v", ErrUpstream, err)
	}

	if err := s.cache.Set(ctx, cacheKey, place, s.ttl); err != nil {
		s.log.Warn("geocode cache write failed", zap.Error(err))
	}
	return place, nil
}

// Reverse 返回坐标的显示名称。失败时仍返回以坐标格式化的名称，同时返回错误。
func (s *GeocodeService) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	place := Place{Lat: lat, Lon: lon, DisplayName: FormatCoordinates(lat, lon)}

	cacheKey := fmt.Sprintf("geocode:reverse:%.4f:%.4f", lat, lon)
	var cached Place
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warn("geocode cache read failed", zap.Error(err))
	} else if hit {
		s.metrics.ObserveCache("geocode", true)
		return cached, nil
	}
	s.metrics.ObserveCache("geocode", false)

	result := new(nominatimPlace)
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":    strconv.FormatFloat(lat, 'f', 6, 64),
			"lon":    strconv.FormatFloat(lon, 'f', 6, 64),
			"format": "json",
		}).
		SetResult(result).
		Get("/reverse")
	if err == nil && resp.IsError() {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	s.metrics.ObserveUpstream("geocode", err)
	if err != nil {
		s.log.Error("reverse geocode failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return place, fmt.Errorf("%w: reverse geocode: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(result.DisplayName) == "" {
		return place, fmt.Errorf("%w: no name for %s", ErrPlaceNotFound, place.DisplayName)
	}

	place.DisplayName = result.DisplayName
	if err := s.cache.Set(ctx, cacheKey, place, s.ttl); err != nil {
		s.log.Warn("geocode cache write failed", zap.Error(err))
	}
	return place, nil
}

func (p nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return Place{Lat: lat, Lon: lon, DisplayName: p.DisplayName}, nil
}
