package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fishinglog/internal/lunar"
	"github.com/fishinglog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionIDKey          = "sid"
	sessionLatKey         = "loc_lat"
	sessionLonKey         = "loc_lon"
	sessionPlaceKey       = "loc_name"
	locationSourceSession = "session"
	locationSourceDefault = "default"
)

type locationPayload struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	Source      string  `json:"source"`
	Warning     string  `json:"warning,omitempty"`
}

type locationInput struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type locationSearchInput struct {
	Query string `json:"query"`
}

// sessionLocation 返回会话中保存的位置，没有时返回默认位置
func (a *API) sessionLocation(c *gin.Context) locationPayload {
	session := sessions.Default(c)
	lat, latOK := session.Get(sessionLatKey).(float64)
	lon, lonOK := session.Get(sessionLonKey).(float64)
	if latOK && lonOK {
		name, _ := session.Get(sessionPlaceKey).(string)
		if name == "" {
			name = service.FormatCoordinates(lat, lon)
		}
		return locationPayload{Lat: lat, Lon: lon, DisplayName: name, Source: locationSourceSession}
	}

	name := a.place.DisplayName
	if name == "" {
		name = service.FormatCoordinates(a.place.Lat, a.place.Lon)
	}
	return locationPayload{Lat: a.place.Lat, Lon: a.place.Lon, DisplayName: name, Source: locationSourceDefault}
}

// resolveCoordinates 优先使用查询参数中的 lat/lon，其次是会话位置
func (a *API) resolveCoordinates(c *gin.Context) (*lunar.Coordinates, error) {
	lat, hasLat, err := parseOptionalFloat(c, "lat")
	if err != nil {
		return nil, err
	}
	lon, hasLon, err := parseOptionalFloat(c, "lon")
	if err != nil {
		return nil, err
	}
	if hasLat != hasLon {
		return nil, errors.New("lat and lon must be provided together")
	}
	if hasLat {
		coords := lunar.Coordinates{Lat: lat, Lon: lon}
		if !coords.Valid() {
			return nil, errors.New("coordinates out of range")
		}
		return &coords, nil
	}

	current := a.sessionLocation(c)
	return &lunar.Coordinates{Lat: current.Lat, Lon: current.Lon}, nil
}

func sessionKey(session sessions.Session) string {
	if id, ok := session.Get(sessionIDKey).(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Set(sessionIDKey, id)
	return id
}

// GetLocation 返回当前位置
func (a *API) GetLocation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"location": a.sessionLocation(c)})
}

// SetLocation 保存外壳上报的坐标，并逆地理编码为显示名称
func (a *API) SetLocation(c *gin.Context) {
	var input locationInput
	if !bindJSON(c, &input, "invalid location payload") {
		return
	}
	if input.Lat == nil || input.Lon == nil {
		respondError(c, http.StatusBadRequest, "lat and lon are required")
		return
	}
	coords := lunar.Coordinates{Lat: *input.Lat, Lon: *input.Lon}
	if !coords.Valid() {
		respondError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}

	session := sessions.Default(c)
	key := sessionKey(session)
	token := a.generations.Begin(key)

	place := service.Place{Lat: coords.Lat, Lon: coords.Lon, DisplayName: service.FormatCoordinates(coords.Lat, coords.Lon)}
	warning := ""
	if a.geocode != nil {
		resolved, err := a.geocode.Reverse(c.Request.Context(), coords.Lat, coords.Lon)
		place = resolved
		if err != nil {
			a.logger.Warn("reverse geocode failed", zap.Error(err))
			warning = "place name unavailable"
		}
	}

	a.commitLocation(c, session, key, token, place, warning)
}

// SearchLocation 按地名搜索并把第一个结果设为当前位置
func (a *API) SearchLocation(c *gin.Context) {
	var input locationSearchInput
	if !bindJSON(c, &input, "invalid search payload") {
		return
	}
	if strings.TrimSpace(input.Query) == "" {
		respondError(c, http.StatusBadRequest, service.ErrSearchQueryEmpty.Error())
		return
	}
	if a.geocode == nil {
		respondError(c, http.StatusServiceUnavailable, "geocoding is not configured")
		return
	}

	session := sessions.Default(c)
	key := sessionKey(session)
	token := a.generations.Begin(key)

	place, err := a.geocode.Search(c.Request.Context(), input.Query)
	if err != nil {
		a.generations.Release(key, token)
		a.respondServiceError(c, err)
		return
	}

	a.commitLocation(c, session, key, token, place, "")
}

// commitLocation 只有最新发起的请求才会写入会话
func (a *API) commitLocation(c *gin.Context, session sessions.Session, key string, token uint64, place service.Place, warning string) {
	applied := a.generations.Commit(key, token, func() {
		session.Set(sessionLatKey, place.Lat)
		session.Set(sessionLonKey, place.Lon)
		session.Set(sessionPlaceKey, place.DisplayName)
	})
	if !applied {
		respondError(c, http.StatusConflict, "superseded by a newer location request")
		return
	}
	if err := session.Save(); err != nil {
		a.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": locationPayload{
		Lat:         place.Lat,
		Lon:         place.Lon,
		DisplayName: place.DisplayName,
		Source:      locationSourceSession,
		Warning:     warning,
	}})
}

// GetForecast 返回当前位置某天的天气
func (a *API) GetForecast(c *gin.Context) {
	if a.forecast == nil {
		respondError(c, http.StatusServiceUnavailable, "forecast is not configured")
		return
	}
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = a.today().Format(lunar.DateFormat)
	}
	coords, err := a.resolveCoordinates(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	forecast, err := a.forecast.Daily(c.Request.Context(), coords.Lat, coords.Lon, date)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecast": forecast})
}
