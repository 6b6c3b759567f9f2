package handler

import (
	"net/http"

	"github.com/fishinglog/internal/service"
	"github.com/gin-gonic/gin"
)

type weatherPayload struct {
	TimeOfDay     string `json:"timeOfDay"`
	Sky           string `json:"sky"`
	WindCondition string `json:"windCondition"`
	WindDirection string `json:"windDirection"`
	WaterTemp     string `json:"waterTemp"`
	AirTemp       string `json:"airTemp"`
}

func (p weatherPayload) toInput() service.WeatherLogInput {
	return service.WeatherLogInput{
		TimeOfDay:     p.TimeOfDay,
		Sky:           p.Sky,
		WindCondition: p.WindCondition,
		WindDirection: p.WindDirection,
		WaterTemp:     p.WaterTemp,
		AirTemp:       p.AirTemp,
	}
}

// ListTripWeather 列出出钓记录下的天气
func (a *API) ListTripWeather(c *gin.Context) {
	tripID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	if _, err := a.trips.Get(tripID); err != nil {
		a.respondServiceError(c, err)
		return
	}

	logs, err := a.weather.ListByTrip(tripID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weather": logs})
}

// CreateWeather 为出钓记录添加天气
func (a *API) CreateWeather(c *gin.Context) {
	tripID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	var payload weatherPayload
	if !bindJSON(c, &payload, "invalid weather payload") {
		return
	}

	entry, err := a.weather.Create(tripID, payload.toInput())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"weather": entry})
}

// UpdateWeather 更新天气记录
func (a *API) UpdateWeather(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid weather id")
		return
	}
	var payload weatherPayload
	if !bindJSON(c, &payload, "invalid weather payload") {
		return
	}

	entry, err := a.weather.Update(id, payload.toInput())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weather": entry})
}

// DeleteWeather 删除天气记录
func (a *API) DeleteWeather(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid weather id")
		return
	}
	if err := a.weather.Delete(id); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}
