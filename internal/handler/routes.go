package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes 把 JSON API 挂到 rg 上，调用方负责会话中间件
func (a *API) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/calendar", a.GetCalendar)
	rg.GET("/calendar/day", a.GetDay)
	rg.GET("/moon/now", a.GetMoonNow)

	rg.GET("/trips", a.ListTrips)
	rg.POST("/trips", a.CreateTrip)
	rg.GET("/trips/days", a.GetTripDays)
	rg.GET("/trips/:id", a.GetTrip)
	rg.PUT("/trips/:id", a.UpdateTrip)
	rg.DELETE("/trips/:id", a.DeleteTrip)

	rg.GET("/trips/:id/weather", a.ListTripWeather)
	rg.POST("/trips/:id/weather", a.CreateWeather)
	rg.PUT("/weather/:id", a.UpdateWeather)
	rg.DELETE("/weather/:id", a.DeleteWeather)

	rg.GET("/trips/:id/catches", a.ListTripCatches)
	rg.POST("/trips/:id/catches", a.CreateCatch)
	rg.GET("/catches/:id", a.GetCatch)
	rg.PUT("/catches/:id", a.UpdateCatch)
	rg.DELETE("/catches/:id", a.DeleteCatch)
	rg.GET("/catches/:id/photo", a.GetCatchPhoto)

	rg.GET("/tacklebox", a.GetTacklebox)
	rg.POST("/tacklebox/gear", a.CreateGear)
	rg.PUT("/tacklebox/gear/:id", a.UpdateGear)
	rg.DELETE("/tacklebox/gear/:id", a.DeleteGear)
	rg.POST("/tacklebox/types", a.CreateGearType)
	rg.PUT("/tacklebox/types/:name", a.RenameGearType)
	rg.DELETE("/tacklebox/types/:name", a.DeleteGearType)

	rg.GET("/analytics", a.GetAnalytics)
	rg.GET("/search", a.Search)

	rg.GET("/export", a.ExportArchive)
	rg.POST("/import", a.ImportArchive)

	rg.GET("/location", a.GetLocation)
	rg.POST("/location", a.SetLocation)
	rg.POST("/location/search", a.SearchLocation)
	rg.GET("/forecast", a.GetForecast)

	rg.GET("/offline/manifest", a.GetOfflineManifest)
}
