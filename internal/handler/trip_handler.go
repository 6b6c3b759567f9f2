package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/service"
	"github.com/gin-gonic/gin"
)

type tripPayload struct {
	Date       string `json:"date"`
	Water      string `json:"water"`
	Location   string `json:"location"`
	Hours      string `json:"hours"`
	Companions string `json:"companions"`
	Notes      string `json:"notes"`
}

func (p tripPayload) toInput() service.TripInput {
	return service.TripInput{
		Date:       p.Date,
		Water:      p.Water,
		Location:   p.Location,
		Hours:      p.Hours,
		Companions: p.Companions,
		Notes:      p.Notes,
	}
}

type tripView struct {
	db.Trip
	NotesHTML    string `json:"notes_html"`
	WeatherCount int64  `json:"weather_count"`
	CatchCount   int64  `json:"catch_count"`
}

func (a *API) tripToView(trip db.Trip) (tripView, error) {
	view := tripView{Trip: trip, NotesHTML: service.RenderNotes(trip.Notes)}
	var err error
	if view.WeatherCount, err = a.weather.CountByTrip(trip.ID); err != nil {
		return view, err
	}
	if view.CatchCount, err = a.catches.CountByTrip(trip.ID); err != nil {
		return view, err
	}
	return view, nil
}

// ListTrips 按 date 或 start/end 区间列出出钓记录，都缺省时返回全部
func (a *API) ListTrips(c *gin.Context) {
	var (
		trips []db.Trip
		err   error
	)
	date := strings.TrimSpace(c.Query("date"))
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))

	switch {
	case date != "":
		trips, err = a.trips.ListByDate(date)
	case start != "" || end != "":
		if start == "" || end == "" {
			respondError(c, http.StatusBadRequest, "start and end are required together")
			return
		}
		trips, err = a.trips.ListBetween(start, end)
	default:
		trips, err = a.trips.ListAll()
	}
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	views := make([]tripView, 0, len(trips))
	for _, trip := range trips {
		view, err := a.tripToView(trip)
		if err != nil {
			a.respondServiceError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"trips": views})
}

// GetTripDays 返回某月有记录的日期
func (a *API) GetTripDays(c *gin.Context) {
	year, month, ok := a.parseYearMonth(c)
	if !ok {
		return
	}
	days, err := a.trips.DaysWithLogs(year, month)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "month": int(month), "days": days})
}

// GetTrip 返回单条出钓记录及其天气与渔获
func (a *API) GetTrip(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := a.trips.Get(id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	view, err := a.tripToView(*trip)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	weather, err := a.weather.ListByTrip(id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	catches, err := a.catches.ListByTrip(id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trip": view, "weather": weather, "catches": catches})
}

// CreateTrip 新建出钓记录
func (a *API) CreateTrip(c *gin.Context) {
	var payload tripPayload
	if !bindJSON(c, &payload, "invalid trip payload") {
		return
	}

	trip, err := a.trips.Create(payload.toInput())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	view, err := a.tripToView(*trip)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": view})
}

// UpdateTrip 更新出钓记录
func (a *API) UpdateTrip(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	var payload tripPayload
	if !bindJSON(c, &payload, "invalid trip payload") {
		return
	}

	trip, err := a.trips.Update(id, payload.toInput())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	view, err := a.tripToView(*trip)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": view})
}

// DeleteTrip 删除出钓记录并级联删除天气与渔获
func (a *API) DeleteTrip(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	if err := a.trips.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// GetAnalytics 返回统计汇总，可按 start/end 过滤
func (a *API) GetAnalytics(c *gin.Context) {
	summary, err := a.analytics.Summary(service.AnalyticsFilter{
		Start: strings.TrimSpace(c.Query("start")),
		End:   strings.TrimSpace(c.Query("end")),
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "generated_at": a.now().In(a.loc).Format(time.RFC3339)})
}

// Search 在出钓记录与渔获中搜索
func (a *API) Search(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	results, err := a.search.Search(c.Query("q"), limit)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
