package handler

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fishinglog/internal/astro"
	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/lunar"
	"github.com/gin-gonic/gin"
)

const clockFormat = "15:04"

type phasePayload struct {
	Index       int           `json:"index"`
	Name        string        `json:"name"`
	Quality     lunar.Quality `json:"quality"`
	Description string        `json:"description"`
}

type dayPayload struct {
	Day          int                `json:"day"`
	Date         string             `json:"date"`
	Phase        phasePayload       `json:"phase"`
	MoonAge      float64            `json:"moon_age"`
	Illumination float64            `json:"illumination"`
	MajorBites   []lunar.BiteWindow `json:"major_bites"`
	MinorBites   []lunar.BiteWindow `json:"minor_bites"`
	HasLogs      bool               `json:"has_logs"`
}

type monthPayload struct {
	Year          int                `json:"year"`
	Month         int                `json:"month"`
	LeadingBlanks int                `json:"leading_blanks"`
	Days          []*dayPayload      `json:"days"`
	DaysWithLogs  []int              `json:"days_with_logs"`
	Location      *lunar.Coordinates `json:"location"`
}

type sunMoonPayload struct {
	Sunrise  string `json:"sunrise,omitempty"`
	Sunset   string `json:"sunset,omitempty"`
	Moonrise string `json:"moonrise,omitempty"`
	Moonset  string `json:"moonset,omitempty"`
}

type dayDetailPayload struct {
	dayPayload
	Times   sunMoonPayload `json:"times"`
	Trips   []db.Trip      `json:"trips"`
	PrevDay string         `json:"prev_day,omitempty"`
	NextDay string         `json:"next_day,omitempty"`
}

func toPhasePayload(p lunar.LunarDay) phasePayload {
	return phasePayload{Index: p.Index, Name: p.Name, Quality: p.Quality, Description: p.Description}
}

func toDayPayload(d lunar.DayData, hasLogs bool) dayPayload {
	return dayPayload{
		Day:          d.Day,
		Date:         d.DateString,
		Phase:        toPhasePayload(d.LunarPhase),
		MoonAge:      d.MoonAge,
		Illumination: d.Illumination,
		MajorBites:   d.MajorBites,
		MinorBites:   d.MinorBites,
		HasLogs:      hasLogs,
	}
}

// parseYearMonth 读取 year/month 查询参数，缺省为当前月份
func (a *API) parseYearMonth(c *gin.Context) (int, time.Month, bool) {
	today := a.today()
	year, month := today.Year(), today.Month()

	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 9999 {
			respondError(c, http.StatusBadRequest, "invalid year")
			return 0, 0, false
		}
		year = parsed
	}
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			respondError(c, http.StatusBadRequest, "invalid month")
			return 0, 0, false
		}
		month = time.Month(parsed)
	}
	return year, month, true
}

// GetCalendar 返回月历网格，每周从周一开始
func (a *API) GetCalendar(c *gin.Context) {
	year, month, ok := a.parseYearMonth(c)
	if !ok {
		return
	}
	coords, err := a.resolveCoordinates(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	logged, err := a.trips.DaysWithLogs(year, month)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	grid := lunar.BuildMonth(year, month, coords, a.loc)
	days := make([]*dayPayload, len(grid.Days))
	for i, d := range grid.Days {
		if d == nil {
			continue
		}
		payload := toDayPayload(*d, slices.Contains(logged, d.Day))
		days[i] = &payload
	}

	c.JSON(http.StatusOK, monthPayload{
		Year:          grid.Year,
		Month:         int(grid.Month),
		LeadingBlanks: grid.LeadingBlanks,
		Days:          days,
		DaysWithLogs:  logged,
		Location:      coords,
	})
}

// GetDay 返回某天的详情：月相、咬口时段、日月出没与当天的出钓记录
func (a *API) GetDay(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("date"))
	date := a.today()
	if raw != "" {
		parsed, err := time.ParseInLocation(lunar.DateFormat, raw, a.loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	coords, err := a.resolveCoordinates(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	trips, err := a.trips.ListByDate(date.Format(lunar.DateFormat))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	day := lunar.BuildDay(date, coords)
	detail := dayDetailPayload{
		dayPayload: toDayPayload(day, len(trips) > 0),
		Times:      sunMoonTimes(date, coords),
		Trips:      trips,
	}

	// 日视图内的前后翻页不跨月
	state := lunar.AppState{Year: date.Year(), Month: date.Month(), Location: a.loc}.SelectDay(date.Day())
	if state.CanPrevDay() {
		if prev, ok := state.PrevDay().SelectedDate(); ok {
			detail.PrevDay = prev.Format(lunar.DateFormat)
		}
	}
	if state.CanNextDay() {
		if next, ok := state.NextDay().SelectedDate(); ok {
			detail.NextDay = next.Format(lunar.DateFormat)
		}
	}

	c.JSON(http.StatusOK, detail)
}

func sunMoonTimes(date time.Time, coords *lunar.Coordinates) sunMoonPayload {
	var out sunMoonPayload
	if coords == nil || !coords.Valid() {
		return out
	}
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, date.Location())
	sun := astro.SunTimesAt(noon, coords.Lat, coords.Lon)
	if t, ok := sun.Sunrise(); ok {
		out.Sunrise = t.In(date.Location()).Format(clockFormat)
	}
	if t, ok := sun.Sunset(); ok {
		out.Sunset = t.In(date.Location()).Format(clockFormat)
	}
	moon := astro.MoonTimesAt(date, coords.Lat, coords.Lon)
	if moon.Rise != nil {
		out.Moonrise = moon.Rise.In(date.Location()).Format(clockFormat)
	}
	if moon.Set != nil {
		out.Moonset = moon.Set.In(date.Location()).Format(clockFormat)
	}
	return out
}

// GetMoonNow 返回此刻的月相
func (a *API) GetMoonNow(c *gin.Context) {
	now := a.now().In(a.loc)
	snap := lunar.Snapshot(now)
	phase := lunar.Classify(snap.MoonAge)
	c.JSON(http.StatusOK, gin.H{
		"at":           now.Format(time.RFC3339),
		"moon_age":     snap.MoonAge,
		"illumination": snap.Illumination,
		"phase":        toPhasePayload(phase),
	})
}
