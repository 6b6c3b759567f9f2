package service

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/lunar"
	"gorm.io/gorm"
)

// AnalyticsService 汇总出钓与渔获数据。
type AnalyticsService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewAnalyticsService 创建 AnalyticsService；loc 用于确定每次出钓当天的月相。
func NewAnalyticsService(gdb *gorm.DB, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{db: gdb, loc: loc}
}

// AnalyticsFilter 限定统计的日期区间，空值表示不限。
type AnalyticsFilter struct {
	Start string
	End   string
}

// CountEntry 是一项分组计数。
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnalyticsTotals 是总体数字。
type AnalyticsTotals struct {
	Trips          int     `json:"trips"`
	Catches        int     `json:"catches"`
	Hours          float64 `json:"hours"`
	CatchesPerTrip float64 `json:"catchesPerTrip"`
}

// PersonalBest 是重量最大的一条渔获。
type PersonalBest struct {
	CatchID uint    `json:"catchId"`
	TripID  uint    `json:"tripId"`
	Date    string  `json:"date"`
	Species string  `json:"species"`
	Weight  float64 `json:"weight"`
	Raw     string  `json:"raw"`
}

// AnalyticsSummary 是统计页所需的全部数据。
type AnalyticsSummary struct {
	Totals       AnalyticsTotals `json:"totals"`
	Species      []CountEntry    `json:"species"`
	Gear         []CountEntry    `json:"gear"`
	LunarPhases  []CountEntry    `json:"lunarPhases"`
	LunarQuality []CountEntry    `json:"lunarQuality"`
	Months       []CountEntry    `json:"months"`
	Sky          []CountEntry    `json:"sky"`
	PersonalBest *PersonalBest   `json:"personalBest,omitempty"`
}

var leadingNumber = regexp.MustCompile(`^\s*(-?\d+(?:[.,]\d+)?)`)

// Summary 计算区间内的统计数据。
func (s *AnalyticsService) Summary(filter AnalyticsFilter) (AnalyticsSummary, error) {
	summary := AnalyticsSummary{}

	query := s.db.Model(&db.Trip{})
	if filter.Start != "" {
		start, err := normalizeTripDate(filter.Start)
		if err != nil {
			return summary, err
		}
		query = query.Where("date >= ?", start)
	}
	if filter.End != "" {
		end, err := normalizeTripDate(filter.End)
		if err != nil {
			return summary, err
		}
		query = query.Where("date <= ?", end)
	}

	var trips []db.Trip
	if err := query.Order("date ASC, id ASC").Find(&trips).Error; err != nil {
		return summary, fmt.Errorf("load trips: %w", err)
	}
	if len(trips) == 0 {
		summary.Species = []CountEntry{}
		summary.Gear = []CountEntry{}
		summary.LunarPhases = []CountEntry{}
		summary.LunarQuality = []CountEntry{}
		summary.Months = []CountEntry{}
		summary.Sky = []CountEntry{}
		return summary, nil
	}

	tripIDs := make([]uint, 0, len(trips))
	tripByID := make(map[uint]db.Trip, len(trips))
	for _, t := range trips {
		tripIDs = append(tripIDs, t.ID)
		tripByID[t.ID] = t
	}

	var catches []db.FishCaught
	if err := s.db.Where("trip_id IN ?", tripIDs).Order("id ASC").Find(&catches).Error; err != nil {
		return summary, fmt.Errorf("load catches: %w", err)
	}

	var weather []db.WeatherLog
	if err := s.db.Where("trip_id IN ?", tripIDs).Find(&weather).Error; err != nil {
		return summary, fmt.Errorf("load weather logs: %w", err)
	}
	skyByTrip := make(map[uint][]string)
	for _, w := range weather {
		sky := strings.TrimSpace(w.Sky)
		if sky == "" {
			continue
		}
		if !slices.Contains(skyByTrip[w.TripID], sky) {
			skyByTrip[w.TripID] = append(skyByTrip[w.TripID], sky)
		}
	}

	phaseByTrip := make(map[uint]lunar.LunarDay, len(trips))
	for _, t := range trips {
		summary.Totals.Trips++
		if hours, ok := parseLeadingNumber(t.Hours); ok {
			summary.Totals.Hours += hours
		}
		if day, err := time.ParseInLocation(lunar.DateFormat, t.Date, s.loc); err == nil {
			phaseByTrip[t.ID] = lunar.Classify(lunar.Snapshot(day).MoonAge)
		}
	}

	species := map[string]int{}
	gear := map[string]int{}
	phases := map[string]int{}
	qualities := map[string]int{}
	months := map[string]int{}
	skies := map[string]int{}

	for _, c := range catches {
		summary.Totals.Catches++
		trip := tripByID[c.TripID]

		species[strings.TrimSpace(c.Species)]++
		for _, g := range c.Gear {
			gear[g]++
		}
		if phase, ok := phaseByTrip[c.TripID]; ok {
			phases[phase.Name]++
			qualities[phase.Quality.Label()]++
		}
		if len(trip.Date) >= 7 {
			months[trip.Date[:7]]++
		}
		for _, sky := range skyByTrip[c.TripID] {
			skies[sky]++
		}

		if weight, ok := parseLeadingNumber(c.Weight); ok {
			if summary.PersonalBest == nil || weight > summary.PersonalBest.Weight {
				summary.PersonalBest = &PersonalBest{
					CatchID: c.ID,
					TripID:  c.TripID,
					Date:    trip.Date,
					Species: c.Species,
					Weight:  weight,
					Raw:     c.Weight,
				}
			}
		}
	}

	if summary.Totals.Trips > 0 {
		summary.Totals.CatchesPerTrip = float64(summary.Totals.Catches) / float64(summary.Totals.Trips)
	}

	summary.Species = rankCounts(species)
	summary.Gear = rankCounts(gear)
	summary.LunarPhases = rankCounts(phases)
	summary.LunarQuality = rankCounts(qualities)
	summary.Sky = rankCounts(skies)

	summary.Months = make([]CountEntry, 0, len(months))
	for name, count := range months {
		summary.Months = append(summary.Months, CountEntry{Name: name, Count: count})
	}
	sort.Slice(summary.Months, func(i, j int) bool { return summary.Months[i].Name < summary.Months[j].Name })

	return summary, nil
}

// rankCounts 按数量降序、名称升序排列
func rankCounts(counts map[string]int) []CountEntry {
	out := make([]CountEntry, 0, len(counts))
	for name, count := range counts {
		out = append(out, CountEntry{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// parseLeadingNumber 读取 "4.2kg"、"3,5" 这类输入开头的数字
func parseLeadingNumber(value string) (float64, bool) {
	match := leadingNumber.FindStringSubmatch(value)
	if match == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
