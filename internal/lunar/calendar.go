package lunar

import "time"

// DateFormat is the layout used for calendar dates throughout the log.
const DateFormat = "2006-01-02"

// DayData is everything the calendar shows for one day.
type DayData struct {
	Day          int          `json:"day"`
	Date         time.Time    `json:"-"`
	DateString   string       `json:"date"`
	LunarPhase   LunarDay     `json:"-"`
	MoonAge      float64      `json:"moon_age"`
	Illumination float64      `json:"illumination"`
	MajorBites   []BiteWindow `json:"major_bites"`
	MinorBites   []BiteWindow `json:"minor_bites"`
}

// Month is a calendar grid. Days starts with nil cells so that the 1st lands
// in its weekday column, with weeks starting on Monday.
type Month struct {
	Year          int
	Month         time.Month
	LeadingBlanks int
	Days          []*DayData
}

// LeadingBlanks returns the number of empty cells before the 1st of the month
// in a Monday-first week.
func LeadingBlanks(year int, month time.Month, loc *time.Location) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return (int(first.Weekday()) + 6) % 7
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildDay assembles the lunar and bite data for the local day of date.
func BuildDay(date time.Time, coords *Coordinates) DayData {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	snap := Snapshot(day)
	phase := lunarDays[snap.PhaseIndex]

	var bites Prediction
	if coords != nil && coords.Valid() {
		bites = predictFor(day, *coords, phase.BiteQualities)
	} else {
		bites = Prediction{Major: []BiteWindow{}, Minor: []BiteWindow{}}
	}

	return DayData{
		Day:          day.Day(),
		Date:         day,
		DateString:   day.Format(DateFormat),
		LunarPhase:   phase,
		MoonAge:      snap.MoonAge,
		Illumination: snap.Illumination,
		MajorBites:   bites.Major,
		MinorBites:   bites.Minor,
	}
}

// BuildMonth assembles a month grid for the observer. It performs no I/O.
func BuildMonth(year int, month time.Month, coords *Coordinates, loc *time.Location) Month {
	if loc == nil {
		loc = time.Local
	}

	blanks := LeadingBlanks(year, month, loc)
	count := DaysIn(year, month)

	days := make([]*DayData, blanks, blanks+count)
	for d := 1; d <= count; d++ {
		data := BuildDay(time.Date(year, month, d, 0, 0, 0, 0, loc), coords)
		days = append(days, &data)
	}

	return Month{
		Year:          year,
		Month:         month,
		LeadingBlanks: blanks,
		Days:          days,
	}
}
