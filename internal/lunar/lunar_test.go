package lunar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var auckland = Coordinates{Lat: -36.8485, Lon: 174.7633}

func nzLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func TestClassifyExamples(t *testing.T) {
	tests := []struct {
		age     float64
		name    string
		quality Quality
		index   int
	}{
		{age: 0.0, name: "Whiro", quality: QualityPoor, index: 0},
		{age: 14.9, name: "Oanui", quality: QualityGood, index: 14},
		{age: 29.6, name: "Mutuwhenua", quality: QualityPoor, index: 29},
		{age: 29.53, name: "Mutuwhenua", quality: QualityPoor, index: 29},
		{age: -0.2, name: "Whiro", quality: QualityPoor, index: 0},
		{age: math.NaN(), name: "Whiro", quality: QualityPoor, index: 0},
		{age: math.Inf(1), name: "Mutuwhenua", quality: QualityPoor, index: 29},
		{age: math.Inf(-1), name: "Whiro", quality: QualityPoor, index: 0},
		{age: 1e19, name: "Mutuwhenua", quality: QualityPoor, index: 29},
		{age: 1e300, name: "Mutuwhenua", quality: QualityPoor, index: 29},
		{age: math.MaxFloat64, name: "Mutuwhenua", quality: QualityPoor, index: 29},
	}

	for _, tt := range tests {
		day := Classify(tt.age)
		assert.Equal(t, tt.name, day.Name, "age %v", tt.age)
		assert.Equal(t, tt.quality, day.Quality, "age %v", tt.age)
		assert.Equal(t, tt.index, day.Index, "age %v", tt.age)
	}
}

func TestClassifyIndexProperty(t *testing.T) {
	for age := 0.0; age < SynodicMonth; age += 0.07 {
		want := int(math.Min(math.Floor(age), 29))
		got := Classify(age)
		require.Equal(t, want, got.Index)
		require.Equal(t, got, Classify(age), "classification must be stable")
	}
}

func TestDaysTableIsComplete(t *testing.T) {
	days := Days()
	require.Len(t, days, 30)
	for i, d := range days {
		assert.Equal(t, i, d.Index)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Description)
		for _, q := range d.BiteQualities {
			assert.NotEmpty(t, q)
		}
	}

	days[0].Name = "changed"
	assert.Equal(t, "Whiro", Classify(0).Name, "Days must return a copy")
}

func TestQualityLabel(t *testing.T) {
	assert.Equal(t, "Excellent", QualityExcellent.Label())
	assert.Equal(t, "Poor", QualityPoor.Label())
	assert.Equal(t, "", Quality("").Label())
	assert.Greater(t, QualityGood.Rank(), QualityFair.Rank())
}

func TestSnapshotNearKnownPhases(t *testing.T) {
	full := Snapshot(time.Date(2024, 1, 25, 17, 54, 0, 0, time.UTC))
	assert.InDelta(t, 14.77, full.MoonAge, 0.6)
	assert.Greater(t, full.Illumination, 0.99)
	// full moon sits on the night 14/15 boundary; the index must follow the age
	assert.Equal(t, DayIndex(full.MoonAge), full.PhaseIndex)
	assert.Contains(t, []int{14, 15}, full.PhaseIndex)

	// a day earlier is strictly before the full-moon night
	before := Snapshot(time.Date(2024, 1, 24, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, DayIndex(before.MoonAge), before.PhaseIndex)
	assert.Less(t, before.PhaseIndex, full.PhaseIndex)

	quarter := Snapshot(time.Date(2024, 1, 18, 3, 53, 0, 0, time.UTC))
	assert.InDelta(t, 0.5, quarter.Illumination, 0.05)
}

func TestPredictWindowSpans(t *testing.T) {
	loc := nzLocation(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)

	for i := 0; i < 31; i++ {
		date := start.AddDate(0, 0, i)
		prediction := Predict(date, &auckland)

		require.LessOrEqual(t, len(prediction.Major), 2)
		require.LessOrEqual(t, len(prediction.Minor), 2)

		for _, w := range prediction.Major {
			assert.Equal(t, 2*time.Hour, w.Duration())
			assert.Equal(t, w.Start.Format("15:04"), w.StartClock)
			assert.Equal(t, w.End.Format("15:04"), w.EndClock)
		}
		for _, w := range prediction.Minor {
			assert.Equal(t, time.Hour, w.Duration())
		}
	}
}

func TestPredictUsesDayQualities(t *testing.T) {
	loc := nzLocation(t)
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)

	day := Classify(Snapshot(date).MoonAge)
	prediction := Predict(date, &auckland)

	for i, w := range prediction.Major {
		assert.Equal(t, day.BiteQualities[i], w.Quality)
	}
	if len(prediction.Minor) == 2 {
		assert.Equal(t, day.BiteQualities[SlotMinorRise], prediction.Minor[0].Quality)
		assert.Equal(t, day.BiteQualities[SlotMinorSet], prediction.Minor[1].Quality)
	}
}

func TestPredictWithoutCoordinatesIsEmpty(t *testing.T) {
	prediction := Predict(time.Now(), nil)
	assert.NotNil(t, prediction.Major)
	assert.NotNil(t, prediction.Minor)
	assert.False(t, prediction.Available())

	bad := Coordinates{Lat: 120, Lon: 0}
	assert.False(t, Predict(time.Now(), &bad).Available())
}

func TestBuildMonthLayout(t *testing.T) {
	loc := nzLocation(t)

	for month := time.January; month <= time.December; month++ {
		m := BuildMonth(2025, month, &auckland, loc)

		first := time.Date(2025, month, 1, 0, 0, 0, 0, loc)
		blanks := (int(first.Weekday()) + 6) % 7

		require.Equal(t, blanks, m.LeadingBlanks)
		require.Len(t, m.Days, blanks+DaysIn(2025, month))

		for i := 0; i < blanks; i++ {
			assert.Nil(t, m.Days[i])
		}

		firstDay := m.Days[blanks]
		require.NotNil(t, firstDay)
		assert.Equal(t, 1, firstDay.Day)
		assert.Equal(t, first.Weekday(), firstDay.Date.Weekday())

		last := m.Days[len(m.Days)-1]
		assert.Equal(t, DaysIn(2025, month), last.Day)
	}
}

func TestBuildMonthKnownLeadingBlanks(t *testing.T) {
	// 1 March 2025 is a Saturday, five cells after Monday.
	m := BuildMonth(2025, time.March, nil, time.UTC)
	assert.Equal(t, 5, m.LeadingBlanks)
	assert.Len(t, m.Days, 5+31)

	// Without coordinates the lunar data is still there but no bites are predicted.
	day := m.Days[5]
	assert.NotEmpty(t, day.LunarPhase.Name)
	assert.Empty(t, day.MajorBites)
	assert.Empty(t, day.MinorBites)
}

func TestDaysInHandlesLeapYears(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2025, time.February))
	assert.Equal(t, 31, DaysIn(2025, time.December))
}

func TestAppStateNavigation(t *testing.T) {
	state := NewAppState(time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC))

	next := state.NextMonth()
	assert.Equal(t, 2026, next.Year)
	assert.Equal(t, time.January, next.Month)
	assert.Equal(t, 2025, state.Year, "receiver must not change")

	prev := next.PrevMonth().PrevMonth()
	assert.Equal(t, time.November, prev.Month)

	open := state.SelectDay(31)
	assert.Equal(t, 31, open.Selected)
	assert.False(t, open.CanNextDay())
	assert.Equal(t, 31, open.NextDay().Selected)
	assert.Equal(t, 30, open.PrevDay().Selected)

	first := state.SelectDay(1)
	assert.False(t, first.CanPrevDay())
	assert.Equal(t, 1, first.PrevDay().Selected)

	assert.Equal(t, 0, state.SelectDay(32).Selected)

	date, ok := open.SelectedDate()
	require.True(t, ok)
	assert.Equal(t, "2025-12-31", date.Format(DateFormat))

	_, ok = open.CloseDay().SelectedDate()
	assert.False(t, ok)
	assert.Equal(t, 0, open.NextMonth().Selected)
}
