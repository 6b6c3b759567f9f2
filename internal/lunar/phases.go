// Package lunar turns ephemeris data into fishing guidance: the 30 days of
// the Maramataka lunar calendar, per-day bite windows and month grids.
package lunar

import (
	"math"
	"strings"
	"time"

	"github.com/fishinglog/internal/astro"
)

// Quality rates a day or a single bite window.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityAverage   Quality = "average"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// Label returns the capitalised display form, e.g. "Excellent".
func (q Quality) Label() string {
	if q == "" {
		return ""
	}
	return strings.ToUpper(string(q[:1])) + string(q[1:])
}

// Rank orders qualities from poor (0) to excellent (4).
func (q Quality) Rank() int {
	switch q {
	case QualityExcellent:
		return 4
	case QualityGood:
		return 3
	case QualityAverage:
		return 2
	case QualityFair:
		return 1
	default:
		return 0
	}
}

// Bite-quality slots, in the order stored in LunarDay.BiteQualities.
const (
	SlotMajor1 = iota
	SlotMajor2
	SlotMinorRise
	SlotMinorSet
)

// LunarDay is one entry of the lunar calendar.
type LunarDay struct {
	Index         int
	Name          string
	Quality       Quality
	Description   string
	BiteQualities [4]Quality
}

// SynodicMonth is the mean length of a lunar cycle in days, as used for
// converting phase to moon age.
const SynodicMonth = 29.53

var lunarDays = buildLunarDays()

func buildLunarDays() [30]LunarDay {
	const (
		e = QualityExcellent
		g = QualityGood
		a = QualityAverage
		f = QualityFair
		p = QualityPoor
	)
	type q = [4]Quality

	return [30]LunarDay{
		{0, "Whiro", p, "The new moon. An unfavourable day for fishing.", q{p, p, p, p}},
		{1, "Tirea", a, "The moon is a sliver. A reasonably good day for crayfishing.", q{p, a, p, p}},
		{2, "Hoata", e, "A very good day for eeling and crayfishing.", q{g, e, g, a}},
		{3, "Oue", g, "A good day for planting and fishing.", q{a, g, a, p}},
		{4, "Okoro", g, "Another good day for planting and fishing.", q{a, g, f, p}},
		{5, "Tamatea-a-hotu", a, "A day for planting. Fishing is average.", q{f, a, f, p}},
		{6, "Tamatea-a-ngana", g, "A good day for fishing, but the weather can be unpredictable.", q{g, f, g, f}},
		{7, "Tamatea-whakapau", p, "Not a good day for fishing.", q{p, f, p, f}},
		{8, "Huna", p, "Means 'to hide'. Not a good day for fishing.", q{p, p, p, p}},
		{9, "Ari", p, "A disagreeable day. Unproductive.", q{p, p, p, p}},
		{10, "Hotu", e, "The moon is bright and nearing full. A very good time for night fishing.", q{e, a, f, f}},
		{11, "Mawharu", g, "A most favourable day for planting food and a good day for fishing.", q{g, g, f, f}},
		{12, "Atua", p, "Not a good day for planting or fishing.", q{f, p, p, p}},
		{13, "Ohua", e, "The moon is nearly full. One of the best nights for fishing.", q{e, g, g, f}},
		{14, "Oanui", g, "The day of the full moon. Good for fishing.", q{a, e, g, f}},
		{15, "Oturu", g, "A good day for fishing and a very good day for eeling.", q{f, g, p, p}},
		{16, "Rakau-nui", g, "A very good day for fishing.", q{f, g, p, p}},
		{17, "Rakau-matohi", g, "A fine day for fishing.", q{g, f, p, p}},
		{18, "Takirau", a, "Fine weather in the morning. Fishing is average.", q{e, a, f, f}},
		{19, "Oike", a, "The afternoon is favourable for fishing.", q{a, a, f, f}},
		{20, "Korekore-te-whiwhia", g, "A bad day for fishing.", q{g, g, a, a}},
		{21, "Korekore-te-rawea", p, "Another bad day for fishing.", q{p, p, p, p}},
		{22, "Korekore-whakapau", p, "A fairly good day.", q{p, p, p, p}},
		{23, "Tangaroa-a-mua", e, "A good day for fishing.", q{e, g, g, f}},
		{24, "Tangaroa-a-roto", e, "Another good day for fishing.", q{e, e, g, g}},
		{25, "Tangaroa-kiokio", e, "An excellent day for fishing.", q{e, e, e, g}},
		{26, "Otane", g, "A good day, and a good night for eeling.", q{g, f, f, p}},
		{27, "Orongonui", g, "A desirable day for fishing.", q{g, g, f, f}},
		{28, "Mauri", a, "The morning is fine. Fishing is average.", q{f, a, p, p}},
		{29, "Mutuwhenua", p, "An exceedingly bad day for fishing.", q{p, p, p, p}},
	}
}

// Days returns a copy of the full calendar table.
func Days() []LunarDay {
	out := make([]LunarDay, len(lunarDays))
	copy(out, lunarDays[:])
	return out
}

// DayIndex maps a moon age to its table index: floor(age) clamped to [0, 29].
func DayIndex(moonAge float64) int {
	last := len(lunarDays) - 1
	if math.IsNaN(moonAge) || moonAge < 0 {
		return 0
	}
	// clamp before converting so huge or infinite ages cannot overflow int
	if moonAge >= float64(last) {
		return last
	}
	return int(math.Floor(moonAge))
}

// Classify returns the lunar day for a moon age in days since new moon.
func Classify(moonAge float64) LunarDay {
	return lunarDays[DayIndex(moonAge)]
}

// MoonSnapshot is the moon's state at one instant.
type MoonSnapshot struct {
	PhaseIndex   int
	MoonAge      float64
	Illumination float64
}

// Snapshot computes the moon's age and illumination at t.
func Snapshot(t time.Time) MoonSnapshot {
	ill := astro.MoonIllumination(t)
	age := ill.Phase * SynodicMonth
	return MoonSnapshot{
		PhaseIndex:   DayIndex(age),
		MoonAge:      age,
		Illumination: ill.Fraction,
	}
}
