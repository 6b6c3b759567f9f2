package astro

import (
	"math"
	"time"
)

// SunPosition returns the sun's azimuth and altitude at t for the observer.
func SunPosition(t time.Time, lat, lon float64) Position {
	lw, phi := observer(lat, lon)
	d := toDays(t)
	c := sunCoords(d)
	h := siderealTime(d, lw) - c.ra

	return Position{
		Azimuth:  azimuth(h, phi, c.dec),
		Altitude: altitude(h, phi, c.dec),
	}
}

// SunEvent names a pair of morning/evening events defined by a solar altitude.
type SunEvent struct {
	Angle   float64
	Morning string
	Evening string
}

// SunEvents lists the altitude thresholds reported by SunTimes.
var SunEvents = []SunEvent{
	{Angle: -0.833, Morning: "sunrise", Evening: "sunset"},
	{Angle: -0.3, Morning: "sunriseEnd", Evening: "sunsetStart"},
	{Angle: -6, Morning: "dawn", Evening: "dusk"},
	{Angle: -12, Morning: "nauticalDawn", Evening: "nauticalDusk"},
	{Angle: -18, Morning: "nightEnd", Evening: "night"},
	{Angle: 6, Morning: "goldenHourEnd", Evening: "goldenHour"},
}

// SunTimes holds the solar events of one day. Events that do not happen on
// that day (polar day or night) are missing from Events.
type SunTimes struct {
	SolarNoon time.Time
	Nadir     time.Time
	Events    map[string]time.Time
}

// Sunrise returns the upper-limb sunrise if it occurs.
func (s SunTimes) Sunrise() (time.Time, bool) {
	t, ok := s.Events["sunrise"]
	return t, ok
}

// Sunset returns the upper-limb sunset if it occurs.
func (s SunTimes) Sunset() (time.Time, bool) {
	t, ok := s.Events["sunset"]
	return t, ok
}

const j0 = 0.0009

func julianCycle(d, lw float64) float64 {
	return math.Round(d - j0 - lw/(2*math.Pi))
}

func approxTransit(ht, lw, n float64) float64 {
	return j0 + (ht+lw)/(2*math.Pi) + n
}

func solarTransitJ(ds, m, l float64) float64 {
	return j2000 + ds + 0.0053*math.Sin(m) - 0.0069*math.Sin(2*l)
}

func hourAngle(h, phi, dec float64) float64 {
	return math.Acos((math.Sin(h) - math.Sin(phi)*math.Sin(dec)) / (math.Cos(phi) * math.Cos(dec)))
}

func getSetJ(h, lw, phi, dec, n, m, l float64) float64 {
	w := hourAngle(h, phi, dec)
	a := approxTransit(w, lw, n)
	return solarTransitJ(a, m, l)
}

// SunTimesAt computes the solar events for the day nearest to t at the
// observer's longitude. Returned times carry t's location.
func SunTimesAt(t time.Time, lat, lon float64) SunTimes {
	lw, phi := observer(lat, lon)
	loc := t.Location()

	d := toDays(t)
	n := julianCycle(d, lw)
	ds := approxTransit(0, lw, n)

	m := solarMeanAnomaly(ds)
	l := eclipticLongitude(m)
	dec := declination(l, 0)

	jNoon := solarTransitJ(ds, m, l)

	result := SunTimes{
		SolarNoon: fromJulian(jNoon, loc),
		Nadir:     fromJulian(jNoon-0.5, loc),
		Events:    make(map[string]time.Time, len(SunEvents)*2),
	}

	for _, ev := range SunEvents {
		jSet := getSetJ(ev.Angle*rad, lw, phi, dec, n, m, l)
		if math.IsNaN(jSet) {
			continue
		}
		jRise := jNoon - (jSet - jNoon)
		result.Events[ev.Morning] = fromJulian(jRise, loc)
		result.Events[ev.Evening] = fromJulian(jSet, loc)
	}

	return result
}
