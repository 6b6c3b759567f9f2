// Package astro computes low-precision sun and moon ephemerides: positions,
// rise/set/transit times and lunar illumination for an observer on Earth.
//
// The model is the classic analytical approximation used by most
// planetarium widgets. It is accurate to a few minutes for rise/set times,
// which is all the bite-time predictor needs.
package astro

import (
	"math"
	"time"
)

const (
	rad = math.Pi / 180

	dayMs = 1000 * 60 * 60 * 24
	j1970 = 2440588.0
	j2000 = 2451545.0

	// obliquity of the Earth
	obliquity = rad * 23.4397
)

// Position is the horizontal position of a body, in radians.
// Azimuth is measured from south, positive towards west.
type Position struct {
	Azimuth  float64
	Altitude float64
}

func toJulian(t time.Time) float64 {
	return float64(t.UnixMilli())/dayMs - 0.5 + j1970
}

func fromJulian(j float64, loc *time.Location) time.Time {
	ms := (j + 0.5 - j1970) * dayMs
	return time.UnixMilli(int64(math.Round(ms))).In(loc)
}

func toDays(t time.Time) float64 {
	return toJulian(t) - j2000
}

func rightAscension(l, b float64) float64 {
	return math.Atan2(math.Sin(l)*math.Cos(obliquity)-math.Tan(b)*math.Sin(obliquity), math.Cos(l))
}

func declination(l, b float64) float64 {
	return math.Asin(math.Sin(b)*math.Cos(obliquity) + math.Cos(b)*math.Sin(obliquity)*math.Sin(l))
}

func azimuth(h, phi, dec float64) float64 {
	return math.Atan2(math.Sin(h), math.Cos(h)*math.Sin(phi)-math.Tan(dec)*math.Cos(phi))
}

func altitude(h, phi, dec float64) float64 {
	return math.Asin(math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Cos(h))
}

func siderealTime(d, lw float64) float64 {
	return rad*(280.16+360.9856235*d) - lw
}

// astroRefraction returns the refraction correction for altitude h.
// Negative altitudes are clamped to the horizon value.
func astroRefraction(h float64) float64 {
	if h < 0 {
		h = 0
	}
	return 0.0002967 / math.Tan(h+0.00312536/(h+0.08901179))
}

func solarMeanAnomaly(d float64) float64 {
	return rad * (357.5291 + 0.98560028*d)
}

func eclipticLongitude(m float64) float64 {
	c := rad * (1.9148*math.Sin(m) + 0.02*math.Sin(2*m) + 0.0003*math.Sin(3*m))
	p := rad * 102.9372 // perihelion of the Earth
	return m + c + p + math.Pi
}

type equatorial struct {
	ra   float64
	dec  float64
	dist float64
}

func sunCoords(d float64) equatorial {
	m := solarMeanAnomaly(d)
	l := eclipticLongitude(m)
	return equatorial{ra: rightAscension(l, 0), dec: declination(l, 0)}
}

func observer(lat, lon float64) (lw, phi float64) {
	return rad * -lon, rad * lat
}

// startOfDay returns local midnight of t's calendar day in t's location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
