package astro

import (
	"math"
	"time"
)

// MoonPosition is the moon's horizontal position. Altitude includes
// atmospheric refraction; Distance is in kilometres.
type MoonPosition struct {
	Azimuth          float64
	Altitude         float64
	Distance         float64
	ParallacticAngle float64
}

// Illumination describes the lit portion of the moon.
// Phase runs 0 (new) → 0.25 (first quarter) → 0.5 (full) → 0.75 → 1 (new).
type Illumination struct {
	Fraction float64
	Phase    float64
	Angle    float64
}

// MoonTimes holds moonrise and moonset for one local day. When neither
// happens, exactly one of AlwaysUp/AlwaysDown is set.
type MoonTimes struct {
	Rise       *time.Time
	Set        *time.Time
	AlwaysUp   bool
	AlwaysDown bool
}

// Transit is a meridian crossing of the moon. Overhead is true for the upper
// culmination (moon above the horizon), false for the lower one.
type Transit struct {
	Time     time.Time
	Overhead bool
}

const (
	sunDistanceKm = 149598000
	// moon's mean apparent radius plus parallax, used as the rise/set altitude
	moonHorizon = 0.133 * rad
)

func moonCoords(d float64) equatorial {
	l := rad * (218.316 + 13.176396*d) // ecliptic longitude
	m := rad * (134.963 + 13.064993*d) // mean anomaly
	f := rad * (93.272 + 13.229350*d)  // mean distance

	lng := l + rad*6.289*math.Sin(m)
	lat := rad * 5.128 * math.Sin(f)
	dist := 385001 - 20905*math.Cos(m)

	return equatorial{
		ra:   rightAscension(lng, lat),
		dec:  declination(lng, lat),
		dist: dist,
	}
}

// MoonPositionAt returns the moon's position at t for the observer.
func MoonPositionAt(t time.Time, lat, lon float64) MoonPosition {
	lw, phi := observer(lat, lon)
	d := toDays(t)

	c := moonCoords(d)
	h := siderealTime(d, lw) - c.ra
	alt := altitude(h, phi, c.dec)
	pa := math.Atan2(math.Sin(h), math.Tan(phi)*math.Cos(c.dec)-math.Sin(c.dec)*math.Cos(h))

	alt += astroRefraction(alt)

	return MoonPosition{
		Azimuth:          azimuth(h, phi, c.dec),
		Altitude:         alt,
		Distance:         c.dist,
		ParallacticAngle: pa,
	}
}

// MoonIllumination returns the illuminated fraction and phase at t.
func MoonIllumination(t time.Time) Illumination {
	d := toDays(t)
	s := sunCoords(d)
	m := moonCoords(d)

	phi := math.Acos(math.Sin(s.dec)*math.Sin(m.dec) + math.Cos(s.dec)*math.Cos(m.dec)*math.Cos(s.ra-m.ra))
	inc := math.Atan2(sunDistanceKm*math.Sin(phi), m.dist-sunDistanceKm*math.Cos(phi))
	angle := math.Atan2(
		math.Cos(s.dec)*math.Sin(s.ra-m.ra),
		math.Sin(s.dec)*math.Cos(m.dec)-math.Cos(s.dec)*math.Sin(m.dec)*math.Cos(s.ra-m.ra),
	)

	sign := 1.0
	if angle < 0 {
		sign = -1
	}

	return Illumination{
		Fraction: (1 + math.Cos(inc)) / 2,
		Phase:    0.5 + 0.5*inc*sign/math.Pi,
		Angle:    angle,
	}
}

func hoursLater(t time.Time, h float64) time.Time {
	return t.Add(time.Duration(h * float64(time.Hour)))
}

// MoonTimesAt finds moonrise and moonset during the local day containing t.
// Altitude is sampled every two hours and each bracket is fitted with a
// parabola whose real roots in [-1, 1] are the crossings.
func MoonTimesAt(t time.Time, lat, lon float64) MoonTimes {
	day := startOfDay(t)

	h0 := MoonPositionAt(day, lat, lon).Altitude - moonHorizon

	var (
		rise, set       float64
		hasRise, hasSet bool
		ye              float64
	)

	for i := 1.0; i <= 24; i += 2 {
		h1 := MoonPositionAt(hoursLater(day, i), lat, lon).Altitude - moonHorizon
		h2 := MoonPositionAt(hoursLater(day, i+1), lat, lon).Altitude - moonHorizon

		a := (h0+h2)/2 - h1
		b := (h2 - h0) / 2
		xe := -b / (2 * a)
		ye = (a*xe+b)*xe + h1
		d := b*b - 4*a*h1

		roots := 0
		var x1, x2 float64
		if d >= 0 {
			dx := math.Sqrt(d) / (math.Abs(a) * 2)
			x1 = xe - dx
			x2 = xe + dx
			if math.Abs(x1) <= 1 {
				roots++
			}
			if math.Abs(x2) <= 1 {
				roots++
			}
			if x1 < -1 {
				x1 = x2
			}
		}

		switch roots {
		case 1:
			if h0 < 0 {
				rise, hasRise = i+x1, true
			} else {
				set, hasSet = i+x1, true
			}
		case 2:
			if ye < 0 {
				rise, set = i+x2, i+x1
			} else {
				rise, set = i+x1, i+x2
			}
			hasRise, hasSet = true, true
		}

		if hasRise && hasSet {
			break
		}

		h0 = h2
	}

	var result MoonTimes
	if hasRise {
		r := hoursLater(day, rise)
		result.Rise = &r
	}
	if hasSet {
		s := hoursLater(day, set)
		result.Set = &s
	}
	if !hasRise && !hasSet {
		if ye > 0 {
			result.AlwaysUp = true
		} else {
			result.AlwaysDown = true
		}
	}

	return result
}

// MoonTransits returns the moon's meridian crossings during the local day
// containing t, in chronological order. The day is scanned hour by hour for a
// change in the sign of the azimuth and the crossing hour is then refined to
// the minute. At most two transits are reported.
func MoonTransits(t time.Time, lat, lon float64) []Transit {
	day := startOfDay(t)
	next := day.AddDate(0, 0, 1)

	transits := make([]Transit, 0, 2)

	at := func(hour, minute int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	}
	positive := func(ts time.Time) bool {
		return MoonPositionAt(ts, lat, lon).Azimuth > 0
	}

	prev := positive(at(0, 0))
	for hour := 1; hour <= 25 && len(transits) < 2; hour++ {
		cur := positive(at(hour, 0))
		if cur == prev {
			continue
		}

		// the crossing lies inside [hour-1, hour)
		start := prev
		for minute := 1; minute <= 60; minute++ {
			ts := at(hour-1, minute)
			if positive(ts) == start {
				continue
			}
			if !ts.Before(next) {
				break
			}
			transits = append(transits, Transit{
				Time:     ts,
				Overhead: MoonPositionAt(ts, lat, lon).Altitude > 0,
			})
			break
		}

		prev = cur
	}

	return transits
}
