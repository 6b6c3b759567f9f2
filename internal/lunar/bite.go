package lunar

import (
	"time"

	"github.com/fishinglog/internal/astro"
)

const (
	clockFormat = "15:04"

	majorHalfSpan = time.Hour
	minorHalfSpan = 30 * time.Minute
)

// Coordinates is an observer location in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are within range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// BiteWindow is a predicted feeding period.
type BiteWindow struct {
	Start      time.Time `json:"-"`
	End        time.Time `json:"-"`
	StartClock string    `json:"start"`
	EndClock   string    `json:"end"`
	Quality    Quality   `json:"quality"`
}

// Duration returns the length of the window.
func (w BiteWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Prediction groups the bite windows of one day. Major windows sit on the
// moon's transits, minor windows on moonrise and moonset.
type Prediction struct {
	Major []BiteWindow `json:"major"`
	Minor []BiteWindow `json:"minor"`
}

// Available reports whether any window could be computed.
func (p Prediction) Available() bool {
	return len(p.Major) > 0 || len(p.Minor) > 0
}

func newWindow(center time.Time, halfSpan time.Duration, quality Quality) BiteWindow {
	start := center.Add(-halfSpan)
	end := center.Add(halfSpan)
	return BiteWindow{
		Start:      start,
		End:        end,
		StartClock: start.Format(clockFormat),
		EndClock:   end.Format(clockFormat),
		Quality:    quality,
	}
}

// Predict returns the bite windows for the local day containing date.
// With nil coordinates the prediction is empty, which callers should show as
// "unavailable" rather than as an error.
func Predict(date time.Time, coords *Coordinates) Prediction {
	prediction := Prediction{Major: []BiteWindow{}, Minor: []BiteWindow{}}
	if coords == nil || !coords.Valid() {
		return prediction
	}

	day := Classify(Snapshot(date).MoonAge)
	return predictFor(date, *coords, day.BiteQualities)
}

func predictFor(date time.Time, coords Coordinates, qualities [4]Quality) Prediction {
	prediction := Prediction{Major: []BiteWindow{}, Minor: []BiteWindow{}}

	transits := astro.MoonTransits(date, coords.Lat, coords.Lon)
	for i, transit := range transits {
		if i > SlotMajor2 {
			break
		}
		prediction.Major = append(prediction.Major, newWindow(transit.Time, majorHalfSpan, qualities[i]))
	}

	times := astro.MoonTimesAt(date, coords.Lat, coords.Lon)
	if times.Rise != nil {
		prediction.Minor = append(prediction.Minor, newWindow(*times.Rise, minorHalfSpan, qualities[SlotMinorRise]))
	}
	if times.Set != nil {
		prediction.Minor = append(prediction.Minor, newWindow(*times.Set, minorHalfSpan, qualities[SlotMinorSet]))
	}

	return prediction
}
