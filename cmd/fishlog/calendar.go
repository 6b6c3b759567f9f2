package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fishinglog/internal/astro"
	"github.com/fishinglog/internal/lunar"
	"github.com/spf13/cobra"
)

const clockFormat = "15:04"

// observerFlags 是日历类命令共用的位置参数
type observerFlags struct {
	lat      float64
	lon      float64
	timezone string
}

func (o *observerFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.lat, "lat", -36.8485, "observer latitude in decimal degrees")
	cmd.Flags().Float64Var(&o.lon, "lon", 174.7633, "observer longitude in decimal degrees")
	cmd.Flags().StringVar(&o.timezone, "tz", "Pacific/Auckland", "IANA timezone used for local dates and clock times")
}

func (o *observerFlags) resolve() (*lunar.Coordinates, *time.Location, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("--tz: %w", err)
	}
	coords := &lunar.Coordinates{Lat: o.lat, Lon: o.lon}
	if !coords.Valid() {
		return nil, nil, errors.New("--lat/--lon out of range")
	}
	return coords, loc, nil
}

func newCalendarCmd() *cobra.Command {
	var (
		observer observerFlags
		year     int
		month    int
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print a month grid with lunar phases and bite windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, loc, err := observer.resolve()
			if err != nil {
				return err
			}
			now := time.Now().In(loc)
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				return errors.New("--month must be between 1 and 12")
			}

			printMonth(cmd.OutOrStdout(), lunar.BuildMonth(year, time.Month(month), coords, loc))
			return nil
		},
	}
	observer.register(cmd)
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "calendar month 1-12 (default current)")
	return cmd
}

func printMonth(w io.Writer, m lunar.Month) {
	fmt.Fprintf(w, "%s %d\n", m.Month, m.Year)
	fmt.Fprintln(w, "Mo Tu We Th Fr Sa Su")

	var row strings.Builder
	for i, day := range m.Days {
		if day == nil {
			row.WriteString("   ")
		} else {
			fmt.Fprintf(&row, "%2d ", day.Day)
		}
		if (i+1)%7 == 0 || i == len(m.Days)-1 {
			fmt.Fprintln(w, strings.TrimRight(row.String(), " "))
			row.Reset()
		}
	}
	fmt.Fprintln(w)

	for _, day := range m.Days {
		if day == nil {
			continue
		}
		fmt.Fprintf(w, "%s  %-20s %-9s %s\n",
			day.DateString, day.LunarPhase.Name, day.LunarPhase.Quality.Label(), formatWindows(day.MajorBites))
	}
}

func newDayCmd() *cobra.Command {
	var (
		observer observerFlags
		date     string
	)

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Print the lunar phase, sun and moon times and bite windows for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, loc, err := observer.resolve()
			if err != nil {
				return err
			}
			day := time.Now().In(loc)
			if date != "" {
				day, err = time.ParseInLocation(lunar.DateFormat, date, loc)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			printDay(cmd.OutOrStdout(), lunar.BuildDay(day, coords), coords)
			return nil
		},
	}
	observer.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	return cmd
}

func printDay(w io.Writer, day lunar.DayData, coords *lunar.Coordinates) {
	loc := day.Date.Location()
	phase := day.LunarPhase

	fmt.Fprintf(w, "%s  %s\n", day.DateString, day.Date.Weekday())
	fmt.Fprintf(w, "Phase:        %s (%s)\n", phase.Name, phase.Quality.Label())
	fmt.Fprintf(w, "              %s\n", phase.Description)
	fmt.Fprintf(w, "Moon age:     %.1f days, %.0f%% illuminated\n", day.MoonAge, day.Illumination*100)

	noon := time.Date(day.Date.Year(), day.Date.Month(), day.Date.Day(), 12, 0, 0, 0, loc)
	sun := astro.SunTimesAt(noon, coords.Lat, coords.Lon)
	sunrise, sunset := "-", "-"
	if t, ok := sun.Sunrise(); ok {
		sunrise = t.In(loc).Format(clockFormat)
	}
	if t, ok := sun.Sunset(); ok {
		sunset = t.In(loc).Format(clockFormat)
	}
	fmt.Fprintf(w, "Sunrise:      %s   Sunset:  %s\n", sunrise, sunset)

	moon := astro.MoonTimesAt(day.Date, coords.Lat, coords.Lon)
	moonrise, moonset := "-", "-"
	if moon.Rise != nil {
		moonrise = moon.Rise.In(loc).Format(clockFormat)
	}
	if moon.Set != nil {
		moonset = moon.Set.In(loc).Format(clockFormat)
	}
	fmt.Fprintf(w, "Moonrise:     %s   Moonset: %s\n", moonrise, moonset)

	fmt.Fprintf(w, "Major bites:  %s\n", formatWindows(day.MajorBites))
	fmt.Fprintf(w, "Minor bites:  %s\n", formatWindows(day.MinorBites))
}

func formatWindows(windows []lunar.BiteWindow) string {
	if len(windows) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(windows))
	for _, win := range windows {
		parts = append(parts, fmt.Sprintf("%s-%s %s", win.StartClock, win.EndClock, win.Quality))
	}
	return strings.Join(parts, ", ")
}

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the thirty nights of the lunar month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, day := range lunar.Days() {
				fmt.Fprintf(w, "%2d  %-20s %-9s %s\n", day.Index+1, day.Name, day.Quality.Label(), day.Description)
			}
			return nil
		},
	}
}
