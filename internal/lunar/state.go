package lunar

import "time"

// AppState is the navigation state of the calendar view: the displayed month
// and, when the day sheet is open, the selected day. Updates return a new
// value and never mutate the receiver.
type AppState struct {
	Year     int
	Month    time.Month
	Selected int // day of month, 0 when no day is open
	Location *time.Location
}

// NewAppState opens the calendar on the month containing now.
func NewAppState(now time.Time) AppState {
	return AppState{Year: now.Year(), Month: now.Month(), Location: now.Location()}
}

func (s AppState) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// NextMonth moves the view forward one month and closes the day sheet.
func (s AppState) NextMonth() AppState {
	first := time.Date(s.Year, s.Month+1, 1, 0, 0, 0, 0, s.loc())
	return AppState{Year: first.Year(), Month: first.Month(), Location: s.Location}
}

// PrevMonth moves the view back one month and closes the day sheet.
func (s AppState) PrevMonth() AppState {
	first := time.Date(s.Year, s.Month-1, 1, 0, 0, 0, 0, s.loc())
	return AppState{Year: first.Year(), Month: first.Month(), Location: s.Location}
}

// SelectDay opens the day sheet. Days outside the displayed month are ignored.
func (s AppState) SelectDay(day int) AppState {
	if day < 1 || day > DaysIn(s.Year, s.Month) {
		return s
	}
	s.Selected = day
	return s
}

// CloseDay closes the day sheet.
func (s AppState) CloseDay() AppState {
	s.Selected = 0
	return s
}

// CanPrevDay reports whether the day sheet can step back without leaving
// the displayed month.
func (s AppState) CanPrevDay() bool {
	return s.Selected > 1
}

// CanNextDay reports whether the day sheet can step forward without leaving
// the displayed month.
func (s AppState) CanNextDay() bool {
	return s.Selected > 0 && s.Selected < DaysIn(s.Year, s.Month)
}

// PrevDay steps the open day sheet back one day within the month.
func (s AppState) PrevDay() AppState {
	if !s.CanPrevDay() {
		return s
	}
	s.Selected--
	return s
}

// NextDay steps the open day sheet forward one day within the month.
func (s AppState) NextDay() AppState {
	if !s.CanNextDay() {
		return s
	}
	s.Selected++
	return s
}

// SelectedDate returns the open day, if any.
func (s AppState) SelectedDate() (time.Time, bool) {
	if s.Selected == 0 {
		return time.Time{}, false
	}
	return time.Date(s.Year, s.Month, s.Selected, 0, 0, 0, 0, s.loc()), true
}
