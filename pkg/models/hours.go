package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var ErrBadClock = errors.New("time must be HH:MM")

// ParseClock returns minutes since midnight for an "HH:MM" value.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ShiftDuration is the length of a shift. An end earlier than the start
// means the shift runs past midnight.
func ShiftDuration(start, end string) (time.Duration, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	diff := e - s
	if diff < 0 {
		diff += 24 * 60
	}
	return time.Duration(diff) * time.Minute, nil
}

// ShiftHours is ShiftDuration in hours.
func ShiftHours(start, end string) (float64, error) {
	d, err := ShiftDuration(start, end)
	if err != nil {
		return 0, err
	}
	return d.Hours(), nil
}

// ShiftBounds resolves the wall-clock fields of a shift to instants in loc.
func ShiftBounds(date, start, end string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %q", date)
	}
	s, err := ParseClock(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDay := day.Day()
	if e < s {
		endDay++
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), s/60, s%60, 0, 0, loc)
	to := time.Date(day.Year(), day.Month(), endDay, e/60, e%60, 0, 0, loc)
	return from, to, nil
}
