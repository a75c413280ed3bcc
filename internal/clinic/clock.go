package clinic

import (
	"errors"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// SlotDuration is fixed; end times are always derived from start times.
	SlotDuration = 30 * time.Minute
)

var (
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTime = errors.New("time must be in HH:MM format")
)

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func ParseClock(s string) (time.Time, error) {
	c, err := time.Parse(ClockLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return c, nil
}

// slotEnd computes the end clock of a slot starting at the given HH:MM.
func slotEnd(start string) (string, error) {
	c, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	return c.Add(SlotDuration).Format(ClockLayout), nil
}

// afterToday reports whether the YYYY-MM-DD date is strictly after the
// reference day. Same-day is never bookable.
func afterToday(date string, ref time.Time) (bool, error) {
	d, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	today := ref.Format(DateLayout)
	return d.Format(DateLayout) > today, nil
}

// monthRange returns the inclusive [from, to] date strings for a calendar
// month, with from clamped to tomorrow so past days never surface.
func monthRange(year, month int, ref time.Time) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	tomorrow := ref.AddDate(0, 0, 1)
	from := first.Format(DateLayout)
	if t := tomorrow.Format(DateLayout); t > from {
		from = t
	}
	return from, last.Format(DateLayout)
}

// displayDate renders a stored date for notification messages (DD/MM/YYYY).
func displayDate(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format("02/01/2006")
}
