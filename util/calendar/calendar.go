// Package calendar decides when a monthly billing cycle starts. Cycles begin at local
// midnight on the first day of a month in a configured regional calendar.
package calendar

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

type Calendar string

const (
	Gregorian Calendar = "gregorian"
	Persian   Calendar = "persian"
)

// Parse maps a configured calendar name onto a Calendar.
func Parse(name string) (Calendar, error) {
	switch Calendar(name) {
	case Gregorian, Persian:
		return Calendar(name), nil
	}
	return "", fmt.Errorf("unsupported calendar: %s", name)
}

// DayOfMonth returns the day of month of t observed in loc under cal.
func DayOfMonth(t time.Time, loc *time.Location, cal Calendar) int {
	local := t.In(loc)
	if cal == Persian {
		return ptime.New(local).Day()
	}
	return local.Day()
}

// CycleStart reports whether now falls on the first day of a month and, if so, returns
// the start of that day in loc as a UTC instant. The instant is identical for every call
// made during that day, which makes it usable as a ledger key.
func CycleStart(now time.Time, loc *time.Location, cal Calendar) (time.Time, bool) {
	if DayOfMonth(now, loc, cal) != 1 {
		return time.Time{}, false
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.UTC(), true
}
