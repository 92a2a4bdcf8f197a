// Package calendar maps wall-clock dates to service day types. The routing
// core never reads the clock; only the HTTP layer and the CLI call this.
package calendar

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

// DefaultZone is the metro's local time zone.
const DefaultZone = "Europe/Kyiv"

// Location loads name, falling back to DefaultZone when name is empty.
func Location(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	return loc, nil
}

// DayTypeOn returns weekend for Saturday and Sunday, weekday otherwise.
func DayTypeOn(t time.Time) metro.DayType {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return metro.Weekend
	}
	return metro.Weekday
}

// TimeOfDay converts t to minutes since midnight in its own location.
func TimeOfDay(t time.Time) metro.TimeOfDay {
	return metro.NewTimeOfDay(t.Hour(), t.Minute())
}

// Now returns the current day type and time of day in loc.
func Now(loc *time.Location) (metro.DayType, metro.TimeOfDay) {
	return At(time.Now(), loc)
}

// At is Now for a fixed instant.
func At(t time.Time, loc *time.Location) (metro.DayType, metro.TimeOfDay) {
	local := t.In(loc)
	return DayTypeOn(local), TimeOfDay(local)
}

// ParseDate parses "YYYY-MM-DD" (or "DD.MM.YYYY") in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("calendar: invalid date %q, want YYYY-MM-DD", s)
}

// Resolve fills in whatever the caller left out. An explicit day type wins
// over a date; an empty time means "now".
func Resolve(dayType, date, clock string, loc *time.Location, now time.Time) (metro.DayType, metro.TimeOfDay, error) {
	day, tod := At(now, loc)

	if date != "" {
		d, err := ParseDate(date, loc)
		if err != nil {
			return "", 0, err
		}
		day = DayTypeOn(d)
	}
	if dayType != "" {
		dt, err := metro.ParseDayType(dayType)
		if err != nil {
			return "", 0, err
		}
		day = dt
	}
	if clock != "" {
		t, err := metro.ParseTimeOfDay(clock)
		if err != nil {
			return "", 0, err
		}
		tod = t
	}
	return day, tod, nil
}
