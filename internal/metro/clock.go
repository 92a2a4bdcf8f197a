package metro

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay counts minutes since local midnight. Arrivals of the last trains
// may exceed 24:00; departures never wrap to the next day.
type TimeOfDay int

// MinutesPerDay is the length of a service day.
const MinutesPerDay = 24 * 60

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("metro: invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("metro: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("metro: invalid minute in %q", s)
	}
	return NewTimeOfDay(h, m), nil
}

// Hour returns the hour component, modulo a day.
func (t TimeOfDay) Hour() int { return (int(t) % MinutesPerDay) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add returns t shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// Sub returns t - u in minutes.
func (t TimeOfDay) Sub(u TimeOfDay) int { return int(t - u) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
