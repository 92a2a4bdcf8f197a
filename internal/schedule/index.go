// Package schedule answers "when is the next train over this segment" for a
// given day type. The index is built once per snapshot and never mutated.
package schedule

import (
	"sort"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

// EarlyWindowMinutes is how long before the first departure a station counts
// as open for planning.
const EarlyWindowMinutes = 90

// Departure is one train over a segment.
type Departure struct {
	Departure metro.TimeOfDay
	Arrival   metro.TimeOfDay
}

type groupKey struct {
	segment metro.SegmentID
	day     metro.DayType
}

// Index holds departures grouped by (segment, day type), ascending.
type Index struct {
	groups map[groupKey][]Departure
	size   int
}

// Build groups the entries. Entries are expected to satisfy the network's
// invariants; they are sorted again so Build also accepts arbitrary order.
func Build(entries []metro.TimetableEntry) *Index {
	ix := &Index{groups: make(map[groupKey][]Departure)}
	for _, e := range entries {
		k := groupKey{e.Segment, e.DayType}
		ix.groups[k] = append(ix.groups[k], Departure{Departure: e.Departure, Arrival: e.Arrival()})
	}
	for _, g := range ix.groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Departure < g[j].Departure })
		ix.size += len(g)
	}
	return ix
}

// NextDeparture returns the first departure over seg on day at or after at.
// ok is false (no service) when the group is empty or the last train has
// already left; the search never wraps to the next day.
func (ix *Index) NextDeparture(seg metro.SegmentID, day metro.DayType, at metro.TimeOfDay) (Departure, bool) {
	g := ix.groups[groupKey{seg, day}]
	i := sort.Search(len(g), func(i int) bool { return g[i].Departure >= at })
	if i == len(g) {
		return Departure{}, false
	}
	return g[i], true
}

// Departures returns a copy of every departure over seg on day.
func (ix *Index) Departures(seg metro.SegmentID, day metro.DayType) []Departure {
	g := ix.groups[groupKey{seg, day}]
	return append([]Departure(nil), g...)
}

// HasService reports whether any departure is known for day.
func (ix *Index) HasService(day metro.DayType) bool {
	for k, g := range ix.groups {
		if k.day == day && len(g) > 0 {
			return true
		}
	}
	return false
}

// Size is the total number of indexed departures.
func (ix *Index) Size() int { return ix.size }
