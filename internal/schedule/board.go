package schedule

import (
	"github.com/yourorg/kharkivmetro/internal/metro"
)

// Window is the first and last departure from a station on a day type.
type Window struct {
	First metro.TimeOfDay
	Last  metro.TimeOfDay
}

// ServiceWindow scans every segment leaving station. ok is false when no
// train departs from it on day.
func (ix *Index) ServiceWindow(net *metro.Network, station metro.StationID, day metro.DayType) (Window, bool) {
	var w Window
	found := false
	for _, seg := range net.SegmentsAdjacentTo(station) {
		g := ix.groups[groupKey{seg.ID, day}]
		if len(g) == 0 {
			continue
		}
		if !found || g[0].Departure < w.First {
			w.First = g[0].Departure
		}
		if !found || g[len(g)-1].Departure > w.Last {
			w.Last = g[len(g)-1].Departure
		}
		found = true
	}
	return w, found
}

// IsOpen reports whether a trip can still be planned from station at t:
// from EarlyWindowMinutes before the first train up to the last one.
func (ix *Index) IsOpen(net *metro.Network, station metro.StationID, day metro.DayType, t metro.TimeOfDay) bool {
	w, ok := ix.ServiceWindow(net, station, day)
	if !ok {
		return false
	}
	return t >= w.First.Add(-EarlyWindowMinutes) && t <= w.Last
}

// Direction groups the departures of one outgoing segment.
type Direction struct {
	Segment    metro.Segment
	Terminal   metro.StationID
	Departures []metro.TimeOfDay
}

// Board lists departures from station per outgoing direction, in the
// network's adjacency order. Departures earlier than from are skipped.
func (ix *Index) Board(net *metro.Network, station metro.StationID, day metro.DayType, from metro.TimeOfDay) []Direction {
	var out []Direction
	for _, seg := range net.SegmentsAdjacentTo(station) {
		term, _ := net.Terminal(seg.Line, seg.Direction)
		d := Direction{Segment: seg, Terminal: term}
		for _, dep := range ix.groups[groupKey{seg.ID, day}] {
			if dep.Departure >= from {
				d.Departures = append(d.Departures, dep.Departure)
			}
		}
		out = append(out, d)
	}
	return out
}
