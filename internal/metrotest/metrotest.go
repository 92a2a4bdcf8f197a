// Package metrotest builds small networks and synthetic timetables for tests.
package metrotest

import (
	"github.com/yourorg/kharkivmetro/internal/metro"
)

// Pattern describes a regular service: trains leave the first station of a
// direction every Headway minutes from First to Last and need Hop minutes per segment.
type Pattern struct {
	First   metro.TimeOfDay
	Last    metro.TimeOfDay
	Headway int
	Hop     int
}

// Uniform generates timetable rows for every line of raw in both directions.
func Uniform(raw metro.RawNetwork, day metro.DayType, p Pattern) []metro.RawTimetableRow {
	var rows []metro.RawTimetableRow
	for _, l := range raw.Lines {
		rows = append(rows, Direction(l.ID, l.Stations, day, p)...)
		rev := make([]metro.StationID, len(l.Stations))
		for i, id := range l.Stations {
			rev[len(l.Stations)-1-i] = id
		}
		rows = append(rows, Direction(l.ID, rev, day, p)...)
	}
	return rows
}

// Direction generates rows for trains running along stations in the given order.
// Departures past midnight are dropped.
func Direction(line metro.LineID, stations []metro.StationID, day metro.DayType, p Pattern) []metro.RawTimetableRow {
	var rows []metro.RawTimetableRow
	for start := p.First; start <= p.Last; start = start.Add(p.Headway) {
		t := start
		for i := 0; i+1 < len(stations); i++ {
			if t >= metro.MinutesPerDay {
				break
			}
			rows = append(rows, metro.RawTimetableRow{
				From:      stations[i],
				To:        stations[i+1],
				Line:      line,
				DayType:   day,
				Departure: t,
				Duration:  p.Hop,
			})
			t = t.Add(p.Hop)
		}
		if p.Headway <= 0 {
			break
		}
	}
	return rows
}

// Toy is a two-line network with a single interchange:
//
//	red:  a - b - c - d
//	blue: x - y - z
//	interchange b <-> y
//
// Aliases: "old bee" -> b, "zed" -> z.
func Toy() metro.RawNetwork {
	st := func(id, ua, en string, aliases ...string) metro.RawStation {
		return metro.RawStation{
			ID:      metro.StationID(id),
			Names:   map[metro.Language]string{metro.LangUA: ua, metro.LangEN: en},
			Aliases: aliases,
		}
	}
	return metro.RawNetwork{
		Stations: []metro.RawStation{
			st("a", "Ай", "Ai"),
			st("b", "Бі", "Bi", "old bee"),
			st("c", "Сі", "Si"),
			st("d", "Ді", "Di"),
			st("x", "Ікс", "Iks"),
			st("y", "Ігрек", "Ihrek"),
			st("z", "Зет", "Zet", "zed"),
		},
		Lines: []metro.RawLine{
			{ID: "red", Color: "red", Stations: []metro.StationID{"a", "b", "c", "d"},
				Names: map[metro.Language]string{metro.LangUA: "Червона", metro.LangEN: "Red"}},
			{ID: "blue", Color: "blue", Stations: []metro.StationID{"x", "y", "z"},
				Names: map[metro.Language]string{metro.LangUA: "Синя", metro.LangEN: "Blue"}},
		},
		Interchanges: []metro.RawInterchange{{A: "b", B: "y"}},
	}
}

// MustNetwork loads raw with the given rows and panics on integrity errors.
func MustNetwork(raw metro.RawNetwork, rows []metro.RawTimetableRow) *metro.Network {
	raw.Timetable = rows
	n, err := metro.Load(raw, metro.LoadOptions{TransferMinutes: 3})
	if err != nil {
		panic(err)
	}
	return n
}
