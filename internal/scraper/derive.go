package scraper

import (
	"sort"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

// DefaultHop is the ride time assumed when the next station's timetable does
// not show the train, e.g. on the last hop into a terminal.
const DefaultHop = 2

// maxHop bounds a derived ride time. A longer gap means the matching train
// was not found at the next station.
const maxHop = 10

type departureKey struct {
	station  metro.StationID
	terminal metro.StationID
	day      metro.DayType
}

// Derive turns per-station departure lists into segment timetable rows.
// A train leaving A toward T at t is taken to reach the next station B when
// B's first departure toward T at or after t happens; without one the ride
// takes DefaultHop minutes. The network only supplies topology.
func Derive(net *metro.Network, deps []StationDepartures) []metro.RawTimetableRow {
	times := make(map[departureKey][]metro.TimeOfDay)
	for _, d := range deps {
		k := departureKey{d.Station, d.Terminal, d.DayType}
		times[k] = append(times[k], d.Times...)
	}
	keys := make([]departureKey, 0, len(times))
	for k, ts := range times {
		times[k] = sortedUnique(ts)
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.day != b.day {
			return a.day < b.day
		}
		if a.station != b.station {
			return a.station < b.station
		}
		return a.terminal < b.terminal
	})

	type rowKey struct {
		from, to metro.StationID
		day      metro.DayType
		dep      metro.TimeOfDay
	}
	seen := make(map[rowKey]bool)
	var rows []metro.RawTimetableRow
	for _, k := range keys {
		line, next, ok := nextStop(net, k.station, k.terminal)
		if !ok {
			continue
		}
		arrivals := times[departureKey{next, k.terminal, k.day}]
		for _, t := range times[k] {
			rk := rowKey{k.station, next, k.day, t}
			if seen[rk] {
				continue
			}
			seen[rk] = true
			rows = append(rows, metro.RawTimetableRow{
				From:      k.station,
				To:        next,
				Line:      line,
				DayType:   k.day,
				Departure: t,
				Duration:  hop(arrivals, t),
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.DayType != b.DayType {
			return a.DayType < b.DayType
		}
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Departure < b.Departure
	})
	return rows
}

// nextStop is the station after station on the way to terminal, on the line
// both share.
func nextStop(net *metro.Network, station, terminal metro.StationID) (metro.LineID, metro.StationID, bool) {
	st, ok := net.Station(station)
	if !ok {
		return "", "", false
	}
	term, ok := net.Station(terminal)
	if !ok {
		return "", "", false
	}
	for _, line := range st.Lines {
		tp, ok := term.Positions[line]
		if !ok {
			continue
		}
		sp := st.Positions[line]
		stations := net.StationsOnLine(line)
		switch {
		case tp > sp:
			return line, stations[sp+1], true
		case tp < sp:
			return line, stations[sp-1], true
		}
	}
	return "", "", false
}

func hop(arrivals []metro.TimeOfDay, dep metro.TimeOfDay) int {
	i := sort.Search(len(arrivals), func(i int) bool { return arrivals[i] >= dep })
	if i < len(arrivals) {
		if d := arrivals[i].Sub(dep); d <= maxHop {
			return d
		}
	}
	return DefaultHop
}

func sortedUnique(ts []metro.TimeOfDay) []metro.TimeOfDay {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	out := ts[:0]
	for i, t := range ts {
		if i == 0 || t != ts[i-1] {
			out = append(out, t)
		}
	}
	return out
}

// Partition splits rows by day type.
func Partition(rows []metro.RawTimetableRow) map[metro.DayType][]metro.RawTimetableRow {
	out := make(map[metro.DayType][]metro.RawTimetableRow, len(metro.DayTypes))
	for _, r := range rows {
		out[r.DayType] = append(out[r.DayType], r)
	}
	return out
}
