package metro

import (
	"sort"
	"strings"
)

// DefaultTransferMinutes is the walking time between interchange stations.
const DefaultTransferMinutes = 3

// LoadOptions tunes Load.
type LoadOptions struct {
	// TransferMinutes is charged once per line change. Zero selects the default.
	TransferMinutes int
}

// Network is the immutable in-memory metro model. All accessors are safe for
// concurrent use; returned slices are shared and must not be modified.
type Network struct {
	stations     map[StationID]*Station
	stationOrder []StationID
	lines        map[LineID]*Line
	lineOrder    []LineID
	segments     map[SegmentID]Segment
	outgoing     map[StationID][]Segment
	interchanges map[StationID][]StationID
	terminals    map[LineID][2]StationID
	timetable    []TimetableEntry
	transfer     int
}

// Load validates the raw data and builds the network with all adjacency
// precomputed. Any inconsistency is reported as *DataIntegrityError.
func Load(raw RawNetwork, opts LoadOptions) (*Network, error) {
	n := &Network{
		stations:     make(map[StationID]*Station, len(raw.Stations)),
		lines:        make(map[LineID]*Line, len(raw.Lines)),
		segments:     make(map[SegmentID]Segment),
		outgoing:     make(map[StationID][]Segment),
		interchanges: make(map[StationID][]StationID),
		terminals:    make(map[LineID][2]StationID),
		transfer:     opts.TransferMinutes,
	}
	if n.transfer <= 0 {
		n.transfer = DefaultTransferMinutes
	}

	if err := n.loadStations(raw.Stations); err != nil {
		return nil, err
	}
	if err := n.loadLines(raw.Lines); err != nil {
		return nil, err
	}
	if err := n.loadInterchanges(raw.Interchanges); err != nil {
		return nil, err
	}
	if err := n.loadTimetable(raw.Timetable); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) loadStations(raw []RawStation) error {
	aliasOwner := make(map[string]StationID)
	for _, rs := range raw {
		if rs.ID == "" {
			return integrity(KindUnknownStation, "station with empty id")
		}
		if _, dup := n.stations[rs.ID]; dup {
			return integrity(KindDuplicateStation, "station %q defined twice", rs.ID)
		}
		names := make(map[Language]string, len(rs.Names))
		for lang, name := range rs.Names {
			names[lang] = name
		}
		aliases := make([]string, 0, len(rs.Aliases))
		for _, a := range rs.Aliases {
			key := strings.ToLower(strings.TrimSpace(a))
			if key == "" {
				continue
			}
			if owner, taken := aliasOwner[key]; taken && owner != rs.ID {
				return integrity(KindDuplicateAlias, "alias %q used by %q and %q", a, owner, rs.ID)
			}
			aliasOwner[key] = rs.ID
			aliases = append(aliases, a)
		}
		n.stations[rs.ID] = &Station{
			ID:        rs.ID,
			Names:     names,
			Aliases:   aliases,
			Positions: make(map[LineID]int),
		}
		n.stationOrder = append(n.stationOrder, rs.ID)
	}
	return nil
}

func (n *Network) loadLines(raw []RawLine) error {
	for _, rl := range raw {
		if _, dup := n.lines[rl.ID]; dup {
			return integrity(KindDuplicateLine, "line %q defined twice", rl.ID)
		}
		if len(rl.Stations) < 2 {
			return integrity(KindShortLine, "line %q has %d station(s), need at least 2", rl.ID, len(rl.Stations))
		}
		seen := make(map[StationID]bool, len(rl.Stations))
		for _, id := range rl.Stations {
			if _, ok := n.stations[id]; !ok {
				return integrity(KindUnknownStation, "line %q references unknown station %q", rl.ID, id)
			}
			if seen[id] {
				return integrity(KindRepeatedStation, "line %q repeats station %q", rl.ID, id)
			}
			seen[id] = true
		}

		line := &Line{
			ID:       rl.ID,
			Names:    rl.Names,
			Color:    rl.Color,
			Stations: append([]StationID(nil), rl.Stations...),
		}
		n.lines[rl.ID] = line
		n.lineOrder = append(n.lineOrder, rl.ID)
		n.terminals[rl.ID] = [2]StationID{line.Stations[len(line.Stations)-1], line.Stations[0]}

		for pos, id := range line.Stations {
			st := n.stations[id]
			st.Lines = append(st.Lines, line.ID)
			st.Positions[line.ID] = pos
		}
		for i := 0; i+1 < len(line.Stations); i++ {
			a, b := line.Stations[i], line.Stations[i+1]
			n.addSegment(a, b, line.ID, Forward)
			n.addSegment(b, a, line.ID, Backward)
		}
	}

	// Stable adjacency order: line order, then forward before backward.
	lineRank := make(map[LineID]int, len(n.lineOrder))
	for i, id := range n.lineOrder {
		lineRank[id] = i
	}
	for _, segs := range n.outgoing {
		sort.SliceStable(segs, func(i, j int) bool {
			if segs[i].Line != segs[j].Line {
				return lineRank[segs[i].Line] < lineRank[segs[j].Line]
			}
			return segs[i].Direction < segs[j].Direction
		})
	}
	return nil
}

func (n *Network) addSegment(from, to StationID, line LineID, dir Direction) {
	seg := Segment{
		ID:        MakeSegmentID(from, to),
		From:      from,
		To:        to,
		Line:      line,
		Direction: dir,
	}
	n.segments[seg.ID] = seg
	n.outgoing[from] = append(n.outgoing[from], seg)
}

func (n *Network) loadInterchanges(raw []RawInterchange) error {
	linked := make(map[[2]StationID]bool)
	for _, ic := range raw {
		a, okA := n.stations[ic.A]
		b, okB := n.stations[ic.B]
		if !okA || !okB {
			return integrity(KindUnknownStation, "interchange %q<->%q references an unknown station", ic.A, ic.B)
		}
		if a.ID == b.ID {
			return integrity(KindBadInterchange, "interchange links %q to itself", a.ID)
		}
		for _, l := range a.Lines {
			if b.OnLine(l) {
				return integrity(KindBadInterchange, "interchange %q<->%q joins stations on the same line %q", a.ID, b.ID, l)
			}
		}
		if linked[[2]StationID{a.ID, b.ID}] {
			continue
		}
		linked[[2]StationID{a.ID, b.ID}] = true
		linked[[2]StationID{b.ID, a.ID}] = true
		n.interchanges[a.ID] = append(n.interchanges[a.ID], b.ID)
		n.interchanges[b.ID] = append(n.interchanges[b.ID], a.ID)
	}
	return nil
}

func (n *Network) loadTimetable(raw []RawTimetableRow) error {
	entries := make([]TimetableEntry, 0, len(raw))
	for _, row := range raw {
		if !row.DayType.Valid() {
			return integrity(KindUnknownDayType, "row %s->%s at %s has day type %q", row.From, row.To, row.Departure, row.DayType)
		}
		seg, ok := n.segments[MakeSegmentID(row.From, row.To)]
		if !ok || (row.Line != "" && seg.Line != row.Line) {
			return integrity(KindUnknownSegment, "row references segment %s->%s on line %q which does not exist", row.From, row.To, row.Line)
		}
		if row.Duration < 0 {
			return integrity(KindNegativeDuration, "segment %s at %s has duration %d", seg.ID, row.Departure, row.Duration)
		}
		if row.Departure < 0 || row.Departure >= MinutesPerDay {
			return integrity(KindUnorderedTimes, "segment %s has departure %d outside the service day", seg.ID, int(row.Departure))
		}
		entries = append(entries, TimetableEntry{
			Segment:   seg.ID,
			DayType:   row.DayType,
			Departure: row.Departure,
			Duration:  row.Duration,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		if a.DayType != b.DayType {
			return a.DayType < b.DayType
		}
		return a.Departure < b.Departure
	})
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.Segment == cur.Segment && prev.DayType == cur.DayType && prev.Departure == cur.Departure {
			return integrity(KindUnorderedTimes, "segment %s (%s) lists departure %s twice", cur.Segment, cur.DayType, cur.Departure)
		}
	}
	n.timetable = entries
	return nil
}

// ============================================================================
// ACCESSORS
// ============================================================================

// Station looks a station up by id.
func (n *Network) Station(id StationID) (*Station, bool) {
	st, ok := n.stations[id]
	return st, ok
}

// Stations returns every station in insertion order.
func (n *Network) Stations() []*Station {
	out := make([]*Station, 0, len(n.stationOrder))
	for _, id := range n.stationOrder {
		out = append(out, n.stations[id])
	}
	return out
}

// Line looks a line up by id.
func (n *Network) Line(id LineID) (*Line, bool) {
	l, ok := n.lines[id]
	return l, ok
}

// Lines returns every line in insertion order.
func (n *Network) Lines() []*Line {
	out := make([]*Line, 0, len(n.lineOrder))
	for _, id := range n.lineOrder {
		out = append(out, n.lines[id])
	}
	return out
}

// StationsOnLine returns the ordered stations of line (direction A), or nil.
func (n *Network) StationsOnLine(line LineID) []StationID {
	if l, ok := n.lines[line]; ok {
		return l.Stations
	}
	return nil
}

// Segment looks a segment up by id.
func (n *Network) Segment(id SegmentID) (Segment, bool) {
	s, ok := n.segments[id]
	return s, ok
}

// SegmentBetween returns the segment from -> to if the stations are adjacent.
func (n *Network) SegmentBetween(from, to StationID) (Segment, bool) {
	return n.Segment(MakeSegmentID(from, to))
}

// SegmentsAdjacentTo returns the segments departing station in both
// directions of every line that serves it.
func (n *Network) SegmentsAdjacentTo(station StationID) []Segment {
	return n.outgoing[station]
}

// InterchangesAt returns the stations linked to station by an interchange.
func (n *Network) InterchangesAt(station StationID) []StationID {
	return n.interchanges[station]
}

// IsInterchange reports whether station has at least one transfer link.
func (n *Network) IsInterchange(station StationID) bool {
	return len(n.interchanges[station]) > 0
}

// Terminal returns the last station reached when travelling line in dir.
func (n *Network) Terminal(line LineID, dir Direction) (StationID, bool) {
	t, ok := n.terminals[line]
	if !ok {
		return "", false
	}
	return t[dir], true
}

// Timetable returns all validated entries, grouped by segment and day type
// with departures ascending inside each group.
func (n *Network) Timetable() []TimetableEntry {
	return n.timetable
}

// TransferMinutes is the fixed cost of changing lines.
func (n *Network) TransferMinutes() int {
	return n.transfer
}
