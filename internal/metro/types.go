package metro

import (
	"fmt"
	"strings"
)

// StationID is the stable internal identifier of a station (e.g. "kholodna_hora").
type StationID string

// LineID identifies a metro line.
type LineID string

// SegmentID identifies a directed hop between two adjacent stations.
type SegmentID string

// ============================================================================
// LANGUAGE
// ============================================================================

// Language is one of the supported naming languages.
type Language string

const (
	LangUA Language = "ua"
	LangEN Language = "en"
)

// Languages lists every supported language in a stable order.
var Languages = []Language{LangUA, LangEN}

// ParseLanguage accepts "ua", "uk" and "en" in any case.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ua", "uk":
		return LangUA, nil
	case "en":
		return LangEN, nil
	}
	return "", fmt.Errorf("metro: unsupported language %q", s)
}

// Other returns the opposite language of the pair.
func (l Language) Other() Language {
	if l == LangEN {
		return LangUA
	}
	return LangEN
}

// ============================================================================
// DAY TYPE
// ============================================================================

// DayType selects which timetable applies. It is a closed set.
type DayType string

const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
)

// DayTypes lists both day types in a stable order.
var DayTypes = []DayType{Weekday, Weekend}

// ParseDayType parses "weekday" or "weekend".
func ParseDayType(s string) (DayType, error) {
	switch DayType(strings.ToLower(strings.TrimSpace(s))) {
	case Weekday:
		return Weekday, nil
	case Weekend:
		return Weekend, nil
	}
	return "", fmt.Errorf("metro: unknown day type %q", s)
}

// Valid reports whether d is one of the two known day types.
func (d DayType) Valid() bool {
	return d == Weekday || d == Weekend
}

// ============================================================================
// DIRECTION
// ============================================================================

// Direction of travel along a line.
type Direction int

const (
	// Forward follows the line's station order (direction A).
	Forward Direction = iota
	// Backward runs against the line's station order (direction B).
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "B"
	}
	return "A"
}

// ============================================================================
// ENTITIES
// ============================================================================

// Station is a stop on one or more lines.
type Station struct {
	ID        StationID
	Names     map[Language]string
	Aliases   []string
	Lines     []LineID
	Positions map[LineID]int
}

// Name returns the station name in lang, falling back to Ukrainian.
func (s *Station) Name(lang Language) string {
	if n, ok := s.Names[lang]; ok && n != "" {
		return n
	}
	return s.Names[LangUA]
}

// OnLine reports whether the station is served by line.
func (s *Station) OnLine(line LineID) bool {
	_, ok := s.Positions[line]
	return ok
}

// Line is an ordered sequence of stations.
type Line struct {
	ID       LineID
	Names    map[Language]string
	Color    string
	Stations []StationID
}

// Name returns the line name in lang, falling back to Ukrainian.
func (l *Line) Name(lang Language) string {
	if n, ok := l.Names[lang]; ok && n != "" {
		return n
	}
	return l.Names[LangUA]
}

// Reverse returns the station order of direction B.
func (l *Line) Reverse() []StationID {
	out := make([]StationID, len(l.Stations))
	for i, id := range l.Stations {
		out[len(l.Stations)-1-i] = id
	}
	return out
}

// Segment is a directed hop between two adjacent stations of one line.
type Segment struct {
	ID        SegmentID
	From      StationID
	To        StationID
	Line      LineID
	Direction Direction
}

// MakeSegmentID builds the identifier used for the hop from -> to.
func MakeSegmentID(from, to StationID) SegmentID {
	return SegmentID(string(from) + ">" + string(to))
}

// TimetableEntry is one scheduled departure over a segment.
type TimetableEntry struct {
	Segment   SegmentID
	DayType   DayType
	Departure TimeOfDay
	Duration  int // minutes
}

// Arrival is the time the train reaches the segment's destination.
func (e TimetableEntry) Arrival() TimeOfDay {
	return e.Departure.Add(e.Duration)
}

// ============================================================================
// RAW INPUT
// ============================================================================

// RawStation is the storage shape of a station.
type RawStation struct {
	ID      StationID
	Names   map[Language]string
	Aliases []string
}

// RawLine is the storage shape of a line.
type RawLine struct {
	ID       LineID
	Names    map[Language]string
	Color    string
	Stations []StationID
}

// RawInterchange links two stations on different lines.
type RawInterchange struct {
	A StationID
	B StationID
}

// RawTimetableRow is a normalized timetable row as produced by storage or the scraper.
type RawTimetableRow struct {
	From      StationID
	To        StationID
	Line      LineID
	DayType   DayType
	Departure TimeOfDay
	Duration  int
}

// RawNetwork groups everything Load needs.
type RawNetwork struct {
	Stations     []RawStation
	Lines        []RawLine
	Interchanges []RawInterchange
	Timetable    []RawTimetableRow
}
