// Package itinerary turns planner output into presentation-ready records with
// localized names and HH:MM strings. Records carry no rendering decisions; the
// HTTP layer marshals them to JSON and the CLI prints them as tables.
package itinerary

import (
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/planner"
)

// Options selects the output language and whether consecutive rides on one
// line collapse into a single segment.
type Options struct {
	Language metro.Language
	Compact  bool
}

// Segment is one displayed step.
type Segment struct {
	FromStation     string          `json:"from_station"`
	FromStationID   metro.StationID `json:"from_station_id"`
	ToStation       string          `json:"to_station"`
	ToStationID     metro.StationID `json:"to_station_id"`
	Line            string          `json:"line,omitempty"`
	LineID          metro.LineID    `json:"line_id,omitempty"`
	LineColor       string          `json:"line_color,omitempty"`
	Towards         string          `json:"towards,omitempty"`
	DepartureTime   string          `json:"departure_time"`
	ArrivalTime     string          `json:"arrival_time"`
	IsTransfer      bool            `json:"is_transfer"`
	DurationMinutes int             `json:"duration_minutes"`
	Stops           int             `json:"stops,omitempty"`
}

// Record is a formatted itinerary.
type Record struct {
	Origin               string          `json:"origin"`
	OriginID             metro.StationID `json:"origin_id"`
	Destination          string          `json:"destination"`
	DestinationID        metro.StationID `json:"destination_id"`
	DayType              metro.DayType   `json:"day_type"`
	Language             metro.Language  `json:"language"`
	RequestedTime        string          `json:"requested_time"`
	DepartureTime        string          `json:"departure_time"`
	ArrivalTime          string          `json:"arrival_time"`
	TotalDurationMinutes int             `json:"total_duration_minutes"`
	WaitMinutes          int             `json:"wait_minutes"`
	NumTransfers         int             `json:"num_transfers"`
	Compact              bool            `json:"compact"`
	Segments             []Segment       `json:"segments"`
}

// Format builds the record for it. Unknown languages fall back to Ukrainian.
func Format(net *metro.Network, it *planner.Itinerary, opts Options) Record {
	lang := opts.Language
	if lang != metro.LangEN {
		lang = metro.LangUA
	}
	rec := Record{
		Origin:               stationName(net, it.Origin, lang),
		OriginID:             it.Origin,
		Destination:          stationName(net, it.Destination, lang),
		DestinationID:        it.Destination,
		DayType:              it.DayType,
		Language:             lang,
		RequestedTime:        it.Start.String(),
		DepartureTime:        it.Departure().String(),
		ArrivalTime:          it.Arrival().String(),
		TotalDurationMinutes: it.TravelTime(),
		WaitMinutes:          it.Departure().Sub(it.Start),
		NumTransfers:         it.Transfers,
		Compact:              opts.Compact,
	}

	var runEnd metro.TimeOfDay
	for _, leg := range it.Legs {
		seg := formatLeg(net, leg, lang)
		if opts.Compact && !seg.IsTransfer && len(rec.Segments) > 0 {
			last := &rec.Segments[len(rec.Segments)-1]
			if !last.IsTransfer && last.LineID == seg.LineID {
				last.ToStation, last.ToStationID = seg.ToStation, seg.ToStationID
				last.ArrivalTime = seg.ArrivalTime
				last.DurationMinutes += leg.Arrive.Sub(runEnd)
				last.Stops++
				runEnd = leg.Arrive
				continue
			}
		}
		rec.Segments = append(rec.Segments, seg)
		runEnd = leg.Arrive
	}
	return rec
}

func formatLeg(net *metro.Network, leg planner.Leg, lang metro.Language) Segment {
	seg := Segment{
		FromStation:     stationName(net, leg.From, lang),
		FromStationID:   leg.From,
		ToStation:       stationName(net, leg.To, lang),
		ToStationID:     leg.To,
		DepartureTime:   leg.Depart.String(),
		ArrivalTime:     leg.Arrive.String(),
		IsTransfer:      leg.Kind == planner.Transfer,
		DurationMinutes: leg.Minutes(),
	}
	if seg.IsTransfer {
		return seg
	}
	seg.LineID = leg.Line
	seg.Stops = 1
	if l, ok := net.Line(leg.Line); ok {
		seg.Line = l.Name(lang)
		seg.LineColor = l.Color
	}
	if term, ok := net.Terminal(leg.Line, leg.Direction); ok {
		seg.Towards = stationName(net, term, lang)
	}
	return seg
}

func stationName(net *metro.Network, id metro.StationID, lang metro.Language) string {
	if st, ok := net.Station(id); ok {
		if name := st.Name(lang); name != "" {
			return name
		}
	}
	return string(id)
}
