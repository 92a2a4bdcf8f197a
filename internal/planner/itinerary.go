package planner

import (
	"github.com/yourorg/kharkivmetro/internal/metro"
)

// LegKind distinguishes riding a train from walking between platforms.
type LegKind int

const (
	Ride LegKind = iota
	Transfer
)

func (k LegKind) String() string {
	if k == Transfer {
		return "transfer"
	}
	return "ride"
}

// Leg is one step of an itinerary. Ride legs cover exactly one segment;
// transfer legs link interchange stations (or change lines inside one).
type Leg struct {
	Kind      LegKind
	From      metro.StationID
	To        metro.StationID
	Line      metro.LineID
	Segment   metro.SegmentID
	Direction metro.Direction
	Depart    metro.TimeOfDay
	Arrive    metro.TimeOfDay
}

// Minutes is the time spent on the leg.
func (l Leg) Minutes() int { return l.Arrive.Sub(l.Depart) }

// Itinerary is a complete, internally consistent plan.
type Itinerary struct {
	Origin      metro.StationID
	Destination metro.StationID
	DayType     metro.DayType
	Start       metro.TimeOfDay
	Legs        []Leg
	Transfers   int
}

// Departure is when the first leg starts.
func (it *Itinerary) Departure() metro.TimeOfDay {
	if len(it.Legs) == 0 {
		return it.Start
	}
	return it.Legs[0].Depart
}

// Arrival is when the traveller reaches the destination.
func (it *Itinerary) Arrival() metro.TimeOfDay {
	if len(it.Legs) == 0 {
		return it.Start
	}
	return it.Legs[len(it.Legs)-1].Arrive
}

// Elapsed is the wall-clock time from the requested start to arrival.
func (it *Itinerary) Elapsed() int { return it.Arrival().Sub(it.Start) }

// TravelTime is the time from the first departure to arrival.
func (it *Itinerary) TravelTime() int { return it.Arrival().Sub(it.Departure()) }

// Rides counts the ride legs.
func (it *Itinerary) Rides() int {
	n := 0
	for _, l := range it.Legs {
		if l.Kind == Ride {
			n++
		}
	}
	return n
}
