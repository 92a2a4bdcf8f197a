// Package planner computes earliest-arrival itineraries over a metro network.
//
// The search is a time-dependent Dijkstra over (station, arrival line,
// transfers) states. Each state carries the earliest time it can be reached;
// riding a segment asks the schedule index for the next train at that time.
// A state is dropped when the same station and line is already reached no
// later with fewer transfers. Changing lines,
// by walking to an interchange partner or by switching platforms inside a
// multi-line station, costs the network's transfer duration exactly once.
package planner

import (
	"container/heap"

	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/schedule"
)

// Request is a single planning query. Stations are already resolved.
type Request struct {
	Origin      metro.StationID
	Destination metro.StationID
	DayType     metro.DayType
	Start       metro.TimeOfDay
}

// Planner is immutable and safe for concurrent use; each Plan call keeps its
// search state local.
type Planner struct {
	net *metro.Network
	ix  *schedule.Index
}

// New binds a planner to a network and its schedule index.
func New(net *metro.Network, ix *schedule.Index) *Planner {
	return &Planner{net: net, ix: ix}
}

// Plan returns the earliest-arrival itinerary for req.
//
// Among itineraries with the same arrival the one with fewer transfers wins;
// remaining ties go to the state discovered first, which makes the result a
// function of the request and the network alone.
func (p *Planner) Plan(req Request) (*Itinerary, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	s := newSearch(p, req)
	s.push(place{station: req.Origin}, req.Start, 0, nil, nil)

	for s.frontier.Len() > 0 {
		cur := heap.Pop(&s.frontier).(*label)
		cur.settled = true
		if cur.key.station == req.Destination {
			return s.itinerary(cur), nil
		}
		s.expandRides(cur)
		s.expandInterchanges(cur)
	}
	return nil, &UnreachableError{Reason: p.unreachableReason(req)}
}

func (p *Planner) validate(req Request) error {
	if !req.DayType.Valid() {
		return &InvalidRequestError{Field: "day_type", Message: "unknown day type " + string(req.DayType)}
	}
	if req.Start < 0 || req.Start >= metro.MinutesPerDay {
		return &InvalidRequestError{Field: "start", Message: "time must be within 00:00-23:59"}
	}
	if _, ok := p.net.Station(req.Origin); !ok {
		return &InvalidRequestError{Field: "origin", Message: "unknown station " + string(req.Origin)}
	}
	if _, ok := p.net.Station(req.Destination); !ok {
		return &InvalidRequestError{Field: "destination", Message: "unknown station " + string(req.Destination)}
	}
	if req.Origin == req.Destination {
		return &InvalidRequestError{Field: "destination", Message: "origin and destination are the same station"}
	}
	return nil
}

// unreachableReason distinguishes a closed metro from a missing connection.
// Walking to an interchange partner first counts as leaving the origin.
func (p *Planner) unreachableReason(req Request) Reason {
	if p.departsAfter(req.Origin, req.DayType, req.Start) {
		return ReasonNoConnection
	}
	walk := req.Start.Add(p.net.TransferMinutes())
	for _, partner := range p.net.InterchangesAt(req.Origin) {
		if p.departsAfter(partner, req.DayType, walk) {
			return ReasonNoConnection
		}
	}
	return ReasonAfterLastService
}

func (p *Planner) departsAfter(station metro.StationID, day metro.DayType, at metro.TimeOfDay) bool {
	for _, seg := range p.net.SegmentsAdjacentTo(station) {
		if _, ok := p.ix.NextDeparture(seg.ID, day, at); ok {
			return true
		}
	}
	return false
}

// ============================================================================
// SEARCH STATE
// ============================================================================

// place is where the traveller is. An empty line means they are not on a
// train: at the origin or right after walking between platforms.
type place struct {
	station metro.StationID
	line    metro.LineID
}

// nodeKey identifies a search state.
type nodeKey struct {
	place
	transfers int
}

type label struct {
	key       nodeKey
	arrival   metro.TimeOfDay
	transfers int
	seq       int
	prev      *label
	legs      []Leg // legs taken from prev to reach this state
	settled   bool
	index     int
}

type search struct {
	p        *Planner
	req      Request
	labels   map[nodeKey]*label
	byPlace  map[place][]*label
	frontier frontier
	seq      int
}

func newSearch(p *Planner, req Request) *search {
	return &search{
		p:       p,
		req:     req,
		labels:  make(map[nodeKey]*label),
		byPlace: make(map[place][]*label),
	}
}

// push records a candidate label. An existing label for the same state is
// replaced only by a strictly earlier arrival, so equal arrivals keep the
// first discovered path.
func (s *search) push(at place, arrival metro.TimeOfDay, transfers int, prev *label, legs []Leg) {
	key := nodeKey{place: at, transfers: transfers}
	if cur, ok := s.labels[key]; ok {
		if cur.settled || arrival >= cur.arrival {
			return
		}
		s.seq++
		cur.arrival, cur.seq = arrival, s.seq
		cur.prev, cur.legs = prev, legs
		heap.Fix(&s.frontier, cur.index)
		return
	}
	if s.dominated(at, arrival, transfers) {
		return
	}
	s.seq++
	l := &label{key: key, arrival: arrival, transfers: transfers, seq: s.seq, prev: prev, legs: legs}
	s.labels[key] = l
	s.byPlace[at] = append(s.byPlace[at], l)
	heap.Push(&s.frontier, l)
}

// dominated reports whether at is already reached no later with fewer
// transfers. Such a label can never lead to a better itinerary.
func (s *search) dominated(at place, arrival metro.TimeOfDay, transfers int) bool {
	for _, l := range s.byPlace[at] {
		if l.transfers < transfers && l.arrival <= arrival {
			return true
		}
	}
	return false
}

func (s *search) expandRides(cur *label) {
	transfer := s.p.net.TransferMinutes()
	for _, seg := range s.p.net.SegmentsAdjacentTo(cur.key.station) {
		ready := cur.arrival
		transfers := cur.transfers
		var legs []Leg
		if cur.key.line != "" && seg.Line != cur.key.line {
			ready = ready.Add(transfer)
			transfers++
			legs = append(legs, Leg{
				Kind:   Transfer,
				From:   cur.key.station,
				To:     cur.key.station,
				Depart: cur.arrival,
				Arrive: ready,
			})
		}
		dep, ok := s.p.ix.NextDeparture(seg.ID, s.req.DayType, ready)
		if !ok {
			continue
		}
		legs = append(legs, Leg{
			Kind:      Ride,
			From:      seg.From,
			To:        seg.To,
			Line:      seg.Line,
			Segment:   seg.ID,
			Direction: seg.Direction,
			Depart:    dep.Departure,
			Arrive:    dep.Arrival,
		})
		s.push(place{station: seg.To, line: seg.Line}, dep.Arrival, transfers, cur, legs)
	}
}

func (s *search) expandInterchanges(cur *label) {
	transfer := s.p.net.TransferMinutes()
	for _, partner := range s.p.net.InterchangesAt(cur.key.station) {
		arrive := cur.arrival.Add(transfer)
		leg := Leg{
			Kind:   Transfer,
			From:   cur.key.station,
			To:     partner,
			Depart: cur.arrival,
			Arrive: arrive,
		}
		s.push(place{station: partner}, arrive, cur.transfers+1, cur, []Leg{leg})
	}
}

// itinerary walks predecessors back from the destination label.
func (s *search) itinerary(dest *label) *Itinerary {
	var chain []*label
	for l := dest; l != nil; l = l.prev {
		chain = append(chain, l)
	}
	it := &Itinerary{
		Origin:      s.req.Origin,
		Destination: s.req.Destination,
		DayType:     s.req.DayType,
		Start:       s.req.Start,
		Transfers:   dest.transfers,
	}
	for i := len(chain) - 1; i >= 0; i-- {
		it.Legs = append(it.Legs, chain[i].legs...)
	}
	return it
}

// ============================================================================
// FRONTIER
// ============================================================================

// frontier orders labels by arrival, then transfers, then discovery.
type frontier []*label

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.arrival != b.arrival {
		return a.arrival < b.arrival
	}
	if a.transfers != b.transfers {
		return a.transfers < b.transfers
	}
	return a.seq < b.seq
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	l := x.(*label)
	l.index = len(*f)
	*f = append(*f, l)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	l := old[n-1]
	old[n-1] = nil
	l.index = -1
	*f = old[:n-1]
	return l
}
