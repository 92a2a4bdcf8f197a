package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/metrotest"
	"github.com/yourorg/kharkivmetro/internal/resolver"
	"github.com/yourorg/kharkivmetro/internal/schedule"
)

func hm(h, m int) metro.TimeOfDay { return metro.NewTimeOfDay(h, m) }

var everyFive = metrotest.Pattern{First: hm(5, 30), Last: hm(23, 0), Headway: 5, Hop: 2}

func toyPlanner(rows []metro.RawTimetableRow) *Planner {
	net := metrotest.MustNetwork(metrotest.Toy(), rows)
	return New(net, schedule.Build(net.Timetable()))
}

func kharkivPlanner(tb testing.TB) (*metro.Network, *Planner) {
	tb.Helper()
	topo := kharkiv.MustLoad()
	rows := metrotest.Uniform(topo.Raw(), metro.Weekday, everyFive)
	net, err := topo.Network(rows)
	if err != nil {
		tb.Fatalf("load network: %v", err)
	}
	return net, New(net, schedule.Build(net.Timetable()))
}

// checkConsistent verifies the structural properties every itinerary must hold.
func checkConsistent(t *testing.T, net *metro.Network, req Request, it *Itinerary) {
	t.Helper()
	if len(it.Legs) == 0 {
		t.Fatal("itinerary has no legs")
	}
	if it.Legs[0].From != req.Origin {
		t.Errorf("first leg starts at %s, want %s", it.Legs[0].From, req.Origin)
	}
	if last := it.Legs[len(it.Legs)-1]; last.To != req.Destination {
		t.Errorf("last leg ends at %s, want %s", last.To, req.Destination)
	}
	if it.Departure() < req.Start {
		t.Errorf("departs %s before requested start %s", it.Departure(), req.Start)
	}

	transfers := 0
	var lastRide *Leg
	for i, leg := range it.Legs {
		if leg.Arrive < leg.Depart {
			t.Errorf("leg %d arrives before it departs", i)
		}
		if i > 0 {
			prev := it.Legs[i-1]
			if leg.From != prev.To {
				t.Errorf("leg %d starts at %s, previous ended at %s", i, leg.From, prev.To)
			}
			if leg.Depart < prev.Arrive {
				t.Errorf("leg %d departs %s before previous arrival %s", i, leg.Depart, prev.Arrive)
			}
		}
		switch leg.Kind {
		case Transfer:
			transfers++
			if leg.Minutes() != net.TransferMinutes() {
				t.Errorf("transfer leg %d lasts %d minutes", i, leg.Minutes())
			}
		case Ride:
			if _, ok := net.Segment(leg.Segment); !ok {
				t.Errorf("leg %d rides unknown segment %s", i, leg.Segment)
			}
			if lastRide != nil && lastRide.Line != leg.Line {
				if gap := leg.Depart.Sub(lastRide.Arrive); gap < net.TransferMinutes() {
					t.Errorf("line change before leg %d leaves only %d minutes", i, gap)
				}
			}
			l := leg
			lastRide = &l
		}
	}
	if transfers != it.Transfers {
		t.Errorf("Transfers = %d, counted %d transfer legs", it.Transfers, transfers)
	}
}

func TestPlanKharkivScenario(t *testing.T) {
	net, p := kharkivPlanner(t)
	r, err := resolver.New(net, resolver.Options{})
	if err != nil {
		t.Fatal(err)
	}

	from := r.Resolve("Kholodna Hora", metro.LangEN)
	to := r.Resolve("Heroiv Pratsi", metro.LangEN)
	if from.Status != resolver.Matched || to.Status != resolver.Matched {
		t.Fatalf("resolution failed: %s / %s", from.Status, to.Status)
	}
	if to.Station.ID != "saltivska" {
		t.Fatalf("Heroiv Pratsi resolved to %s", to.Station.ID)
	}

	req := Request{Origin: from.Station.ID, Destination: to.Station.ID, DayType: metro.Weekday, Start: hm(8, 30)}
	it, err := p.Plan(req)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	checkConsistent(t, net, req, it)

	if it.Departure() != hm(8, 30) {
		t.Errorf("departure = %s, want 08:30", it.Departure())
	}
	// 3 hops to Maidan Konstytutsii, 3 minutes walking, next blue train at 08:40, 7 hops.
	if it.Arrival() != hm(8, 54) {
		t.Errorf("arrival = %s, want 08:54", it.Arrival())
	}
	if it.Transfers != 1 {
		t.Errorf("transfers = %d, want 1", it.Transfers)
	}

	var walked bool
	for _, leg := range it.Legs {
		if leg.Kind == Transfer && leg.From == "maidan_konstytutsii" && leg.To == "istorychnyi_muzei" {
			walked = true
		}
	}
	if !walked {
		t.Errorf("expected the Maidan Konstytutsii interchange, got %+v", it.Legs)
	}
	if it.Rides() != 10 {
		t.Errorf("rides = %d, want 10", it.Rides())
	}
	if it.Elapsed() != 24 || it.TravelTime() != 24 {
		t.Errorf("elapsed %d travel %d, want 24", it.Elapsed(), it.TravelTime())
	}
}

func TestPlanConsistencyAcrossNetwork(t *testing.T) {
	rows := metrotest.Uniform(metrotest.Toy(), metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(23, 0), Headway: 7, Hop: 3})
	p := toyPlanner(rows)
	net := p.net

	starts := []metro.TimeOfDay{hm(5, 0), hm(6, 1), hm(12, 7), hm(22, 40)}
	for _, a := range net.Stations() {
		for _, b := range net.Stations() {
			if a.ID == b.ID {
				continue
			}
			for _, start := range starts {
				req := Request{Origin: a.ID, Destination: b.ID, DayType: metro.Weekday, Start: start}
				it, err := p.Plan(req)
				if errors.Is(err, ErrUnreachable) {
					continue
				}
				if err != nil {
					t.Fatalf("%s -> %s at %s: %v", a.ID, b.ID, start, err)
				}
				t.Run(string(a.ID)+"-"+string(b.ID)+"@"+start.String(), func(t *testing.T) {
					checkConsistent(t, net, req, it)
				})
			}
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	_, p := kharkivPlanner(t)
	req := Request{Origin: "industrialna", Destination: "peremoha", DayType: metro.Weekday, Start: hm(17, 42)}
	first, err := p.Plan(req)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := p.Plan(req)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d returned a different itinerary", i)
		}
	}
}

func TestPlanAsymmetricDirections(t *testing.T) {
	red := []metro.StationID{"a", "b", "c", "d"}
	var rows []metro.RawTimetableRow
	rows = append(rows, metrotest.Direction("red", red, metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(22, 0), Headway: 10, Hop: 2})...)
	rows = append(rows, metrotest.Direction("red", []metro.StationID{"d", "c", "b", "a"}, metro.Weekday,
		metrotest.Pattern{First: hm(6, 15), Last: hm(22, 0), Headway: 30, Hop: 4})...)
	p := toyPlanner(rows)

	tests := []struct {
		from, to metro.StationID
		depart   metro.TimeOfDay
		arrive   metro.TimeOfDay
	}{
		{"a", "d", hm(7, 0), hm(7, 6)},
		{"d", "a", hm(7, 15), hm(7, 27)},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"-"+string(tt.to), func(t *testing.T) {
			it, err := p.Plan(Request{Origin: tt.from, Destination: tt.to, DayType: metro.Weekday, Start: hm(7, 0)})
			if err != nil {
				t.Fatal(err)
			}
			if it.Departure() != tt.depart || it.Arrival() != tt.arrive {
				t.Errorf("got %s-%s, want %s-%s", it.Departure(), it.Arrival(), tt.depart, tt.arrive)
			}
			if it.Transfers != 0 {
				t.Errorf("unexpected transfers: %d", it.Transfers)
			}
		})
	}
}

func TestPlanTransferGap(t *testing.T) {
	var rows []metro.RawTimetableRow
	rows = append(rows, metrotest.Direction("red", []metro.StationID{"a", "b"}, metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(8, 0), Headway: 10, Hop: 2})...)
	// Blue trains reach y at 06:02 (too early) and 06:05 (exactly when the walk ends).
	rows = append(rows, metrotest.Direction("blue", []metro.StationID{"x", "y", "z"}, metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(6, 0), Headway: 10, Hop: 2})...)
	rows = append(rows, metrotest.Direction("blue", []metro.StationID{"y", "z"}, metro.Weekday,
		metrotest.Pattern{First: hm(6, 5), Last: hm(8, 5), Headway: 10, Hop: 2})...)
	p := toyPlanner(rows)

	it, err := p.Plan(Request{Origin: "a", Destination: "z", DayType: metro.Weekday, Start: hm(6, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if it.Arrival() != hm(6, 7) {
		t.Errorf("arrival = %s, want 06:07", it.Arrival())
	}
	want := []LegKind{Ride, Transfer, Ride}
	if len(it.Legs) != len(want) {
		t.Fatalf("legs = %+v", it.Legs)
	}
	for i, k := range want {
		if it.Legs[i].Kind != k {
			t.Errorf("leg %d is %s, want %s", i, it.Legs[i].Kind, k)
		}
	}
	if it.Legs[2].Depart != hm(6, 5) {
		t.Errorf("boarded blue at %s, want 06:05", it.Legs[2].Depart)
	}
}

func TestPlanLineChangeInsideStation(t *testing.T) {
	raw := metrotest.Toy()
	raw.Stations = append(raw.Stations, metro.RawStation{
		ID:    "e",
		Names: map[metro.Language]string{metro.LangUA: "Е", metro.LangEN: "E"},
	})
	raw.Lines = append(raw.Lines, metro.RawLine{ID: "green", Color: "green", Stations: []metro.StationID{"c", "e"}})
	var rows []metro.RawTimetableRow
	rows = append(rows, metrotest.Direction("red", []metro.StationID{"a", "b", "c"}, metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(7, 0), Headway: 10, Hop: 2})...)
	rows = append(rows, metrotest.Direction("green", []metro.StationID{"c", "e"}, metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(7, 0), Headway: 2, Hop: 5})...)
	net := metrotest.MustNetwork(raw, rows)
	p := New(net, schedule.Build(net.Timetable()))

	req := Request{Origin: "a", Destination: "e", DayType: metro.Weekday, Start: hm(6, 0)}
	it, err := p.Plan(req)
	if err != nil {
		t.Fatal(err)
	}
	checkConsistent(t, net, req, it)
	// Red reaches c at 06:04; the change is ready at 06:07; next green at 06:08.
	if it.Arrival() != hm(6, 13) {
		t.Errorf("arrival = %s, want 06:13", it.Arrival())
	}
	if it.Transfers != 1 {
		t.Errorf("transfers = %d, want 1", it.Transfers)
	}
}

func TestPlanTieBreak(t *testing.T) {
	st := func(ids ...metro.StationID) []metro.RawStation {
		var out []metro.RawStation
		for _, id := range ids {
			out = append(out, metro.RawStation{ID: id, Names: map[metro.Language]string{metro.LangUA: string(id), metro.LangEN: string(id)}})
		}
		return out
	}
	line := func(id metro.LineID, stations ...metro.StationID) metro.RawLine {
		return metro.RawLine{ID: id, Color: string(id), Stations: stations}
	}
	row := func(l metro.LineID, from, to metro.StationID, dep metro.TimeOfDay, dur int) metro.RawTimetableRow {
		return metro.RawTimetableRow{From: from, To: to, Line: l, DayType: metro.Weekday, Departure: dep, Duration: dur}
	}

	// red a-b-c, blue x-y, green g-h; a<->x, b<->y, c<->g. Detouring over
	// blue reaches b in time for the 08:08 red train, but staying on red
	// still makes the 08:20 green train with one transfer instead of three.
	detour := metro.RawNetwork{
		Stations: st("a", "b", "c", "x", "y", "g", "h"),
		Lines: []metro.RawLine{
			line("red", "a", "b", "c"),
			line("blue", "x", "y"),
			line("green", "g", "h"),
		},
		Interchanges: []metro.RawInterchange{{A: "a", B: "x"}, {A: "b", B: "y"}, {A: "c", B: "g"}},
	}
	detourRows := []metro.RawTimetableRow{
		row("red", "a", "b", hm(8, 10), 2),
		row("red", "b", "c", hm(8, 8), 2),
		row("red", "b", "c", hm(8, 12), 2),
		row("blue", "x", "y", hm(8, 3), 2),
		row("green", "g", "h", hm(8, 20), 2),
	}

	// a and d are served by both lines; both rides arrive at 08:10 directly.
	parallel := func(first, second metro.LineID) metro.RawNetwork {
		lines := map[metro.LineID]metro.RawLine{
			"red":  line("red", "a", "b", "d"),
			"blue": line("blue", "a", "c", "d"),
		}
		return metro.RawNetwork{
			Stations: st("a", "b", "c", "d"),
			Lines:    []metro.RawLine{lines[first], lines[second]},
		}
	}
	parallelRows := []metro.RawTimetableRow{
		row("red", "a", "b", hm(8, 2), 2),
		row("red", "b", "d", hm(8, 6), 4),
		row("blue", "a", "c", hm(8, 2), 2),
		row("blue", "c", "d", hm(8, 6), 4),
	}

	tests := []struct {
		name      string
		raw       metro.RawNetwork
		rows      []metro.RawTimetableRow
		req       Request
		arrival   metro.TimeOfDay
		transfers int
		lines     []metro.LineID
	}{
		{
			name:      "fewer transfers at equal arrival",
			raw:       detour,
			rows:      detourRows,
			req:       Request{Origin: "a", Destination: "h", DayType: metro.Weekday, Start: hm(8, 0)},
			arrival:   hm(8, 22),
			transfers: 1,
			lines:     []metro.LineID{"red", "red", "green"},
		},
		{
			name:      "full tie keeps first line",
			raw:       parallel("red", "blue"),
			rows:      parallelRows,
			req:       Request{Origin: "a", Destination: "d", DayType: metro.Weekday, Start: hm(8, 0)},
			arrival:   hm(8, 10),
			transfers: 0,
			lines:     []metro.LineID{"red", "red"},
		},
		{
			name:      "full tie follows line order",
			raw:       parallel("blue", "red"),
			rows:      parallelRows,
			req:       Request{Origin: "a", Destination: "d", DayType: metro.Weekday, Start: hm(8, 0)},
			arrival:   hm(8, 10),
			transfers: 0,
			lines:     []metro.LineID{"blue", "blue"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := metrotest.MustNetwork(tt.raw, tt.rows)
			it, err := New(net, schedule.Build(net.Timetable())).Plan(tt.req)
			if err != nil {
				t.Fatal(err)
			}
			checkConsistent(t, net, tt.req, it)
			if it.Arrival() != tt.arrival || it.Transfers != tt.transfers {
				t.Errorf("arrival %s with %d transfers, want %s with %d", it.Arrival(), it.Transfers, tt.arrival, tt.transfers)
			}
			var lines []metro.LineID
			for _, leg := range it.Legs {
				if leg.Kind == Ride {
					lines = append(lines, leg.Line)
				}
			}
			if !reflect.DeepEqual(lines, tt.lines) {
				t.Errorf("rode %v, want %v", lines, tt.lines)
			}
		})
	}
}

func TestPlanUnreachable(t *testing.T) {
	rows := metrotest.Uniform(metrotest.Toy(), metro.Weekday,
		metrotest.Pattern{First: hm(6, 0), Last: hm(23, 0), Headway: 10, Hop: 2})
	p := toyPlanner(rows)

	tests := []struct {
		name   string
		req    Request
		reason Reason
	}{
		{"after last departure", Request{Origin: "a", Destination: "z", DayType: metro.Weekday, Start: hm(23, 50)}, ReasonAfterLastService},
		{"no weekend service", Request{Origin: "a", Destination: "d", DayType: metro.Weekend, Start: hm(12, 0)}, ReasonAfterLastService},
		// c still has a train toward d, but nothing runs back toward the interchange.
		{"stranded", Request{Origin: "c", Destination: "z", DayType: metro.Weekday, Start: hm(23, 3)}, ReasonNoConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := p.Plan(tt.req)
			if err == nil {
				t.Fatalf("expected unreachable, got %+v", it)
			}
			if !errors.Is(err, ErrUnreachable) {
				t.Fatalf("error %v does not wrap ErrUnreachable", err)
			}
			var ue *UnreachableError
			if !errors.As(err, &ue) || ue.Reason != tt.reason {
				t.Errorf("reason = %v, want %s", err, tt.reason)
			}
		})
	}
}

func TestPlanInvalidRequest(t *testing.T) {
	p := toyPlanner(nil)
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"same station", Request{Origin: "a", Destination: "a", DayType: metro.Weekday, Start: hm(8, 0)}, "destination"},
		{"unknown origin", Request{Origin: "nowhere", Destination: "a", DayType: metro.Weekday, Start: hm(8, 0)}, "origin"},
		{"unknown destination", Request{Origin: "a", Destination: "nowhere", DayType: metro.Weekday, Start: hm(8, 0)}, "destination"},
		{"bad day type", Request{Origin: "a", Destination: "b", DayType: "holiday", Start: hm(8, 0)}, "day_type"},
		{"time out of range", Request{Origin: "a", Destination: "b", DayType: metro.Weekday, Start: metro.MinutesPerDay}, "start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Plan(tt.req)
			var ire *InvalidRequestError
			if !errors.As(err, &ire) {
				t.Fatalf("expected InvalidRequestError, got %v", err)
			}
			if ire.Field != tt.field {
				t.Errorf("field = %s, want %s", ire.Field, tt.field)
			}
			if !IsInvalidRequest(err) {
				t.Error("IsInvalidRequest = false")
			}
		})
	}
}

func BenchmarkPlan(b *testing.B) {
	_, p := kharkivPlanner(b)
	req := Request{Origin: "kholodna_hora", Destination: "peremoha", DayType: metro.Weekday, Start: hm(8, 30)}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Plan(req); err != nil {
			b.Fatal(err)
		}
	}
}
