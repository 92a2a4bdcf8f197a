package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourorg/kharkivmetro/internal/cache"
	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/metro"
)

const testTopology = `
transfer_minutes: 3
lines:
  - id: red
    color: red
    names: {ua: Червона, en: Red}
    pages:
      weekday: red-liniia/
      weekend: red-liniia-vykhidni-dni/
    stations:
      - {id: alpha, names: {ua: Альфа, en: Alpha}, slugs: [alfa, akrlfa]}
      - {id: beta, names: {ua: Бета, en: Beta}, slugs: [beta]}
      - id: gamma
        names: {ua: Гамма, en: Gamma}
        slugs: [hamma]
        pages:
          weekday: stantsiia-%C2%ABhamma%C2%BB.html
`

func stationPageHTML(tables ...string) string {
	return "<html><body><div class=\"content-text\">" + strings.Join(tables, "") + "</div></body></html>"
}

func tableHTML(header string, rows ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h4>%s</h4><table>", header)
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, cell := range strings.Split(r, "|") {
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func TestStationSlug(t *testing.T) {
	tests := []struct {
		href, want string
	}{
		{"stantsiia-%C2%ABkholodna-hokra%C2%BB.html", "kholodna-hokra"},
		{"/stantsiia-«kholodna-hokra»-vykhidni-dni.html", "kholodna-hokra"},
		{"stantsiia-«vokzalna»-(vykhidni-dni).html", "vokzalna"},
		{`stantsiia-"Derzhprom".html`, "derzhprom"},
		{"stantsiia-%C2%AB23-sekrpnia%C2%BB-(vykhidni-dni).html", "23-sekrpnia"},
		{"news/index.html", ""},
	}
	for _, tt := range tests {
		if got := StationSlug(tt.href); got != tt.want {
			t.Errorf("StationSlug(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestLinePageLinks(t *testing.T) {
	doc := `<html><body>
		<div class="menu"><a href="stantsiia-«outside».html">x</a></div>
		<div class="page content-text">
			<p><a href="stantsiia-«alfa».html">«Альфа»</a></p>
			<p><a href="/news.html">news</a></p>
			<p><a href="stantsiia-«beta».html">«Бета»</a></p>
		</div></body></html>`
	links, err := LinePageLinks(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 || links[0] != "stantsiia-«alfa».html" || links[1] != "stantsiia-«beta».html" {
		t.Errorf("links = %v", links)
	}
}

func TestStationTables(t *testing.T) {
	doc := stationPageHTML(
		tableHTML("Напрямок «Гамма»", "Год|Хв", "5|30|45", "6|00*|15 30", "7|&nbsp;|"),
		"<p><strong>До станції «Альфа»</strong></p>",
		"<table><tr><td>23:</td><td>05</td></tr><tr><td>24</td><td>10</td></tr></table>",
	)
	tables, err := StationTables(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %d", len(tables))
	}
	if got := tables[0].Terminal(); got != "Гамма" {
		t.Errorf("terminal = %q", got)
	}
	want := []metro.TimeOfDay{
		metro.NewTimeOfDay(5, 30), metro.NewTimeOfDay(5, 45),
		metro.NewTimeOfDay(6, 0), metro.NewTimeOfDay(6, 15), metro.NewTimeOfDay(6, 30),
	}
	if fmt.Sprint(tables[0].Times) != fmt.Sprint(want) {
		t.Errorf("times = %v, want %v", tables[0].Times, want)
	}
	// The second table follows a heading, which wins over the later <strong>.
	if got := tables[1].Terminal(); got != "Гамма" {
		t.Errorf("second terminal = %q", got)
	}
	if len(tables[1].Times) != 1 || tables[1].Times[0] != metro.NewTimeOfDay(23, 5) {
		t.Errorf("second times = %v", tables[1].Times)
	}
}

func TestStationTablesStrongFallback(t *testing.T) {
	doc := "<p><strong>«Альфа»</strong></p><table><tr><td>8</td><td>01</td></tr></table>"
	tables, err := StationTables(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Terminal() != "Альфа" {
		t.Errorf("tables = %+v", tables)
	}
}

// ============================================================================
// DERIVE
// ============================================================================

func testNetwork(t *testing.T) (*kharkiv.Topology, *metro.Network) {
	t.Helper()
	topo, err := kharkiv.Parse([]byte(testTopology))
	if err != nil {
		t.Fatal(err)
	}
	net, err := topo.Network(nil)
	if err != nil {
		t.Fatal(err)
	}
	return topo, net
}

func times(hm ...int) []metro.TimeOfDay {
	var out []metro.TimeOfDay
	for i := 0; i+1 < len(hm); i += 2 {
		out = append(out, metro.NewTimeOfDay(hm[i], hm[i+1]))
	}
	return out
}

func TestDerive(t *testing.T) {
	_, net := testNetwork(t)
	deps := []StationDepartures{
		{Station: "alpha", Terminal: "gamma", DayType: metro.Weekday, Times: times(6, 0, 6, 10)},
		{Station: "beta", Terminal: "gamma", DayType: metro.Weekday, Times: times(6, 3, 6, 13)},
		{Station: "gamma", Terminal: "alpha", DayType: metro.Weekday, Times: times(6, 20)},
		// Same direction listed twice: merged.
		{Station: "alpha", Terminal: "gamma", DayType: metro.Weekday, Times: times(6, 10)},
		// Unknown terminal: skipped.
		{Station: "alpha", Terminal: "nowhere", DayType: metro.Weekday, Times: times(7, 0)},
	}
	rows := Derive(net, deps)

	type row struct {
		from, to metro.StationID
		dep      string
		dur      int
	}
	var got []row
	for _, r := range rows {
		got = append(got, row{r.From, r.To, r.Departure.String(), r.Duration})
	}
	want := []row{
		{"alpha", "beta", "06:00", 3},
		{"alpha", "beta", "06:10", 3},
		{"beta", "gamma", "06:03", DefaultHop},
		{"beta", "gamma", "06:13", DefaultHop},
		{"gamma", "beta", "06:20", DefaultHop},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("rows\n got %v\nwant %v", got, want)
	}

	raw := testRaw(t)
	raw.Timetable = rows
	if _, err := metro.Load(raw, metro.LoadOptions{TransferMinutes: 3}); err != nil {
		t.Errorf("derived rows do not load: %v", err)
	}
}

func testRaw(t *testing.T) metro.RawNetwork {
	topo, _ := testNetwork(t)
	return topo.Raw()
}

func TestDeriveIgnoresLateMatch(t *testing.T) {
	_, net := testNetwork(t)
	deps := []StationDepartures{
		{Station: "alpha", Terminal: "gamma", DayType: metro.Weekend, Times: times(22, 0)},
		{Station: "beta", Terminal: "gamma", DayType: metro.Weekend, Times: times(22, 30)},
	}
	rows := Derive(net, deps)
	if len(rows) != 2 || rows[0].Duration != DefaultHop {
		t.Errorf("rows = %+v", rows)
	}
}

func TestPartition(t *testing.T) {
	rows := []metro.RawTimetableRow{{DayType: metro.Weekday}, {DayType: metro.Weekend}, {DayType: metro.Weekday}}
	parts := Partition(rows)
	if len(parts[metro.Weekday]) != 2 || len(parts[metro.Weekend]) != 1 {
		t.Errorf("parts = %v", parts)
	}
}

// ============================================================================
// SCRAPE
// ============================================================================

type fakeFetcher struct {
	pages map[string]string
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls.Add(1)
	if doc, ok := f.pages[url]; ok {
		return doc, nil
	}
	return "", errors.New("404")
}

func TestScrape(t *testing.T) {
	topo, net := testNetwork(t)
	base := "https://metro.example/"
	f := &fakeFetcher{pages: map[string]string{
		base + "red-liniia/": `<div class="content-text">
			<a href="/stantsiia-%C2%ABalfa%C2%BB.html">Альфа</a>
			<a href="/stantsiia-%C2%ABbeta%C2%BB.html">Бета</a></div>`,
		base + "red-liniia-vykhidni-dni/": `<div class="content-text">
			<a href="/stantsiia-«akrlfa»-(vykhidni-dni).html">Альфа</a></div>`,
		base + "stantsiia-%C2%ABalfa%C2%BB.html": stationPageHTML(
			tableHTML("Напрямок «Гамма»", "6|00|10")),
		base + "stantsiia-%C2%ABbeta%C2%BB.html": stationPageHTML(
			tableHTML("Напрямок «Гамма»", "6|03|13"),
			tableHTML("Напрямок «Альфа»", "6|25")),
		base + "stantsiia-%C2%ABhamma%C2%BB.html": stationPageHTML(
			tableHTML("Напрямок «Альфа»", "6|22")),
		base + "stantsiia-%C2%ABakrlfa%C2%BB-%28vykhidni-dni%29.html": stationPageHTML(
			tableHTML("Напрямок «Гамма»", "8|00")),
	}}
	s, err := New(topo, f, Options{BaseURL: "https://metro.example", Concurrency: 2})
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var weekday, weekend int
	for _, d := range res.Departures {
		switch d.DayType {
		case metro.Weekday:
			weekday++
		case metro.Weekend:
			weekend++
		}
	}
	if weekday != 4 || weekend != 1 {
		t.Errorf("weekday/weekend timetables = %d/%d, departures %+v, failed %v", weekday, weekend, res.Departures, res.Failed)
	}

	rows := Derive(net, res.Departures)
	raw := topo.Raw()
	raw.Timetable = rows
	if _, err := metro.Load(raw, metro.LoadOptions{TransferMinutes: 3}); err != nil {
		t.Fatal(err)
	}
}

func TestScrapeNothingFound(t *testing.T) {
	topo, _ := testNetwork(t)
	topo.Lines[0].Stations[2].Pages = nil
	s, err := New(topo, &fakeFetcher{}, Options{BaseURL: "https://metro.example/"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Scrape(context.Background()); err == nil {
		t.Error("expected error when no page is reachable")
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	topo, _ := testNetwork(t)
	if _, err := New(topo, &fakeFetcher{}, Options{BaseURL: "metro"}); err == nil {
		t.Error("expected error")
	}
}

func TestCachedFetcher(t *testing.T) {
	pages := cache.New[string](8, time.Minute)
	f := &fakeFetcher{pages: map[string]string{"u": "doc"}}
	c := NewCachedFetcher(f, pages)

	for i := 0; i < 3; i++ {
		doc, err := c.Fetch(context.Background(), "u")
		if err != nil || doc != "doc" {
			t.Fatalf("fetch = %q, %v", doc, err)
		}
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if _, err := c.Fetch(context.Background(), "missing"); err == nil {
		t.Error("expected error")
	}
}

func TestNewFetcher(t *testing.T) {
	for _, kind := range []string{"", "http", "chrome"} {
		if _, err := NewFetcher(kind, time.Second, ""); err != nil {
			t.Errorf("%q: %v", kind, err)
		}
	}
	if _, err := NewFetcher("curl", time.Second, ""); err == nil {
		t.Error("expected error")
	}
}
