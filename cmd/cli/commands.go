package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/resty.v1"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/kharkivmetro/internal/calendar"
	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/itinerary"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/planner"
	"github.com/yourorg/kharkivmetro/internal/resolver"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

// boardWidth caps the departures printed per direction.
const boardWidth = 8

// parseArgs lets flags and positional arguments mix in any order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) language(s string) (metro.Language, error) {
	if s == "" {
		s = c.cfg.Preferences.Language
	}
	return metro.ParseLanguage(s)
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 5, 3, 3, ' ', 0)
}

// station accepts a station id or a name. Ambiguous names list the
// candidates before failing.
func (c *cli) station(snap *snapshot.Snapshot, query string, lang metro.Language) (*metro.Station, error) {
	res := snap.Resolver.Resolve(query, lang)
	switch res.Status {
	case resolver.Matched:
		return res.Station, nil
	case resolver.Ambiguous:
		fmt.Fprintf(c.out, "%q matches several stations:\n", query)
		for _, cand := range res.Candidates {
			fmt.Fprintf(c.out, "  %s (%s)\n", cand.Station.Name(lang), cand.Station.ID)
		}
		return nil, fmt.Errorf("ambiguous station %q", query)
	}
	if sug := snap.Resolver.Suggest(query, 3); len(sug) > 0 {
		names := make([]string, 0, len(sug))
		for _, s := range sug {
			names = append(names, s.Station.Name(lang))
		}
		return nil, fmt.Errorf("no station matches %q, did you mean: %s?", query, strings.Join(names, ", "))
	}
	return nil, fmt.Errorf("no station matches %q", query)
}

// ============================================================================
// ROUTE
// ============================================================================

func (c *cli) route(ctx context.Context, args []string) error {
	fs := c.flags("route")
	at := fs.String("time", "", "departure time HH:MM (default now)")
	date := fs.String("date", "", "travel date YYYY-MM-DD (default today)")
	day := fs.String("day", "", "day type: weekday or weekend")
	langFlag := fs.String("lang", "", "ua or en")
	format := fs.String("format", c.cfg.Preferences.Format, "full, simple or json")
	compact := fs.Bool("compact", c.cfg.Preferences.Compact, "merge consecutive stops on one line")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errors.New("usage: route [flags] FROM TO")
	}
	lang, err := c.language(*langFlag)
	if err != nil {
		return err
	}
	loc, err := calendar.Location(c.cfg.Preferences.Timezone)
	if err != nil {
		return err
	}
	dayType, start, err := calendar.Resolve(*day, *date, *at, loc, c.now())
	if err != nil {
		return err
	}

	snap, err := c.snap(ctx)
	if err != nil {
		return err
	}
	origin, err := c.station(snap, pos[0], lang)
	if err != nil {
		return err
	}
	dest, err := c.station(snap, pos[1], lang)
	if err != nil {
		return err
	}

	it, err := snap.Planner.Plan(planner.Request{
		Origin:      origin.ID,
		Destination: dest.ID,
		DayType:     dayType,
		Start:       start,
	})
	var ue *planner.UnreachableError
	if errors.As(err, &ue) {
		fmt.Fprintln(c.out, itinerary.ClosedMessage(lang))
		return nil
	}
	if err != nil {
		return err
	}
	rec := itinerary.Format(snap.Network, it, itinerary.Options{Language: lang, Compact: *compact})
	return c.printRecord(rec, *format)
}

func (c *cli) printRecord(rec itinerary.Record, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, string(data))
		return nil
	case "simple":
		fmt.Fprintln(c.out, itinerary.Summary(rec))
		fmt.Fprintln(c.out, itinerary.Path(rec))
		return nil
	case "full", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	lang := rec.Language
	fmt.Fprintf(c.out, "%s → %s\n", rec.Origin, rec.Destination)
	fmt.Fprintln(c.out, itinerary.Summary(rec))
	w := c.table()
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		itinerary.Label(lang, "Departure"), itinerary.Label(lang, "From"), itinerary.Label(lang, "To"),
		itinerary.Label(lang, "Line"), itinerary.Label(lang, "Towards"), itinerary.Label(lang, "Arrival"))
	for _, seg := range rec.Segments {
		line, towards := seg.Line, seg.Towards
		if seg.IsTransfer {
			line, towards = itinerary.Label(lang, "Transfer"), ""
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			seg.DepartureTime, seg.FromStation, seg.ToStation, line, towards, seg.ArrivalTime)
	}
	return w.Flush()
}

// ============================================================================
// SCHEDULE & STATIONS
// ============================================================================

func (c *cli) schedule(ctx context.Context, args []string) error {
	fs := c.flags("schedule")
	at := fs.String("time", "", "show departures from HH:MM (default now)")
	date := fs.String("date", "", "date YYYY-MM-DD (default today)")
	day := fs.String("day", "", "day type: weekday or weekend")
	langFlag := fs.String("lang", "", "ua or en")
	all := fs.Bool("all", false, "print the whole day")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: schedule [flags] STATION")
	}
	lang, err := c.language(*langFlag)
	if err != nil {
		return err
	}
	loc, err := calendar.Location(c.cfg.Preferences.Timezone)
	if err != nil {
		return err
	}
	dayType, from, err := calendar.Resolve(*day, *date, *at, loc, c.now())
	if err != nil {
		return err
	}
	if *all {
		from = 0
	}

	snap, err := c.snap(ctx)
	if err != nil {
		return err
	}
	st, err := c.station(snap, pos[0], lang)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s (%s)\n", st.Name(lang), dayType)
	window, ok := snap.Index.ServiceWindow(snap.Network, st.ID, dayType)
	if !ok {
		fmt.Fprintln(c.out, itinerary.ClosedMessage(lang))
		return nil
	}
	fmt.Fprintf(c.out, "%s – %s\n", window.First, window.Last)

	w := c.table()
	fmt.Fprintf(w, "%s\t%s\t%s\n", itinerary.Label(lang, "Line"), itinerary.Label(lang, "Towards"), itinerary.Label(lang, "Departure"))
	for _, d := range snap.Index.Board(snap.Network, st.ID, dayType, from) {
		line := string(d.Segment.Line)
		if l, ok := snap.Network.Line(d.Segment.Line); ok {
			line = l.Name(lang)
		}
		towards := string(d.Terminal)
		if term, ok := snap.Network.Station(d.Terminal); ok {
			towards = term.Name(lang)
		}
		times := d.Departures
		more := ""
		if !*all && len(times) > boardWidth {
			times, more = times[:boardWidth], " …"
		}
		strs := make([]string, 0, len(times))
		for _, t := range times {
			strs = append(strs, t.String())
		}
		fmt.Fprintf(w, "%s\t%s\t%s%s\n", line, towards, strings.Join(strs, " "), more)
	}
	return w.Flush()
}

func (c *cli) stations(ctx context.Context, args []string) error {
	fs := c.flags("stations")
	lineFlag := fs.String("line", "", "only stations of this line id")
	langFlag := fs.String("lang", "", "ua or en")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	lang, err := c.language(*langFlag)
	if err != nil {
		return err
	}
	snap, err := c.snap(ctx)
	if err != nil {
		return err
	}
	net := snap.Network

	w := c.table()
	fmt.Fprintf(w, "%s\t%s\tID\t%s\n", itinerary.Label(lang, "Line"), itinerary.Label(lang, "Station"), itinerary.Label(lang, "Transfer"))
	found := false
	for _, line := range net.Lines() {
		if *lineFlag != "" && string(line.ID) != *lineFlag {
			continue
		}
		found = true
		for _, id := range line.Stations {
			st, _ := net.Station(id)
			var to []string
			for _, other := range net.InterchangesAt(id) {
				if o, ok := net.Station(other); ok {
					to = append(to, o.Name(lang))
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", line.Name(lang), st.Name(lang), id, strings.Join(to, ", "))
		}
	}
	if !found {
		return fmt.Errorf("unknown line %q", *lineFlag)
	}
	return w.Flush()
}

func (c *cli) resolve(ctx context.Context, args []string) error {
	fs := c.flags("resolve")
	langFlag := fs.String("lang", "", "ua or en")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return errors.New("usage: resolve [flags] QUERY")
	}
	query := strings.Join(pos, " ")
	lang, err := c.language(*langFlag)
	if err != nil {
		return err
	}
	snap, err := c.snap(ctx)
	if err != nil {
		return err
	}

	res := snap.Resolver.Resolve(query, lang)
	fmt.Fprintf(c.out, "%q: %s (%s)\n", query, res.Status, res.Tier)
	switch res.Status {
	case resolver.Matched:
		fmt.Fprintf(c.out, "  %s (%s)\n", res.Station.Name(lang), res.Station.ID)
	case resolver.Ambiguous:
		for _, cand := range res.Candidates {
			fmt.Fprintf(c.out, "  %s (%s) %.2f\n", cand.Station.Name(lang), cand.Station.ID, cand.Score)
		}
	default:
		for _, cand := range snap.Resolver.Suggest(query, 5) {
			fmt.Fprintf(c.out, "  ? %s (%s) %.2f\n", cand.Station.Name(lang), cand.Station.ID, cand.Score)
		}
	}
	return nil
}

// ============================================================================
// DATA
// ============================================================================

func (c *cli) scrape(ctx context.Context, args []string) error {
	fs := c.flags("scrape")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	rt, err := c.runtime(ctx)
	if err != nil {
		return err
	}
	if _, err := c.snap(ctx); err != nil {
		return err
	}
	p, err := rt.Pipeline()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Scraping %s ...\n", c.cfg.Scraper.BaseURL)
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	w := c.table()
	for _, day := range metro.DayTypes {
		if n, ok := report.Rows[day]; ok {
			fmt.Fprintf(w, "%s\t%d rows\n", day, n)
		}
	}
	w.Flush()
	fmt.Fprintf(c.out, "%d pages, %d failed, %s, snapshot %s\n",
		report.Pages, len(report.Failed), report.Duration.Round(time.Millisecond), report.Snapshot.Version)
	for _, f := range report.Failed {
		fmt.Fprintf(c.out, "  failed: %s\n", f)
	}
	return nil
}

// initData seeds the database with the bundled topology and scrapes the
// timetable into it.
func (c *cli) initData(ctx context.Context, args []string) error {
	fs := c.flags("init")
	force := fs.Bool("force", false, "reseed the topology even when stations exist")
	skipScrape := fs.Bool("skip-scrape", false, "only seed the topology")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	rt, err := c.runtime(ctx)
	if err != nil {
		return err
	}
	repo, err := rt.RequireRepo()
	if err != nil {
		return err
	}
	if *force {
		if err := repo.SeedTopology(ctx, rt.Topology.Raw()); err != nil {
			return err
		}
	}
	if *skipScrape {
		fmt.Fprintln(c.out, "✅ Topology ready")
		return nil
	}
	return c.scrape(ctx, nil)
}

// ============================================================================
// CONFIG & ADMIN
// ============================================================================

func (c *cli) config(args []string) error {
	if len(args) == 0 || args[0] == "show" {
		data, err := yaml.Marshal(c.cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "# %s\n%s", c.cfgPath, data)
		return nil
	}
	switch args[0] {
	case "path":
		fmt.Fprintln(c.out, c.cfgPath)
		return nil
	case "set":
		if len(args) != 3 {
			return errors.New("usage: config set KEY VALUE")
		}
		next, err := setPreference(c.cfg, args[1], args[2])
		if err != nil {
			return err
		}
		if err := config.Save(c.cfgPath, next); err != nil {
			return err
		}
		c.cfg = next
		fmt.Fprintf(c.out, "✅ %s = %s\n", args[1], args[2])
		return nil
	}
	return fmt.Errorf("unknown config command %q", args[0])
}

// setPreference updates one preferences key and validates the result.
func setPreference(cfg config.AppConfig, key, value string) (config.AppConfig, error) {
	switch key {
	case "language":
		cfg.Preferences.Language = strings.ToLower(value)
	case "timezone":
		cfg.Preferences.Timezone = value
	case "format":
		cfg.Preferences.Format = value
	case "compact":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return cfg, fmt.Errorf("compact: %w", err)
		}
		cfg.Preferences.Compact = b
	default:
		return cfg, fmt.Errorf("unknown preference %q (language, timezone, format, compact)", key)
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *cli) hashPassword(args []string) error {
	pw := strings.Join(args, " ")
	if pw == "" {
		var ok bool
		pw, ok = c.prompt("Password: ")
		if !ok || pw == "" {
			return errors.New("empty password")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(hash))
	return nil
}

func (c *cli) health(args []string) error {
	fs := c.flags("health")
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:" + c.cfg.Server.Port
	}
	url := fs.String("url", base, "server base URL")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	resp, err := resty.New().SetTimeout(5 * time.Second).R().Get(strings.TrimRight(*url, "/") + "/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Fprintf(c.out, "Status: %d\n%s\n", resp.StatusCode(), resp.Body())
	if resp.StatusCode() != 200 {
		return fmt.Errorf("server unhealthy")
	}
	return nil
}
