// Package scraper downloads the published station timetables of
// metro.kharkiv.ua and turns them into segment timetable rows.
package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/metro"
)

// Options configures a Scraper.
type Options struct {
	BaseURL     string
	Concurrency int
}

// StationDepartures lists the times trains leave Station toward Terminal.
type StationDepartures struct {
	Station  metro.StationID   `json:"station"`
	Terminal metro.StationID   `json:"terminal"`
	DayType  metro.DayType     `json:"day_type"`
	Times    []metro.TimeOfDay `json:"times"`
}

// Result is the outcome of one scrape. Failed pages are listed but do not
// abort the run.
type Result struct {
	Departures []StationDepartures `json:"departures"`
	Pages      int                 `json:"pages"`
	Failed     []string            `json:"failed,omitempty"`
	Duration   time.Duration       `json:"duration"`
}

// Scraper walks line pages, then every station page they link to.
type Scraper struct {
	topo        *kharkiv.Topology
	fetcher     Fetcher
	base        *url.URL
	concurrency int
}

func New(topo *kharkiv.Topology, fetcher Fetcher, opts Options) (*Scraper, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" {
		return nil, fmt.Errorf("scraper: invalid base url %q", opts.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	return &Scraper{topo: topo, fetcher: fetcher, base: base, concurrency: opts.Concurrency}, nil
}

type stationPage struct {
	station metro.StationID
	day     metro.DayType
	url     string
}

// Scrape fetches every line page and station page for both day types.
func (s *Scraper) Scrape(ctx context.Context) (*Result, error) {
	started := time.Now()
	res := &Result{}

	var pages []stationPage
	for _, day := range metro.DayTypes {
		for _, line := range s.topo.Lines {
			found, err := s.linePages(ctx, line, day)
			res.Pages++
			if err != nil {
				log.Printf("⚠️ [SCRAPER] %s (%s): %v", line.ID, day, err)
				res.Failed = append(res.Failed, s.resolve(line.Pages[string(day)]))
			}
			pages = append(pages, found...)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("scraper: no station pages found")
	}
	log.Printf("🔍 [SCRAPER] %d station pages queued", len(pages))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)
	for _, p := range pages {
		wg.Add(1)
		go func(p stationPage) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			deps, err := s.stationDepartures(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			res.Pages++
			if err != nil {
				log.Printf("⚠️ [SCRAPER] %s: %v", p.url, err)
				res.Failed = append(res.Failed, p.url)
				return
			}
			res.Departures = append(res.Departures, deps...)
		}(p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}

	sort.Slice(res.Departures, func(i, j int) bool {
		a, b := res.Departures[i], res.Departures[j]
		if a.DayType != b.DayType {
			return a.DayType < b.DayType
		}
		if a.Station != b.Station {
			return a.Station < b.Station
		}
		return a.Terminal < b.Terminal
	})
	sort.Strings(res.Failed)
	res.Duration = time.Since(started)
	log.Printf("✅ [SCRAPER] %d timetables from %d pages in %s (%d failed)",
		len(res.Departures), res.Pages, res.Duration.Round(time.Millisecond), len(res.Failed))
	return res, nil
}

// linePages lists the station pages of one line. Stations with a direct page
// in the topology are added when the line page does not link them.
func (s *Scraper) linePages(ctx context.Context, line kharkiv.LineDef, day metro.DayType) ([]stationPage, error) {
	var pages []stationPage
	seen := make(map[metro.StationID]bool)

	var fetchErr error
	if path, ok := line.Pages[string(day)]; ok {
		doc, err := s.fetcher.Fetch(ctx, s.resolve(path))
		if err == nil {
			links, perr := LinePageLinks(doc)
			err = perr
			for _, href := range links {
				id, ok := s.topo.StationBySlug(StationSlug(href))
				if !ok || seen[id] {
					continue
				}
				seen[id] = true
				pages = append(pages, stationPage{station: id, day: day, url: s.resolve(href)})
			}
		}
		fetchErr = err
	}

	for _, st := range line.Stations {
		id := metro.StationID(st.ID)
		path, ok := st.Pages[string(day)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		pages = append(pages, stationPage{station: id, day: day, url: s.resolve(path)})
	}
	return pages, fetchErr
}

func (s *Scraper) stationDepartures(ctx context.Context, p stationPage) ([]StationDepartures, error) {
	doc, err := s.fetcher.Fetch(ctx, p.url)
	if err != nil {
		return nil, err
	}
	tables, err := StationTables(doc)
	if err != nil {
		return nil, err
	}
	day := p.day
	if IsWeekendPage(p.url) {
		day = metro.Weekend
	}

	var out []StationDepartures
	for _, t := range tables {
		name := t.Terminal()
		terminal, ok := s.topo.StationByName(name)
		if !ok {
			log.Printf("⚠️ [SCRAPER] %s: no station for direction %q", p.station, t.Header)
			continue
		}
		if len(t.Times) == 0 || terminal == p.station {
			continue
		}
		out = append(out, StationDepartures{Station: p.station, Terminal: terminal, DayType: day, Times: t.Times})
	}
	return out, nil
}

func (s *Scraper) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return s.base.String() + strings.TrimPrefix(ref, "/")
	}
	return s.base.ResolveReference(u).String()
}
