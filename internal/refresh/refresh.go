// Package refresh runs the timetable pipeline: scrape the operator's site,
// derive segment rows, store them and swap in a new snapshot.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourorg/kharkivmetro/internal/debug"
	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/scraper"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

// ErrNoDepartures is returned when a scrape yields no usable rows.
var ErrNoDepartures = errors.New("refresh: scrape produced no departures")

// Scraper is the part of scraper.Scraper the pipeline uses.
type Scraper interface {
	Scrape(ctx context.Context) (*scraper.Result, error)
}

// TimetableStore persists the rows of the given day types atomically.
type TimetableStore interface {
	ReplaceTimetables(ctx context.Context, byDay map[metro.DayType][]metro.RawTimetableRow) error
}

// Pipeline wires the steps together. Store and Source are optional: without
// a store the rows only live in the snapshot (and its file cache); without
// a source the new snapshot is built from the embedded topology.
type Pipeline struct {
	Topology *kharkiv.Topology
	Scraper  Scraper
	Store    TimetableStore
	Source   snapshot.Source
	Manager  *snapshot.Manager
}

// Report summarizes one run.
type Report struct {
	Pages    int
	Failed   []string
	Rows     map[metro.DayType]int
	Snapshot *snapshot.Snapshot
	Duration time.Duration
}

// Run scrapes and installs the result. Day types the scrape did not cover
// keep their current rows. Nothing is stored unless the merged timetable
// builds into a valid network.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report, err := p.run(ctx)
	status := debug.ScrapeStatus{Status: "ok", LastRun: start.Unix()}
	if report != nil {
		status.Pages = report.Pages
		status.Errors = len(report.Failed)
		for _, n := range report.Rows {
			status.Rows += n
		}
		report.Duration = time.Since(start)
	}
	if err != nil {
		status.Status = "failed"
		log.Printf("❌ [REFRESH] %v", err)
	}
	debug.UpdateScrape(status)
	return report, err
}

func (p *Pipeline) run(ctx context.Context) (*Report, error) {
	res, err := p.Scraper.Scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: scrape: %w", err)
	}
	report := &Report{Pages: res.Pages, Failed: res.Failed, Rows: make(map[metro.DayType]int)}

	topoNet, err := p.Topology.Network(nil)
	if err != nil {
		return report, fmt.Errorf("refresh: topology: %w", err)
	}
	fresh := scraper.Partition(scraper.Derive(topoNet, res.Departures))
	if len(fresh) == 0 {
		return report, ErrNoDepartures
	}

	rows := p.merge(fresh)
	raw := p.Topology.Raw()
	raw.Timetable = rows
	if _, err := snapshot.Build(raw, p.Manager.Options()); err != nil {
		return report, fmt.Errorf("refresh: scraped timetable rejected: %w", err)
	}

	for day, dayRows := range fresh {
		report.Rows[day] = len(dayRows)
	}
	if p.Store != nil {
		if err := p.Store.ReplaceTimetables(ctx, fresh); err != nil {
			return report, fmt.Errorf("refresh: store: %w", err)
		}
	}

	src := p.Source
	if src == nil || p.Store == nil {
		src = kharkiv.StaticSource{Rows: rows}
	}
	snap, err := p.Manager.Refresh(ctx, src)
	if err != nil {
		return report, err
	}
	report.Snapshot = snap
	log.Printf("✅ [REFRESH] %d pages, %d failed, rows %v", report.Pages, len(report.Failed), report.Rows)
	return report, nil
}

// merge takes fresh rows where a day type was scraped and the current
// snapshot's rows otherwise.
func (p *Pipeline) merge(fresh map[metro.DayType][]metro.RawTimetableRow) []metro.RawTimetableRow {
	var rows []metro.RawTimetableRow
	for _, day := range metro.DayTypes {
		rows = append(rows, fresh[day]...)
	}
	current := p.Manager.Store().Current()
	if current == nil {
		return rows
	}
	for _, r := range current.Raw().Timetable {
		if _, ok := fresh[r.DayType]; !ok {
			rows = append(rows, r)
		}
	}
	return rows
}
