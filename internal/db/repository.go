package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

// Repository stores the metro topology and timetable in MySQL.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Name identifies the repository as a snapshot source.
func (r *Repository) Name() string { return "mysql" }

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ============================================================================
// READ
// ============================================================================

// ReadNetwork loads the whole network in insertion order.
func (r *Repository) ReadNetwork(ctx context.Context) (metro.RawNetwork, error) {
	b := newNetworkBuilder()

	if err := r.each(ctx, `SELECT id, name_ua, name_en FROM metro_stations ORDER BY sort_order`, func(rows *sql.Rows) error {
		var id, ua, en string
		if err := rows.Scan(&id, &ua, &en); err != nil {
			return err
		}
		b.station(id, ua, en)
		return nil
	}); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("db: read stations: %w", err)
	}

	if err := r.each(ctx, `SELECT id, name_ua, name_en, color FROM metro_lines ORDER BY sort_order`, func(rows *sql.Rows) error {
		var id, ua, en, color string
		if err := rows.Scan(&id, &ua, &en, &color); err != nil {
			return err
		}
		b.line(id, ua, en, color)
		return nil
	}); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("db: read lines: %w", err)
	}

	if err := r.each(ctx, `SELECT line_id, station_id FROM metro_line_stations ORDER BY line_id, position`, func(rows *sql.Rows) error {
		var line, station string
		if err := rows.Scan(&line, &station); err != nil {
			return err
		}
		return b.lineStation(line, station)
	}); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("db: read line stations: %w", err)
	}

	if err := r.each(ctx, `SELECT alias, station_id FROM metro_aliases ORDER BY alias`, func(rows *sql.Rows) error {
		var alias, station string
		if err := rows.Scan(&alias, &station); err != nil {
			return err
		}
		return b.alias(alias, station)
	}); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("db: read aliases: %w", err)
	}

	if err := r.each(ctx, `SELECT station_a, station_b FROM metro_interchanges ORDER BY station_a, station_b`, func(rows *sql.Rows) error {
		var a, c string
		if err := rows.Scan(&a, &c); err != nil {
			return err
		}
		b.interchange(a, c)
		return nil
	}); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("db: read interchanges: %w", err)
	}

	if err := r.each(ctx, `SELECT from_station, to_station, line_id, day_type, departure_min, duration_min
		FROM metro_timetable ORDER BY day_type, from_station, to_station, departure_min`, func(rows *sql.Rows) error {
		var row metro.RawTimetableRow
		var from, to, line, day string
		var dep int
		if err := rows.Scan(&from, &to, &line, &day, &dep, &row.Duration); err != nil {
			return err
		}
		row.From, row.To = metro.StationID(from), metro.StationID(to)
		row.Line, row.DayType = metro.LineID(line), metro.DayType(day)
		row.Departure = metro.TimeOfDay(dep)
		b.raw.Timetable = append(b.raw.Timetable, row)
		return nil
	}); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("db: read timetable: %w", err)
	}

	return b.build(), nil
}

func (r *Repository) each(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// networkBuilder assembles query results into a RawNetwork, keeping the
// order rows arrive in.
type networkBuilder struct {
	raw      metro.RawNetwork
	stations map[string]int
	lines    map[string]int
}

func newNetworkBuilder() *networkBuilder {
	return &networkBuilder{stations: make(map[string]int), lines: make(map[string]int)}
}

func (b *networkBuilder) station(id, ua, en string) {
	b.stations[id] = len(b.raw.Stations)
	b.raw.Stations = append(b.raw.Stations, metro.RawStation{
		ID:    metro.StationID(id),
		Names: map[metro.Language]string{metro.LangUA: ua, metro.LangEN: en},
	})
}

func (b *networkBuilder) line(id, ua, en, color string) {
	b.lines[id] = len(b.raw.Lines)
	b.raw.Lines = append(b.raw.Lines, metro.RawLine{
		ID:    metro.LineID(id),
		Names: map[metro.Language]string{metro.LangUA: ua, metro.LangEN: en},
		Color: color,
	})
}

func (b *networkBuilder) lineStation(line, station string) error {
	i, ok := b.lines[line]
	if !ok {
		return fmt.Errorf("station %s on unknown line %s", station, line)
	}
	b.raw.Lines[i].Stations = append(b.raw.Lines[i].Stations, metro.StationID(station))
	return nil
}

func (b *networkBuilder) alias(alias, station string) error {
	i, ok := b.stations[station]
	if !ok {
		return fmt.Errorf("alias %q for unknown station %s", alias, station)
	}
	b.raw.Stations[i].Aliases = append(b.raw.Stations[i].Aliases, alias)
	return nil
}

func (b *networkBuilder) interchange(a, c string) {
	b.raw.Interchanges = append(b.raw.Interchanges, metro.RawInterchange{A: metro.StationID(a), B: metro.StationID(c)})
}

func (b *networkBuilder) build() metro.RawNetwork { return b.raw }

// ============================================================================
// WRITE
// ============================================================================

// SeedTopology replaces stations, lines, aliases and interchanges with raw.
// The timetable is left alone.
func (r *Repository) SeedTopology(ctx context.Context, raw metro.RawNetwork) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"metro_interchanges", "metro_aliases", "metro_line_stations", "metro_lines", "metro_stations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("db: clear %s: %w", table, err)
		}
	}

	for i, st := range raw.Stations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metro_stations (id, name_ua, name_en, sort_order) VALUES (?, ?, ?, ?)`,
			string(st.ID), st.Names[metro.LangUA], st.Names[metro.LangEN], i); err != nil {
			return fmt.Errorf("db: insert station %s: %w", st.ID, err)
		}
		for _, alias := range st.Aliases {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO metro_aliases (alias, station_id) VALUES (?, ?)`, alias, string(st.ID)); err != nil {
				return fmt.Errorf("db: insert alias %q: %w", alias, err)
			}
		}
	}
	for i, l := range raw.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metro_lines (id, name_ua, name_en, color, sort_order) VALUES (?, ?, ?, ?, ?)`,
			string(l.ID), l.Names[metro.LangUA], l.Names[metro.LangEN], l.Color, i); err != nil {
			return fmt.Errorf("db: insert line %s: %w", l.ID, err)
		}
		for pos, id := range l.Stations {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO metro_line_stations (line_id, station_id, position) VALUES (?, ?, ?)`,
				string(l.ID), string(id), pos); err != nil {
				return fmt.Errorf("db: insert line station %s/%s: %w", l.ID, id, err)
			}
		}
	}
	for _, ic := range raw.Interchanges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metro_interchanges (station_a, station_b) VALUES (?, ?)`, string(ic.A), string(ic.B)); err != nil {
			return fmt.Errorf("db: insert interchange %s-%s: %w", ic.A, ic.B, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit topology: %w", err)
	}
	log.Printf("✅ [DB] Topology seeded: %d stations, %d lines, %d interchanges",
		len(raw.Stations), len(raw.Lines), len(raw.Interchanges))
	return nil
}

// ReplaceTimetable swaps every row of one day type in a single transaction.
// Rows of other day types are untouched.
func (r *Repository) ReplaceTimetable(ctx context.Context, day metro.DayType, rows []metro.RawTimetableRow) error {
	return r.ReplaceTimetables(ctx, map[metro.DayType][]metro.RawTimetableRow{day: rows})
}

// ReplaceTimetables swaps the rows of every day type in byDay within one
// transaction, so a failure leaves all of them as they were. Day types
// missing from byDay are untouched.
func (r *Repository) ReplaceTimetables(ctx context.Context, byDay map[metro.DayType][]metro.RawTimetableRow) error {
	for day := range byDay {
		if !day.Valid() {
			return fmt.Errorf("db: unknown day type %q", day)
		}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metro_timetable
		(from_station, to_station, line_id, day_type, departure_min, duration_min)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db: prepare timetable insert: %w", err)
	}
	defer stmt.Close()

	written := make(map[metro.DayType]int, len(byDay))
	for _, day := range metro.DayTypes {
		rows, ok := byDay[day]
		if !ok {
			continue
		}
		n, err := replaceDay(ctx, tx, stmt, day, rows)
		if err != nil {
			return err
		}
		written[day] = n
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit timetable: %w", err)
	}
	log.Printf("✅ [DB] Timetable replaced: %v", written)
	return nil
}

func replaceDay(ctx context.Context, tx *sql.Tx, insert *sql.Stmt, day metro.DayType, rows []metro.RawTimetableRow) (int, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM metro_timetable WHERE day_type = ?`, string(day)); err != nil {
		return 0, fmt.Errorf("db: clear %s timetable: %w", day, err)
	}
	written := 0
	for _, row := range rows {
		if row.DayType != day {
			continue
		}
		if _, err := insert.ExecContext(ctx, string(row.From), string(row.To), string(row.Line),
			string(row.DayType), int(row.Departure), row.Duration); err != nil {
			return 0, fmt.Errorf("db: insert departure %s>%s %s: %w", row.From, row.To, row.Departure, err)
		}
		written++
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metro_refreshes (day_type, rows_written) VALUES (?, ?)`, string(day), written); err != nil {
		return 0, fmt.Errorf("db: record refresh: %w", err)
	}
	return written, nil
}

// HasSchedules reports whether any departures exist for day.
func (r *Repository) HasSchedules(ctx context.Context, day metro.DayType) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metro_timetable WHERE day_type = ?`, string(day)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("db: count schedules: %w", err)
	}
	return n > 0, nil
}

// Counts summarizes table sizes for health and status output.
type Counts struct {
	Stations     int                   `json:"stations"`
	Lines        int                   `json:"lines"`
	Interchanges int                   `json:"interchanges"`
	Departures   map[metro.DayType]int `json:"departures"`
}

func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	c := Counts{Departures: make(map[metro.DayType]int)}
	for _, q := range []struct {
		sql string
		dst *int
	}{
		{`SELECT COUNT(*) FROM metro_stations`, &c.Stations},
		{`SELECT COUNT(*) FROM metro_lines`, &c.Lines},
		{`SELECT COUNT(*) FROM metro_interchanges`, &c.Interchanges},
	} {
		if err := r.db.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return Counts{}, fmt.Errorf("db: counts: %w", err)
		}
	}
	err := r.each(ctx, `SELECT day_type, COUNT(*) FROM metro_timetable GROUP BY day_type`, func(rows *sql.Rows) error {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return err
		}
		c.Departures[metro.DayType(day)] = n
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("db: count departures: %w", err)
	}
	return c, nil
}

// SortedDayTypes lists the day types present in c in a stable order.
func (c Counts) SortedDayTypes() []metro.DayType {
	out := make([]metro.DayType, 0, len(c.Departures))
	for d := range c.Departures {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
