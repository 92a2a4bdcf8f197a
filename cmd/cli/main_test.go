package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/itinerary"
	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/metrotest"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

func testCLI(t *testing.T, input string) (*cli, *bytes.Buffer) {
	t.Helper()
	raw := kharkiv.MustLoad().Raw()
	raw.Timetable = metrotest.Uniform(raw, metro.Weekday, metrotest.Pattern{
		First:   metro.NewTimeOfDay(5, 30),
		Last:    metro.NewTimeOfDay(23, 0),
		Headway: 5,
		Hop:     2,
	})
	snap, err := snapshot.Build(raw, snapshot.Options{TransferMinutes: 3})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Preferences.Language = "en"
	var out bytes.Buffer
	c := newCLI(filepath.Join(t.TempDir(), "config.yml"), cfg, &out, strings.NewReader(input))
	c.snap = func(context.Context) (*snapshot.Snapshot, error) { return snap, nil }
	c.now = func() time.Time {
		loc, _ := time.LoadLocation("Europe/Kyiv")
		return time.Date(2026, 3, 4, 8, 30, 0, 0, loc)
	}
	return c, &out
}

func TestParseArgsMixesFlags(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	at := fs.String("time", "", "")
	pos, err := parseArgs(fs, []string{"Kholodna Hora", "-time", "09:00", "Heroiv Pratsi"})
	if err != nil {
		t.Fatal(err)
	}
	if *at != "09:00" || len(pos) != 2 || pos[1] != "Heroiv Pratsi" {
		t.Errorf("time=%q pos=%q", *at, pos)
	}
}

func TestRouteSimple(t *testing.T) {
	c, out := testCLI(t, "")
	err := c.run(testContext(t), "route", []string{"-format", "simple", "Kholodna Hora", "Heroiv Pratsi"})
	if err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "08:30 → 08:54") || !strings.Contains(got, "1 transfer") {
		t.Errorf("output:\n%s", got)
	}
	if !strings.Contains(got, " ⇌ ") {
		t.Errorf("path lacks a transfer:\n%s", got)
	}
}

func TestRouteJSON(t *testing.T) {
	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "route", []string{"-format", "json", "-compact", "kholodna_hora", "saltivska"}); err != nil {
		t.Fatal(err)
	}
	var rec itinerary.Record
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("%v\n%s", err, out.String())
	}
	if rec.OriginID != "kholodna_hora" || rec.DestinationID != "saltivska" || !rec.Compact {
		t.Errorf("record = %+v", rec)
	}
}

func TestRouteFullTable(t *testing.T) {
	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "route", []string{"Kholodna Hora", "Heroiv Pratsi"}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"Departure", "Towards", "Transfer"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRouteClosed(t *testing.T) {
	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "route", []string{"-time", "23:59", "Kholodna Hora", "Heroiv Pratsi"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), itinerary.ClosedMessage(metro.LangEN)) {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRouteErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing destination", []string{"Kholodna Hora"}},
		{"ambiguous", []string{"akademika", "Heroiv Pratsi"}},
		{"unknown station", []string{"zzzzzz", "Heroiv Pratsi"}},
		{"bad time", []string{"-time", "25:00", "Kholodna Hora", "Heroiv Pratsi"}},
		{"bad format", []string{"-format", "xml", "Kholodna Hora", "Heroiv Pratsi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testCLI(t, "")
			if err := c.run(testContext(t), "route", tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSchedule(t *testing.T) {
	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "schedule", []string{"-time", "22:55", "university"}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "05:32 – 23:12") || !strings.Contains(got, "22:57 23:02") {
		t.Errorf("output:\n%s", got)
	}
}

func TestStationsFilter(t *testing.T) {
	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "stations", []string{"-line", "saltivska"}); err != nil {
		t.Fatal(err)
	}
	// header plus eight stations
	if n := strings.Count(strings.TrimSpace(out.String()), "\n") + 1; n != 9 {
		t.Errorf("%d lines:\n%s", n, out.String())
	}
	if err := c.run(testContext(t), "stations", []string{"-line", "nope"}); err == nil {
		t.Error("unknown line accepted")
	}
}

func TestResolve(t *testing.T) {
	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "resolve", []string{"akademika"}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "ambiguous") || !strings.Contains(got, "barabashova") || !strings.Contains(got, "pavlova") {
		t.Errorf("output:\n%s", got)
	}
}

func TestConfigSet(t *testing.T) {
	c, _ := testCLI(t, "")
	if err := c.run(testContext(t), "config", []string{"set", "format", "simple"}); err != nil {
		t.Fatal(err)
	}
	saved, err := config.Load(c.cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Preferences.Format != "simple" {
		t.Errorf("format = %q", saved.Preferences.Format)
	}
	if err := c.run(testContext(t), "config", []string{"set", "format", "xml"}); err == nil {
		t.Error("invalid format saved")
	}
	if err := c.run(testContext(t), "config", []string{"set", "colour", "red"}); err == nil {
		t.Error("unknown key saved")
	}
}

func TestHashPassword(t *testing.T) {
	c, out := testCLI(t, "s3cret\n")
	if err := c.run(testContext(t), "hash-password", nil); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	hash := strings.TrimPrefix(lines[len(lines)-1], "Password: ")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("hash %q: %v", hash, err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	c, out := testCLI(t, "")
	if err := c.run(testContext(t), "health", []string{"-url", srv.URL}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "healthy") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestMenu(t *testing.T) {
	c, out := testCLI(t, "4\nLevada\n9\n7\n")
	c.menu(testContext(t))
	got := out.String()
	if !strings.Contains(got, "levada") || !strings.Contains(got, "Invalid option") || !strings.Contains(got, "Bye") {
		t.Errorf("output:\n%s", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	c, _ := testCLI(t, "")
	if err := c.run(testContext(t), "fly", nil); err == nil {
		t.Error("expected error")
	}
}

// testContext stands in for testing.T.Context (Go 1.24+): the returned
// context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
