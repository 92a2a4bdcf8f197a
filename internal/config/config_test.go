package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Routing.TransferMinutes != 3 || cfg.Scraper.Concurrency != 10 {
		t.Errorf("unexpected defaults: %+v", cfg.Routing)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: "9090"
  request_timeout: 2s
routing:
  transfer_minutes: 4
scraper:
  fetcher: chrome
preferences:
  language: en
`)
	t.Setenv("METRO_TRANSFER_MINUTES", "5")
	t.Setenv("JWT_TTL", "30m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.RequestTimeout != 2*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Routing.TransferMinutes != 5 {
		t.Errorf("env override ignored: %d", cfg.Routing.TransferMinutes)
	}
	if cfg.Routing.FuzzyThreshold != 0.75 {
		t.Errorf("unset key lost its default: %v", cfg.Routing.FuzzyThreshold)
	}
	if cfg.Scraper.Fetcher != "chrome" || cfg.Preferences.Language != "en" {
		t.Errorf("file values not applied: %+v %+v", cfg.Scraper, cfg.Preferences)
	}
	if cfg.Admin.TokenTTL != 30*time.Minute {
		t.Errorf("token ttl = %v", cfg.Admin.TokenTTL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad fetcher":     "scraper:\n  fetcher: curl\n",
		"bad language":    "preferences:\n  language: de\n",
		"bad timezone":    "preferences:\n  timezone: Mars/Olympus\n",
		"db without user": "database:\n  enabled: true\n",
		"zero transfer":   "routing:\n  transfer_minutes: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("METRO_SCRAPER_CONCURRENCY", "many")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for a non-numeric env value")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "metro", Pass: "secret", Host: "db", Name: "kharkiv"}
	dsn := d.DSN()
	if !strings.HasPrefix(dsn, "metro:secret@tcp(db:3306)/kharkiv?") {
		t.Errorf("DSN = %s", dsn)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yml")
	cfg := Default()
	cfg.Preferences.Compact = true
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Preferences.Compact {
		t.Error("saved preference not read back")
	}
}
