package bootstrap

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

func openWithoutDB(t *testing.T, cachePath string) *Runtime {
	t.Helper()
	cfg := config.Default()
	cfg.Snapshot.CachePath = cachePath
	rt, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rt.Close)
	return rt
}

func TestBootSourcesWithoutDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.gob")
	rt := openWithoutDB(t, path)
	sources := rt.BootSources(context.Background())
	if len(sources) != 2 {
		t.Fatalf("got %d sources", len(sources))
	}
	if fs, ok := sources[0].(snapshot.FileSource); !ok || fs.Path != path {
		t.Errorf("first source = %#v", sources[0])
	}
	if _, ok := sources[1].(kharkiv.StaticSource); !ok {
		t.Errorf("last source = %#v", sources[1])
	}
	if _, err := rt.RequireRepo(); err != ErrDisabled {
		t.Errorf("RequireRepo err = %v", err)
	}
}

func TestBootFallsBackToTopology(t *testing.T) {
	rt := openWithoutDB(t, filepath.Join(t.TempDir(), "missing.gob"))
	snap, err := rt.Boot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Source != "static" || len(snap.Network.Stations()) != 30 || snap.Index.Size() != 0 {
		t.Errorf("source %s, %d stations, %d departures", snap.Source, len(snap.Network.Stations()), snap.Index.Size())
	}
	if _, ok := rt.ReloadSource().(snapshot.FileSource); !ok {
		t.Errorf("reload source = %#v", rt.ReloadSource())
	}
}

func TestPipeline(t *testing.T) {
	rt := openWithoutDB(t, "")
	p, err := rt.Pipeline()
	if err != nil {
		t.Fatal(err)
	}
	if p.Store != nil || p.Source != nil || p.Manager != rt.Manager {
		t.Errorf("pipeline = %+v", p)
	}

	rt.Config.Scraper.Fetcher = "carrier-pigeon"
	if _, err := rt.Pipeline(); err == nil {
		t.Error("expected error for unknown fetcher")
	}
}

func TestAdminSecret(t *testing.T) {
	random, err := AdminSecret(config.AdminConfig{})
	if err != nil || len(random) < MinSecretLength {
		t.Errorf("random secret %q: %v", random, err)
	}
	if _, err := AdminSecret(config.AdminConfig{JWTSecret: "short"}); err == nil {
		t.Error("expected error for short secret")
	}
	long := strings.Repeat("k", MinSecretLength)
	if got, err := AdminSecret(config.AdminConfig{JWTSecret: long}); err != nil || string(got) != long {
		t.Errorf("got %q, %v", got, err)
	}
}
