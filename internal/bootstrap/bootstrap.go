// Package bootstrap assembles the long-lived pieces both binaries share:
// storage, the snapshot manager and the scrape pipeline.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/yourorg/kharkivmetro/internal/cache"
	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/db"
	"github.com/yourorg/kharkivmetro/internal/kharkiv"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/refresh"
	"github.com/yourorg/kharkivmetro/internal/resolver"
	"github.com/yourorg/kharkivmetro/internal/scraper"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

// MinSecretLength is the shortest accepted JWT signing secret.
const MinSecretLength = 32

// Runtime owns the shared dependencies. Repo is nil when the database is
// disabled.
type Runtime struct {
	Config   config.AppConfig
	Topology *kharkiv.Topology
	DB       *sql.DB
	Repo     *db.Repository
	Manager  *snapshot.Manager
	Pages    *cache.Cache[string]
}

// Open connects storage and prepares an empty snapshot manager. With the
// database enabled the schema is ensured and an empty topology is seeded
// from the embedded network.
func Open(ctx context.Context, cfg config.AppConfig) (*Runtime, error) {
	topo, err := kharkiv.Load()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Config:   cfg,
		Topology: topo,
		Manager:  snapshot.NewManager(&snapshot.Store{}, SnapshotOptions(cfg), cfg.Snapshot.CachePath),
		Pages:    cache.New[string](cache.DefaultSize, cfg.Scraper.PageTTL),
	}
	if !cfg.Database.Enabled {
		log.Println("ℹ️ [DB] Disabled, serving from file cache or scrape")
		return rt, nil
	}

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := db.EnsureSchema(ctx, conn, cfg.Database.SkipSchema); err != nil {
		conn.Close()
		rt.Close()
		return nil, err
	}
	rt.DB = conn
	rt.Repo = db.NewRepository(conn)

	counts, err := rt.Repo.Counts(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if counts.Stations == 0 {
		if err := rt.Repo.SeedTopology(ctx, topo.Raw()); err != nil {
			rt.Close()
			return nil, err
		}
	}
	log.Printf("✅ [DB] Ready (%d stations, departures %v)", counts.Stations, counts.Departures)
	return rt, nil
}

// SnapshotOptions maps the routing section onto snapshot build options.
func SnapshotOptions(cfg config.AppConfig) snapshot.Options {
	return snapshot.Options{
		TransferMinutes: cfg.Routing.TransferMinutes,
		Resolver: resolver.Options{
			Threshold: cfg.Routing.FuzzyThreshold,
			TieMargin: cfg.Routing.TieMargin,
		},
	}
}

// Close releases the database.
func (rt *Runtime) Close() {
	if rt.DB != nil {
		rt.DB.Close()
	}
}

// BootSources lists where the first snapshot may come from, best first: the
// database when it holds departures, then the file cache, then the bare
// embedded topology.
func (rt *Runtime) BootSources(ctx context.Context) []snapshot.Source {
	var sources []snapshot.Source
	if rt.Repo != nil && rt.hasSchedules(ctx) {
		sources = append(sources, rt.Repo)
	}
	if rt.Config.Snapshot.CachePath != "" {
		sources = append(sources, snapshot.FileSource{Path: rt.Config.Snapshot.CachePath})
	}
	return append(sources, kharkiv.StaticSource{})
}

func (rt *Runtime) hasSchedules(ctx context.Context) bool {
	for _, day := range metro.DayTypes {
		ok, err := rt.Repo.HasSchedules(ctx, day)
		if err != nil {
			log.Printf("⚠️ [DB] %v", err)
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// ReloadSource is what an admin reload reads: the database when enabled,
// otherwise the file cache.
func (rt *Runtime) ReloadSource() snapshot.Source {
	if rt.Repo != nil {
		return rt.Repo
	}
	if rt.Config.Snapshot.CachePath != "" {
		return snapshot.FileSource{Path: rt.Config.Snapshot.CachePath}
	}
	return kharkiv.StaticSource{}
}

// Boot installs the first snapshot.
func (rt *Runtime) Boot(ctx context.Context) (*snapshot.Snapshot, error) {
	return rt.Manager.Boot(ctx, rt.BootSources(ctx)...)
}

// Pipeline builds the scrape pipeline from the scraper section.
func (rt *Runtime) Pipeline() (*refresh.Pipeline, error) {
	sc := rt.Config.Scraper
	fetcher, err := scraper.NewFetcher(sc.Fetcher, sc.Timeout, sc.UserAgent)
	if err != nil {
		return nil, err
	}
	if sc.PageTTL > 0 {
		fetcher = scraper.NewCachedFetcher(fetcher, rt.Pages)
	}
	s, err := scraper.New(rt.Topology, fetcher, scraper.Options{BaseURL: sc.BaseURL, Concurrency: sc.Concurrency})
	if err != nil {
		return nil, err
	}
	p := &refresh.Pipeline{Topology: rt.Topology, Scraper: s, Manager: rt.Manager}
	if rt.Repo != nil {
		p.Store = rt.Repo
		p.Source = rt.Repo
	}
	return p, nil
}

// AdminSecret returns the JWT signing secret. Without one configured a
// random secret is generated, so tokens do not survive a restart.
func AdminSecret(cfg config.AdminConfig) ([]byte, error) {
	if cfg.JWTSecret == "" {
		log.Println("⚠️ [ADMIN] JWT_SECRET not set, using a random secret for this process")
		return []byte(uuid.NewString() + uuid.NewString()), nil
	}
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("bootstrap: JWT_SECRET must be at least %d characters (got %d)", MinSecretLength, len(cfg.JWTSecret))
	}
	return []byte(cfg.JWTSecret), nil
}

// ErrDisabled is returned by operations that need the database.
var ErrDisabled = errors.New("bootstrap: database disabled")

// RequireRepo returns the repository or ErrDisabled.
func (rt *Runtime) RequireRepo() (*db.Repository, error) {
	if rt.Repo == nil {
		return nil, ErrDisabled
	}
	return rt.Repo, nil
}
