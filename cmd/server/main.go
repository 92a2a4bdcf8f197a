package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/yourorg/kharkivmetro/internal/bootstrap"
	"github.com/yourorg/kharkivmetro/internal/cache"
	"github.com/yourorg/kharkivmetro/internal/calendar"
	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/debug"
	"github.com/yourorg/kharkivmetro/internal/handlers"
	"github.com/yourorg/kharkivmetro/internal/middleware"
	"github.com/yourorg/kharkivmetro/internal/routes"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

func main() {
	cfg, err := config.Load(os.Getenv("METRO_CONFIG"))
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	debug.Enable(cfg.Debug.Dashboard)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ============================================================================
	// STORAGE & SNAPSHOT
	// ============================================================================
	rt, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer rt.Close()

	routeCache := handlers.NewRouteCache(cfg.Cache.RouteTTL, cfg.Cache.RouteSize)
	caches := cache.NewRegistry()
	caches.Register("routes", routeCache)
	caches.Register("pages", rt.Pages)

	rt.Manager.OnSwap(func(s *snapshot.Snapshot) {
		routeCache.Purge()
		debug.UpdateSnapshot(debug.SnapshotStatus{
			Version:    s.Version,
			Source:     s.Source,
			LoadedAt:   s.LoadedAt.Unix(),
			Stations:   len(s.Network.Stations()),
			Departures: s.Index.Size(),
		})
	})

	snap, err := rt.Boot(ctx)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	pipeline, err := rt.Pipeline()
	if err != nil {
		log.Printf("⚠️ [SCRAPER] Disabled: %v", err)
	}
	if snap.Index.Size() == 0 && pipeline != nil {
		log.Println("🔄 [SCRAPER] No timetable loaded, scraping in the background")
		go func() {
			scrapeCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()
			if _, err := pipeline.Run(scrapeCtx); err != nil {
				log.Printf("⚠️ [SCRAPER] Initial scrape failed, routes return 422 until a refresh succeeds: %v", err)
			}
		}()
	}

	// ============================================================================
	// HTTP
	// ============================================================================
	secret, err := bootstrap.AdminSecret(cfg.Admin)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	loc, err := calendar.Location(cfg.Preferences.Timezone)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	metroHandler, err := handlers.NewMetroHandler(rt.Manager.Store(), routeCache, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	var pinger handlers.Pinger
	if rt.Repo != nil {
		pinger = rt.Repo
	}
	var refresher handlers.Refresher
	if pipeline != nil {
		refresher = pipeline
	}

	app := fiber.New(fiber.Config{
		AppName:      "kharkivmetro",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	routes.Register(app, routes.Handlers{
		Metro:     metroHandler,
		Health:    handlers.NewHealthHandler(pinger, rt.Manager.Store()),
		Status:    handlers.NewStatusHandler(rt.Manager, caches, loc),
		Admin:     handlers.NewAdminHandler(cfg.Admin, secret, rt.Manager, rt.ReloadSource(), refresher),
		JWTSecret: secret,
		RateLimit: cfg.Server.RateLimit,
		Dashboard: cfg.Debug.Dashboard,
	})

	metricsStop := make(chan struct{})
	go debug.PeriodicMetrics(10*time.Second, middleware.Requests, metricsStop)

	// ============================================================================
	// GRACEFUL SHUTDOWN
	// ============================================================================
	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutdown signal received, closing server...")
		close(metricsStop)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Error closing server: %v", err)
		}
	}()

	port := cfg.Server.Port
	log.Printf("🚀 Listening on :%s", port)
	log.Println("📍 Endpoints:")
	log.Println("   GET  /api/health                - storage and snapshot health")
	log.Println("   GET  /api/status                - snapshot version, open/closed, caches")
	log.Println("   GET  /api/lines                 - lines with ordered stations")
	log.Println("   GET  /api/stations              - stations (?line=&lang=)")
	log.Println("   GET  /api/stations/resolve      - free text to station (?q=)")
	log.Println("   GET  /api/schedule/:station     - departure board")
	log.Println("   GET  /api/route                 - earliest arrival (?from=&to=&time=)")
	log.Println("   POST /api/admin/login           - admin token")
	log.Println("   POST /api/admin/reload          - rebuild snapshot from storage")
	log.Println("   POST /api/admin/refresh         - scrape, store and reload")
	if cfg.Debug.Dashboard {
		log.Println("   WS   /ws/debug                  - live dashboard")
	}
	log.Println("💡 Press Ctrl+C to stop")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
	log.Println("✅ Server closed")
}
