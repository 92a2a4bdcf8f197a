package handlers

import (
	"fmt"
	"time"

	"github.com/yourorg/kharkivmetro/internal/cache"
	"github.com/yourorg/kharkivmetro/internal/itinerary"
	"github.com/yourorg/kharkivmetro/internal/metro"
)

// RouteCache keeps formatted itineraries in an LRU with a TTL. Keys start
// with the snapshot version, so entries from an older snapshot are never
// served.
type RouteCache struct {
	c *cache.Cache[itinerary.Record]
}

// NewRouteCache builds the cache. ttl <= 0 keeps entries until evicted.
func NewRouteCache(ttl time.Duration, size int) *RouteCache {
	return &RouteCache{c: cache.New[itinerary.Record](size, ttl)}
}

// RouteKey identifies one planning request against one snapshot version.
type RouteKey struct {
	Version     string
	Origin      metro.StationID
	Destination metro.StationID
	DayType     metro.DayType
	Start       metro.TimeOfDay
	Language    metro.Language
	Compact     bool
}

func (k RouteKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s|%t", k.Version, k.Origin, k.Destination, k.DayType, int(k.Start), k.Language, k.Compact)
}

// Get returns a cached record.
func (rc *RouteCache) Get(k RouteKey) (itinerary.Record, bool) {
	return rc.c.Get(k.String())
}

// Set stores rec under k.
func (rc *RouteCache) Set(k RouteKey, rec itinerary.Record) {
	rc.c.Set(k.String(), rec)
}

// Purge drops every entry. Called after a snapshot swap.
func (rc *RouteCache) Purge() {
	rc.c.Purge()
}

// Stats implements cache.StatsSource.
func (rc *RouteCache) Stats() cache.Stats {
	return rc.c.Stats()
}
