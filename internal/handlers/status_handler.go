package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/kharkivmetro/internal/cache"
	"github.com/yourorg/kharkivmetro/internal/calendar"
	"github.com/yourorg/kharkivmetro/internal/debug"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/models"
	"github.com/yourorg/kharkivmetro/internal/schedule"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

// StatusHandler reports what the service is serving right now.
type StatusHandler struct {
	manager   *snapshot.Manager
	caches    *cache.Registry
	loc       *time.Location
	startTime time.Time
	now       func() time.Time
}

func NewStatusHandler(manager *snapshot.Manager, caches *cache.Registry, loc *time.Location) *StatusHandler {
	return &StatusHandler{
		manager:   manager,
		caches:    caches,
		loc:       loc,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// MetroStatus says whether trains can still be boarded now.
type MetroStatus struct {
	DayType metro.DayType `json:"day_type"`
	Time    string        `json:"time"`
	Open    bool          `json:"open"`
	First   string        `json:"first_departure,omitempty"`
	Last    string        `json:"last_departure,omitempty"`
}

// SystemStatus is the body of GET /api/status.
type SystemStatus struct {
	Uptime      int64                  `json:"uptime"`
	Snapshot    *models.SnapshotInfo   `json:"snapshot,omitempty"`
	Metro       *MetroStatus           `json:"metro,omitempty"`
	LastRefresh string                 `json:"last_refresh,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	Caches      map[string]cache.Stats `json:"caches"`
	Dashboards  int                    `json:"dashboards"`
}

// GetStatus returns snapshot, open/closed and cache figures.
// GET /api/status
func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	status := SystemStatus{
		Uptime:     int64(time.Since(h.startTime).Seconds()),
		Caches:     map[string]cache.Stats{},
		Dashboards: debug.Hub.Clients(),
	}
	if h.caches != nil {
		status.Caches = h.caches.All()
	}
	st := h.manager.Status()
	if !st.LastRun.IsZero() {
		status.LastRefresh = st.LastRun.Format(time.RFC3339)
	}
	status.LastError = st.LastError

	if snap := h.manager.Store().Current(); snap != nil {
		info := SnapshotInfo(snap)
		status.Snapshot = &info
		day, tod := calendar.At(h.now(), h.loc)
		status.Metro = metroStatus(snap, day, tod)
	}
	return c.JSON(status)
}

// SnapshotInfo summarizes snap for API responses.
func SnapshotInfo(snap *snapshot.Snapshot) models.SnapshotInfo {
	return models.SnapshotInfo{
		Version:    snap.Version,
		Source:     snap.Source,
		LoadedAt:   snap.LoadedAt,
		Stations:   len(snap.Network.Stations()),
		Lines:      len(snap.Network.Lines()),
		Departures: snap.Index.Size(),
	}
}

// metroStatus is open when any station is within its service window. The
// window spans the earliest first and latest last departure of the day.
func metroStatus(snap *snapshot.Snapshot, day metro.DayType, tod metro.TimeOfDay) *MetroStatus {
	ms := &MetroStatus{DayType: day, Time: tod.String()}
	var (
		w     schedule.Window
		found bool
	)
	for _, st := range snap.Network.Stations() {
		sw, ok := snap.Index.ServiceWindow(snap.Network, st.ID, day)
		if !ok {
			continue
		}
		if !found || sw.First < w.First {
			w.First = sw.First
		}
		if !found || sw.Last > w.Last {
			w.Last = sw.Last
		}
		found = true
		if snap.Index.IsOpen(snap.Network, st.ID, day, tod) {
			ms.Open = true
		}
	}
	if found {
		ms.First = w.First.String()
		ms.Last = w.Last.String()
	}
	return ms
}
