package handlers

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

// Pinger is a storage backend that can report whether it answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health of the service.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version,omitempty"`
}

// HealthHandler checks storage and the loaded network.
type HealthHandler struct {
	db    Pinger
	store *snapshot.Store
}

// NewHealthHandler creates the handler. db may be nil when the service
// runs without a database.
func NewHealthHandler(db Pinger, store *snapshot.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// Health reports "healthy" or "degraded".
// GET /api/health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	services := make(map[string]string)
	overall := "healthy"

	// ============================================================================
	// CHECK: database
	// ============================================================================
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			overall = "degraded"
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "disabled"
	}

	// ============================================================================
	// CHECK: network snapshot
	// ============================================================================
	snap := h.store.Current()
	switch {
	case snap == nil:
		services["network"] = "not_loaded"
		overall = "degraded"
	case snap.Index.Size() == 0:
		services["network"] = "no_timetable"
		overall = "degraded"
	default:
		services["network"] = "healthy"
	}

	statusCode := fiber.StatusOK
	if overall == "degraded" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
		Version:   os.Getenv("APP_VERSION"),
	})
}
