package middleware

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/kharkivmetro/internal/debug"
)

var requests atomic.Int64

// Requests is the number of requests served since start.
func Requests() int64 { return requests.Load() }

// DashboardLogger counts requests and, when the dashboard is enabled,
// streams one log line per request to it.
func DashboardLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requests.Add(1)
		if !debug.IsEnabled() {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		level := "info"
		if status >= 500 {
			level = "error"
		} else if status >= 400 {
			level = "warn"
		}

		path := c.Path()
		source := "backend"
		if strings.HasPrefix(path, "/api/admin") {
			source = "admin"
		}

		debug.SendLog(source, level, fmt.Sprintf("%s %s", c.Method(), path), map[string]interface{}{
			"method":      c.Method(),
			"path":        path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
		})
		return err
	}
}
