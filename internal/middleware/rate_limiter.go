package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// ============================================================================
// RATE LIMITING
// ============================================================================

func limitReached(message string, retryAfter time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "rate limit exceeded",
			"message":     message,
			"retry_after": int(retryAfter.Seconds()),
		})
	}
}

// APIRateLimiter limits the public query endpoints to max requests per
// minute per IP. max <= 0 disables limiting.
func APIRateLimiter(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached:      limitReached("too many requests, try again in a minute", time.Minute),
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

// AuthRateLimiter protects the admin login against brute force.
func AuthRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		},
		LimitReached:      limitReached("too many login attempts, try again in a minute", time.Minute),
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

// ScrapeRateLimiter guards the timetable refresh, which fetches every
// station page from the operator's site.
func ScrapeRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        2,
		Expiration: 5 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "scrape"
		},
		LimitReached:      limitReached("a timetable refresh ran recently, try again in 5 minutes", 5*time.Minute),
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
