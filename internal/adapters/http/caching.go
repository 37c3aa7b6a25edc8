package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case path == "/v1/capture/status":
			ttl = "no-store" // Live session state changes every second

		case strings.HasPrefix(path, "/v1/territories/nearby"):
			ttl = "public, max-age=30" // Short: the map shifts as captures land

		case strings.HasPrefix(path, "/v1/territories"):
			ttl = "public, max-age=15" // The shared map is the hot path

		case path == "/v1/leaderboard":
			ttl = "public, max-age=60"

		case strings.Contains(path, "/users/"):
			ttl = "private, max-age=60" // Per-user data

		case strings.Contains(path, "/coupons/"):
			ttl = "no-store" // Redemption state must never be stale

		case path == "/v1/stats":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60" // Default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
