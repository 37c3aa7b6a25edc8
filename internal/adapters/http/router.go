package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/capturegame/capture/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Live fixes arrive
	// at roughly 1/s, so the ceiling leaves room for map refreshes.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Post("/users", timeout.NewWithContext(CreateUserHandler(deps), 15*time.Second))
	v1.Get("/users/:id", timeout.NewWithContext(GetUserHandler(deps), 15*time.Second))
	v1.Put("/users/:id/preferences", timeout.NewWithContext(UpdatePreferencesHandler(deps), 15*time.Second))
	v1.Get("/users/:id/stats", timeout.NewWithContext(UserStatsHandler(deps), 15*time.Second))
	v1.Get("/users/:id/runs", timeout.NewWithContext(ListRunsHandler(deps), 15*time.Second))

	v1.Get("/territories", timeout.NewWithContext(ListTerritoriesHandler(deps), 15*time.Second))
	v1.Get("/territories/nearby", timeout.NewWithContext(NearbyTerritoriesHandler(deps), 15*time.Second))
	v1.Post("/territories/overlaps", timeout.NewWithContext(FindOverlapsHandler(deps), 15*time.Second))
	v1.Get("/territories/:id", timeout.NewWithContext(GetTerritoryHandler(deps), 15*time.Second))
	v1.Put("/territories/:id/claim", timeout.NewWithContext(ClaimTerritoryHandler(deps), 15*time.Second))
	v1.Delete("/territories/:id", timeout.NewWithContext(DeleteTerritoryHandler(deps), 15*time.Second))

	v1.Get("/leaderboard", timeout.NewWithContext(LeaderboardHandler(deps), 15*time.Second))

	// Capture sessions. Stop is classification plus persistence, so it
	// shares the standard timeout; fixes are fire-and-forget.
	v1.Post("/capture/start", timeout.NewWithContext(StartCaptureHandler(deps), 15*time.Second))
	v1.Post("/capture/fix", timeout.NewWithContext(IngestFixHandler(deps), 15*time.Second))
	v1.Get("/capture/status", timeout.NewWithContext(CaptureStatusHandler(deps), 15*time.Second))
	v1.Get("/capture/position", timeout.NewWithContext(LastPositionHandler(deps), 15*time.Second))
	v1.Post("/capture/stop", timeout.NewWithContext(StopCaptureHandler(deps), 15*time.Second))
	v1.Post("/capture/cancel", timeout.NewWithContext(CancelCaptureHandler(deps), 15*time.Second))

	v1.Get("/coupons/:code", timeout.NewWithContext(GetCouponHandler(deps), 15*time.Second))
	v1.Post("/coupons/:code/redeem", timeout.NewWithContext(RedeemCouponHandler(deps), 15*time.Second))

	v1.Get("/stats", timeout.NewWithContext(GameStatsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
