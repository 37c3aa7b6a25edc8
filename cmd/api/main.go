package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/capturegame/capture/internal/adapters/http"
	natsadapter "github.com/capturegame/capture/internal/adapters/nats"
	"github.com/capturegame/capture/internal/adapters/postgres"
	"github.com/capturegame/capture/internal/adapters/valkey"
	"github.com/capturegame/capture/internal/core/ports"
	"github.com/capturegame/capture/internal/core/usecases"
	"github.com/capturegame/capture/internal/pkg/config"
	"github.com/capturegame/capture/internal/pkg/logging"
	"github.com/capturegame/capture/internal/pkg/telemetry"
	"github.com/capturegame/capture/internal/seeds"
)

func main() {
	cfg, err := config.Load("capture-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup("capture-api", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache. The interface stays nil when valkey is down so the
	// services' cache guards see an absent cache, not a typed nil.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, serving without cache", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS publisher (JetStream)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	// Raw NATS connection for the WebSocket relay and live position feeds
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats raw conn: %v", err)
	}
	defer natsConn.Close()

	// Repos
	territoryRepo := postgres.NewTerritoryRepo(db.Pool)
	runRepo := postgres.NewRunRepo(db.Pool)
	userRepo := postgres.NewUserRepo(db.Pool)
	couponRepo := postgres.NewCouponRepo(db.Pool)

	// Use cases
	territorySvc := usecases.NewTerritoryService(territoryRepo, seeds.BrandTerritories(), cacheSvc, pub)
	userSvc := usecases.NewUserService(userRepo, territoryRepo)
	runSvc := usecases.NewRunService(runRepo)
	leaderboardSvc := usecases.NewLeaderboardService(territoryRepo, cacheSvc)
	rewardSvc := usecases.NewRewardService(couponRepo, nil)
	presenceSvc := usecases.NewPresenceService(cacheSvc)
	source := natsadapter.NewPositionSource(natsConn)
	captureSvc := usecases.NewCaptureService(source, territorySvc, runRepo, userSvc, pub)

	deps := &http.Dependencies{
		Users:       userSvc,
		Territories: territorySvc,
		Runs:        runSvc,
		Capture:     captureSvc,
		Leaderboard: leaderboardSvc,
		Rewards:     rewardSvc,
		Presence:    presenceSvc,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Capture API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
