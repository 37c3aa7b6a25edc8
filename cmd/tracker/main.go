package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/capturegame/capture/internal/adapters/nats"
	"github.com/capturegame/capture/internal/adapters/valkey"
	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/usecases"
	"github.com/capturegame/capture/internal/pkg/config"
	"github.com/capturegame/capture/internal/pkg/logging"
)

// The tracker is the realtime presence worker: it consumes the durable
// position fix stream and keeps each player's last known position in
// the cache, where the API serves it for the live map. Capture
// sessions themselves stay in the API process; the tracker only
// observes the fix stream.
func main() {
	cfg, err := config.Load("capture-tracker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("capture-tracker", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Presence lives in the cache only, so valkey is a hard dependency
	// here, unlike in the API.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	presence := usecases.NewPresenceService(cache)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribePositionFixes(ctx, func(ctx context.Context, fix *domain.PositionFix) error {
		if err := presence.Record(ctx, fix); err != nil {
			slog.Warn("record presence", "user_id", fix.UserID, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe position fixes: %v", err)
	}

	slog.Info("tracker worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("tracker stopping", "signal", sig.String())
}
