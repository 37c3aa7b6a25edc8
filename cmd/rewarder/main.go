package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/capturegame/capture/internal/adapters/nats"
	"github.com/capturegame/capture/internal/adapters/postgres"
	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/usecases"
	"github.com/capturegame/capture/internal/pkg/config"
	"github.com/capturegame/capture/internal/pkg/logging"
	"github.com/capturegame/capture/internal/workflows"
)

// logPushNotifier stands in for a push gateway; every notification is
// written to the log.
type logPushNotifier struct{}

func (logPushNotifier) SendPush(ctx context.Context, userID, title, body string) error {
	slog.Info("push notification", "user_id", userID, "title", title, "body", body)
	return nil
}

func main() {
	cfg, err := config.Load("capture-rewarder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("capture-rewarder", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rewardSvc := usecases.NewRewardService(postgres.NewCouponRepo(db.Pool), logPushNotifier{})

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.RewardWorkflow)
	w.RegisterActivity(&workflows.RewardActivities{Rewards: rewardSvc})

	// Sponsored capture events start one reward workflow per zone hit.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeSponsoredCaptures(ctx, func(ctx context.Context, ev *domain.SponsoredCapture) error {
		opts := client.StartWorkflowOptions{
			ID:        "reward-" + ev.TerritoryID + "-" + ev.ZoneID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}
		_, err := c.ExecuteWorkflow(ctx, opts, workflows.RewardWorkflow, workflows.RewardInput{
			UserID:         ev.UserID,
			TerritoryID:    ev.TerritoryID,
			ZoneID:         ev.ZoneID,
			Brand:          ev.Brand,
			OverlapAreaKm2: ev.OverlapAreaKm2,
		})
		if err != nil {
			slog.Error("start reward workflow", "error", err, "territory_id", ev.TerritoryID)
			return err
		}
		slog.Info("reward workflow started", "user_id", ev.UserID, "brand", ev.Brand)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe sponsored captures: %v", err)
	}

	log.Println("rewarder worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
