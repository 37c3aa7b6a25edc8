package http

import (
	"github.com/nats-io/nats.go"

	"github.com/capturegame/capture/internal/adapters/postgres"
	"github.com/capturegame/capture/internal/adapters/valkey"
	"github.com/capturegame/capture/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Users       *usecases.UserService
	Territories *usecases.TerritoryService
	Runs        *usecases.RunService
	Capture     *usecases.CaptureService
	Leaderboard *usecases.LeaderboardService
	Rewards     *usecases.RewardService
	Presence    *usecases.PresenceService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
