package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
	"github.com/capturegame/capture/internal/pkg/metrics"
)

// pointsPerTerritory is the scoring weight for the leaderboard.
const pointsPerTerritory = 100

// LeaderboardService ranks users by captured territory count.
type LeaderboardService struct {
	territories ports.TerritoryRepository
	cache       ports.CacheService
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(territories ports.TerritoryRepository, cache ports.CacheService) *LeaderboardService {
	return &LeaderboardService{territories: territories, cache: cache}
}

// Top returns the highest-ranked users with their aggregate area,
// distance, and points.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("leaderboard:top:%d", limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var entries []domain.LeaderboardEntry
			if err := json.Unmarshal(data, &entries); err == nil {
				metrics.CacheHits.WithLabelValues("leaderboard").Inc()
				return entries, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("leaderboard").Inc()
	}

	entries, err := s.territories.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Points = entries[i].Territories * pointsPerTerritory
	}

	// Rankings tolerate a minute of staleness.
	if s.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return entries, nil
}
