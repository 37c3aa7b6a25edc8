package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
	"github.com/capturegame/capture/internal/pkg/geodesy"
	"github.com/capturegame/capture/internal/pkg/metrics"
)

// presenceTTLSeconds bounds how long a recorded fix counts as a live
// position. Fixes arrive at roughly 1/s during a session, so anything
// older than two minutes means the player went dark.
const presenceTTLSeconds = 120

// PresenceService keeps the last known position per user, fed by the
// tracker worker from the durable fix stream and read by the live map.
type PresenceService struct {
	cache ports.CacheService
}

// NewPresenceService creates a new PresenceService.
func NewPresenceService(cache ports.CacheService) *PresenceService {
	return &PresenceService{cache: cache}
}

// Record stores fix as the user's current position. Invalid
// coordinates are rejected so a corrupt fix never becomes presence.
func (s *PresenceService) Record(ctx context.Context, fix *domain.PositionFix) error {
	if fix.UserID == "" {
		return fmt.Errorf("record presence: missing user id")
	}
	if err := geodesy.Validate(fix.Location); err != nil {
		return fmt.Errorf("record presence: %w", err)
	}
	if s.cache == nil {
		return domain.ErrPersistenceUnavailable
	}

	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, presenceKey(fix.UserID), data, presenceTTLSeconds); err != nil {
		return fmt.Errorf("record presence: %w", err)
	}
	metrics.PresenceUpdates.Inc()
	return nil
}

// LastKnown returns the user's most recent position, or
// domain.ErrPresenceNotFound when none was recorded within the TTL.
func (s *PresenceService) LastKnown(ctx context.Context, userID string) (*domain.PositionFix, error) {
	if s.cache == nil {
		return nil, domain.ErrPresenceNotFound
	}

	data, err := s.cache.Get(ctx, presenceKey(userID))
	if err != nil || len(data) == 0 {
		return nil, domain.ErrPresenceNotFound
	}

	var fix domain.PositionFix
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, domain.ErrPresenceNotFound
	}
	return &fix, nil
}

func presenceKey(userID string) string {
	return "presence:" + userID
}
