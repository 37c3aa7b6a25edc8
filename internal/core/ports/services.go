package ports

import (
	"context"

	"github.com/capturegame/capture/internal/core/domain"
)

// Subscription is a live position feed handle. Unsubscribe must be
// safe to call on every session exit path, including error paths.
type Subscription interface {
	Unsubscribe() error
}

// PositionSource delivers live position fixes for a user. Fix handlers
// are invoked asynchronously; callers are responsible for serializing
// their processing.
type PositionSource interface {
	Subscribe(ctx context.Context, userID string, handler func(fix domain.PositionFix)) (Subscription, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPositionFix(ctx context.Context, fix *domain.PositionFix) error
	PublishTerritoryCreated(ctx context.Context, t *domain.Territory) error
	PublishTerritoryClaimed(ctx context.Context, t *domain.Territory) error
	PublishRunSaved(ctx context.Context, r *domain.Run) error
	PublishSponsoredCapture(ctx context.Context, ev *domain.SponsoredCapture) error
}

// EventSubscriber consumes domain events from a message broker.
type EventSubscriber interface {
	SubscribePositionFixes(ctx context.Context, handler func(ctx context.Context, fix *domain.PositionFix) error) error
	SubscribeSponsoredCaptures(ctx context.Context, handler func(ctx context.Context, ev *domain.SponsoredCapture) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PreferenceProvider supplies the active territory color and display
// units for a user. Read-only to the capture engine.
type PreferenceProvider interface {
	PreferencesFor(ctx context.Context, userID string) (domain.Preferences, error)
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, userID, title, body string) error
}
