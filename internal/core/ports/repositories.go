package ports

import (
	"context"

	"github.com/capturegame/capture/internal/core/domain"
)

// TerritoryRepository persists captured territories. Brand seed zones
// are not stored here; the TerritoryService merges them in.
type TerritoryRepository interface {
	Create(ctx context.Context, t *domain.Territory) error
	// List returns territories in insertion order. An empty userID
	// returns every user's territories.
	List(ctx context.Context, userID string) ([]domain.Territory, error)
	GetByID(ctx context.Context, id string) (*domain.Territory, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error)
	// Claim swaps owner and color without touching geometry. Returns
	// domain.ErrTerritoryNotFound for unknown ids.
	Claim(ctx context.Context, id, newOwnerID, newColor string) error
	Delete(ctx context.Context, id string) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// RunRepository persists non-territory runs.
type RunRepository interface {
	Create(ctx context.Context, r *domain.Run) error
	ListByUser(ctx context.Context, userID string) ([]domain.Run, error)
}

// UserRepository persists players and their preferences.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error
}

// CouponRepository persists brand reward coupons.
type CouponRepository interface {
	Create(ctx context.Context, c *domain.Coupon) error
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	Redeem(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
}
