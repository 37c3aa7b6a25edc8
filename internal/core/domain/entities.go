package domain

import (
	"time"
)

// Territory is a persisted, closed, simple polygon owned by a user or
// a sponsoring brand. Geometry is immutable after creation; a claim
// swaps the owner and color only.
type Territory struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Ring        Ring      `json:"coordinates"`
	Color       string    `json:"color"`
	AreaKm2     float64   `json:"area"`
	DistanceKm  float64   `json:"distance"`
	DurationSec int       `json:"duration"`
	Sponsored   bool      `json:"is_sponsored"`
	Reward      *Reward   `json:"reward,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reward is the prize metadata attached to a sponsored territory.
type Reward struct {
	Brand       string `json:"brand"`
	Discount    string `json:"discount"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Run is the persisted fallback record when a capture session's path
// does not qualify as a territory. Immutable after creation.
type Run struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Points      []GeoPoint `json:"points"`
	DistanceKm  float64    `json:"distance"`
	DurationSec int        `json:"duration"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Overlap pairs an existing territory with the area it shares with a
// candidate ring.
type Overlap struct {
	Territory      Territory `json:"territory"`
	OverlapAreaKm2 float64   `json:"overlap_area"`
}

// Preferences are per-user display settings. Read-only to the capture
// engine apart from the configured territory color.
type Preferences struct {
	Unit           string `json:"unit"`            // "km" or "miles"
	ActivityType   string `json:"activity_type"`   // "run" or "walk"
	TerritoryColor string `json:"territory_color"` // hex color
}

// DefaultPreferences returns the preferences assigned to new users.
func DefaultPreferences() Preferences {
	return Preferences{Unit: "km", ActivityType: "run", TerritoryColor: "#EF4444"}
}

// User is a registered player.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Coupon is a brand reward issued to a user after capturing ground
// inside a sponsored zone.
type Coupon struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TerritoryID string     `json:"territory_id"`
	Brand       string     `json:"brand"`
	Code        string     `json:"code"`
	Discount    string     `json:"discount"`
	Description string     `json:"description,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RedeemedAt  *time.Time `json:"redeemed_at,omitempty"`
}

// SponsoredCapture is emitted when a successful capture overlaps a
// brand zone; it drives the reward workflow.
type SponsoredCapture struct {
	UserID         string  `json:"user_id"`
	TerritoryID    string  `json:"territory_id"`
	ZoneID         string  `json:"zone_id"`
	Brand          string  `json:"brand"`
	Reward         Reward  `json:"reward"`
	OverlapAreaKm2 float64 `json:"overlap_area"`
}

// LeaderboardEntry is a computed ranking row.
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"user_id"`
	DisplayName     string  `json:"display_name"`
	Color           string  `json:"color"`
	Territories     int     `json:"territories"`
	TotalAreaKm2    float64 `json:"total_area"`
	TotalDistanceKm float64 `json:"total_distance"`
	Points          int     `json:"points"`
}
