package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
)

const kmPerMile = 1.609344

// UserService handles players and their preferences. It implements
// ports.PreferenceProvider for the capture engine.
type UserService struct {
	users       ports.UserRepository
	territories ports.TerritoryRepository
}

// NewUserService creates a new UserService.
func NewUserService(users ports.UserRepository, territories ports.TerritoryRepository) *UserService {
	return &UserService{users: users, territories: territories}
}

// Create registers a new user. Emails are unique.
func (s *UserService) Create(ctx context.Context, email, displayName string, prefs *domain.Preferences) (*domain.User, error) {
	if email == "" || displayName == "" {
		return nil, fmt.Errorf("email and display_name are required")
	}
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.ErrEmailTaken
	}

	u := &domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		Preferences: domain.DefaultPreferences(),
		CreatedAt:   time.Now(),
	}
	if prefs != nil {
		u.Preferences = *prefs
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID returns a single user.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdatePreferences replaces a user's preferences.
func (s *UserService) UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error {
	return s.users.UpdatePreferences(ctx, id, prefs)
}

// PreferencesFor implements ports.PreferenceProvider.
func (s *UserService) PreferencesFor(ctx context.Context, userID string) (domain.Preferences, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Preferences{}, err
	}
	return u.Preferences, nil
}

// UserStats aggregates a user's captured territories for display.
type UserStats struct {
	Territories   int    `json:"territories"`
	TotalDistance string `json:"total_distance"`
	TotalTime     string `json:"total_time"`
}

// Stats returns display-formatted totals over a user's territories,
// using the user's configured distance unit.
func (s *UserService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	territories, err := s.territories.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}

	var distKm float64
	var seconds int
	for _, t := range territories {
		distKm += t.DistanceKm
		seconds += t.DurationSec
	}

	return &UserStats{
		Territories:   len(territories),
		TotalDistance: FormatDistance(distKm, u.Preferences.Unit),
		TotalTime:     FormatDuration(seconds),
	}, nil
}

// FormatDistance renders kilometers in the given display unit.
func FormatDistance(km float64, unit string) string {
	if unit == "miles" {
		return fmt.Sprintf("%.2f mi", km/kmPerMile)
	}
	return fmt.Sprintf("%.2f km", km)
}

// FormatDuration renders seconds as mm:ss.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
