package usecases

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
)

// couponValidity is how long an issued brand coupon can be redeemed.
const couponValidity = 72 * time.Hour

// RewardService issues and redeems brand coupons for captures that
// overlap sponsored zones.
type RewardService struct {
	coupons  ports.CouponRepository
	notifier ports.NotificationService
}

// NewRewardService creates a new RewardService.
func NewRewardService(coupons ports.CouponRepository, notifier ports.NotificationService) *RewardService {
	return &RewardService{coupons: coupons, notifier: notifier}
}

// Issue creates a coupon for a sponsored capture.
func (s *RewardService) Issue(ctx context.Context, ev *domain.SponsoredCapture) (*domain.Coupon, error) {
	code, err := couponCode(ev.Reward.Code)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	coupon := &domain.Coupon{
		ID:          uuid.NewString(),
		UserID:      ev.UserID,
		TerritoryID: ev.TerritoryID,
		Brand:       ev.Brand,
		Code:        code,
		Discount:    ev.Reward.Discount,
		Description: ev.Reward.Description,
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(couponValidity),
	}

	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

// Notify sends the coupon to the user. Best-effort push; the coupon
// already exists.
func (s *RewardService) Notify(ctx context.Context, coupon *domain.Coupon) error {
	if s.notifier == nil {
		return nil
	}
	title := fmt.Sprintf("You captured a %s zone!", coupon.Brand)
	body := fmt.Sprintf("%s %s. Use code %s within 72 hours.",
		coupon.Discount, coupon.Description, coupon.Code)
	return s.notifier.SendPush(ctx, coupon.UserID, title, body)
}

// Redeem marks a coupon as used.
func (s *RewardService) Redeem(ctx context.Context, code string) error {
	return s.coupons.Redeem(ctx, code)
}

// Revoke deletes a coupon (saga rollback when notification fails).
func (s *RewardService) Revoke(ctx context.Context, code string) error {
	return s.coupons.Delete(ctx, code)
}

// GetByCode fetches a coupon for display.
func (s *RewardService) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return s.coupons.GetByCode(ctx, code)
}

func couponCode(promo string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return promo + "-" + hex.EncodeToString(b), nil
}
