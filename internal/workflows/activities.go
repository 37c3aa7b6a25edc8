package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/usecases"
	"github.com/capturegame/capture/internal/seeds"
)

// RewardActivities holds the activity implementations for the reward workflow.
type RewardActivities struct {
	Rewards *usecases.RewardService
}

// IssueCoupon creates a coupon record and returns its code.
func (a *RewardActivities) IssueCoupon(ctx context.Context, input RewardInput) (string, error) {
	coupon, err := a.Rewards.Issue(ctx, &domain.SponsoredCapture{
		UserID:         input.UserID,
		TerritoryID:    input.TerritoryID,
		ZoneID:         input.ZoneID,
		Brand:          input.Brand,
		Reward:         seeds.RewardFor(input.Brand),
		OverlapAreaKm2: input.OverlapAreaKm2,
	})
	if err != nil {
		return "", fmt.Errorf("issue coupon: %w", err)
	}
	return coupon.Code, nil
}

// SendCouponPush pushes the coupon to the player.
func (a *RewardActivities) SendCouponPush(ctx context.Context, userID, code string) error {
	coupon, err := a.Rewards.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("load coupon %s: %w", code, err)
	}
	if err := a.Rewards.Notify(ctx, coupon); err != nil {
		return fmt.Errorf("push coupon %s: %w", code, err)
	}
	return nil
}

// DeleteCoupon removes a coupon (saga compensation / rollback).
func (a *RewardActivities) DeleteCoupon(ctx context.Context, code string) error {
	if err := a.Rewards.Revoke(ctx, code); err != nil {
		return fmt.Errorf("delete coupon %s: %w", code, err)
	}
	log.Printf("Coupon %s deleted (saga compensation)", code)
	return nil
}
