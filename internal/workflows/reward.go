package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RewardInput is the input for the reward workflow.
type RewardInput struct {
	UserID         string
	TerritoryID    string
	ZoneID         string
	Brand          string
	OverlapAreaKm2 float64
}

// RewardWorkflow orchestrates issuing a brand coupon for a sponsored
// capture and pushing it to the player. If the notification fails, the
// coupon is deleted (saga compensation).
func RewardWorkflow(ctx workflow.Context, input RewardInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reward workflow", "brand", input.Brand, "overlapKm2", input.OverlapAreaKm2)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Issue a coupon for the captured zone
	var code string
	err := workflow.ExecuteActivity(ctx, "IssueCoupon", input).Get(ctx, &code)
	if err != nil {
		return err
	}

	// Step 2: Push the coupon to the player
	err = workflow.ExecuteActivity(ctx, "SendCouponPush", input.UserID, code).Get(ctx, nil)
	if err != nil {
		logger.Warn("push notification failed, compensating", "error", err)
		// Compensate: delete the coupon
		_ = workflow.ExecuteActivity(ctx, "DeleteCoupon", code).Get(ctx, nil)
		return err
	}

	logger.Info("Reward sent successfully", "code", code)
	return nil
}
