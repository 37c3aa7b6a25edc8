package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/capturegame/capture/internal/core/domain"
)

// CouponRepo implements ports.CouponRepository with pgx.
type CouponRepo struct {
	db Querier
}

// NewCouponRepo creates a new CouponRepo.
func NewCouponRepo(db Querier) *CouponRepo {
	return &CouponRepo{db: db}
}

// Create inserts a coupon.
func (r *CouponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO coupons (id, user_id, territory_id, brand, code, discount, description, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.UserID, c.TerritoryID, c.Brand, c.Code, c.Discount, c.Description, c.IssuedAt, c.ExpiresAt)
	return err
}

// GetByCode returns a coupon by its redemption code.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, territory_id, brand, code, discount, COALESCE(description, ''), issued_at, expires_at, redeemed_at
		FROM coupons WHERE code = $1
	`, code).Scan(
		&c.ID, &c.UserID, &c.TerritoryID, &c.Brand, &c.Code,
		&c.Discount, &c.Description, &c.IssuedAt, &c.ExpiresAt, &c.RedeemedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Redeem marks a coupon as used. Expired or already redeemed coupons
// are treated as not found.
func (r *CouponRepo) Redeem(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE coupons SET redeemed_at = $2
		WHERE code = $1 AND redeemed_at IS NULL AND expires_at > $2
	`, code, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

// Delete removes a coupon by code.
func (r *CouponRepo) Delete(ctx context.Context, code string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM coupons WHERE code = $1`, code)
	return err
}
