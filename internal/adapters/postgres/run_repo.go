package postgres

import (
	"context"

	"github.com/capturegame/capture/internal/core/domain"
)

// RunRepo implements ports.RunRepository with pgx.
type RunRepo struct {
	db Querier
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db Querier) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts a run. Points are stored as JSONB.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO runs (id, user_id, points, distance_km, duration_sec, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.UserID, run.Points, run.DistanceKm, run.DurationSec, run.CreatedAt)
	return err
}

// ListByUser returns a user's runs, newest first.
func (r *RunRepo) ListByUser(ctx context.Context, userID string) ([]domain.Run, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, points, distance_km, duration_sec, created_at
		FROM runs WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(
			&run.ID, &run.UserID, &run.Points,
			&run.DistanceKm, &run.DurationSec, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
