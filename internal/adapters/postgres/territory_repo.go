package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/capturegame/capture/internal/core/domain"
)

// TerritoryRepo implements ports.TerritoryRepository with pgx.
//
// The ring is stored twice: as JSONB for lossless round-trips and as a
// PostGIS geography polygon for spatial queries.
type TerritoryRepo struct {
	db Querier
}

// NewTerritoryRepo creates a new TerritoryRepo.
func NewTerritoryRepo(db Querier) *TerritoryRepo {
	return &TerritoryRepo{db: db}
}

// Create inserts a territory.
func (r *TerritoryRepo) Create(ctx context.Context, t *domain.Territory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO territories (id, user_id, name, ring, boundary, color, area_km2, distance_km, duration_sec, sponsored, reward, created_at)
		VALUES ($1, $2, $3, $4, ST_GeogFromText($5), $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.UserID, t.Name, t.Ring, ringWKT(t.Ring), t.Color,
		t.AreaKm2, t.DistanceKm, t.DurationSec, t.Sponsored, t.Reward, t.CreatedAt)
	return err
}

const territoryColumns = `id, user_id, name, ring, color, area_km2, distance_km, duration_sec, sponsored, reward, created_at`

// List returns territories in insertion order. An empty userID returns
// every user's territories.
func (r *TerritoryRepo) List(ctx context.Context, userID string) ([]domain.Territory, error) {
	query := `SELECT ` + territoryColumns + ` FROM territories ORDER BY created_at`
	args := []any{}
	if userID != "" {
		query = `SELECT ` + territoryColumns + ` FROM territories WHERE user_id = $1 ORDER BY created_at`
		args = append(args, userID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTerritories(rows)
}

// GetByID returns a territory by id.
func (r *TerritoryRepo) GetByID(ctx context.Context, id string) (*domain.Territory, error) {
	var t domain.Territory
	err := r.db.QueryRow(ctx, `
		SELECT `+territoryColumns+` FROM territories WHERE id = $1
	`, id).Scan(
		&t.ID, &t.UserID, &t.Name, &t.Ring, &t.Color,
		&t.AreaKm2, &t.DistanceKm, &t.DurationSec, &t.Sponsored, &t.Reward, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTerritoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindNearby returns territories whose boundary lies within
// radiusMeters of the point, nearest first, using PostGIS ST_DWithin.
func (r *TerritoryRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+territoryColumns+`
		FROM territories
		WHERE ST_DWithin(boundary, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY ST_Distance(boundary, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTerritories(rows)
}

// Claim swaps owner and color, leaving geometry untouched.
func (r *TerritoryRepo) Claim(ctx context.Context, id, newOwnerID, newColor string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE territories SET user_id = $2, color = $3 WHERE id = $1
	`, id, newOwnerID, newColor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTerritoryNotFound
	}
	return nil
}

// Delete removes a territory.
func (r *TerritoryRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM territories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTerritoryNotFound
	}
	return nil
}

// Leaderboard aggregates non-sponsored territories per owner, most
// territories first; total area breaks ties.
func (r *TerritoryRepo) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.user_id,
		       COALESCE(u.display_name, t.user_id),
		       COALESCE(u.preferences->>'territory_color', '#EF4444'),
		       COUNT(*),
		       COALESCE(SUM(t.area_km2), 0),
		       COALESCE(SUM(t.distance_km), 0)
		FROM territories t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE NOT t.sponsored
		GROUP BY t.user_id, u.display_name, u.preferences
		ORDER BY COUNT(*) DESC, SUM(t.area_km2) DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(
			&e.UserID, &e.DisplayName, &e.Color,
			&e.Territories, &e.TotalAreaKm2, &e.TotalDistanceKm,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanTerritories(rows pgx.Rows) ([]domain.Territory, error) {
	var territories []domain.Territory
	for rows.Next() {
		var t domain.Territory
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Name, &t.Ring, &t.Color,
			&t.AreaKm2, &t.DistanceKm, &t.DurationSec, &t.Sponsored, &t.Reward, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		territories = append(territories, t)
	}
	return territories, rows.Err()
}

// ringWKT renders a closed ring as a WKT polygon for PostGIS.
func ringWKT(ring domain.Ring) string {
	parts := make([]string, len(ring))
	for i, pos := range ring {
		parts[i] = fmt.Sprintf("%g %g", pos[0], pos[1])
	}
	return "POLYGON((" + strings.Join(parts, ",") + "))"
}
