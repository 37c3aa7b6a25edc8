package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
	"github.com/capturegame/capture/internal/pkg/geodesy"
	"github.com/capturegame/capture/internal/pkg/geometry"
	"github.com/capturegame/capture/internal/pkg/metrics"
)

const territoryListKey = "territories:all"

// TerritoryService is the authoritative territory map: persisted user
// territories plus the injected brand seed catalog. It answers overlap
// queries against that set and applies ownership transfers.
type TerritoryService struct {
	territories ports.TerritoryRepository
	seeds       []domain.Territory
	cache       ports.CacheService
	publisher   ports.EventPublisher
}

// NewTerritoryService creates a new TerritoryService. seeds is the
// read-only sponsored zone catalog loaded at startup.
func NewTerritoryService(
	territories ports.TerritoryRepository,
	seeds []domain.Territory,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *TerritoryService {
	return &TerritoryService{
		territories: territories,
		seeds:       seeds,
		cache:       cache,
		publisher:   publisher,
	}
}

// ListAll returns the union of persisted territories and brand seeds,
// persisted first, each set in its own insertion order.
func (s *TerritoryService) ListAll(ctx context.Context) ([]domain.Territory, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, territoryListKey); err == nil {
			var cached []domain.Territory
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("territories").Inc()
				return cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("territories").Inc()
	}

	persisted, err := s.territories.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}

	all := make([]domain.Territory, 0, len(persisted)+len(s.seeds))
	all = append(all, persisted...)
	all = append(all, s.seeds...)

	// Claims and captures invalidate this key, so a short TTL is only
	// a safety net.
	if s.cache != nil {
		if data, err := json.Marshal(all); err == nil {
			_ = s.cache.Set(ctx, territoryListKey, data, 60)
		}
	}
	return all, nil
}

// ListByUser returns one user's persisted territories.
func (s *TerritoryService) ListByUser(ctx context.Context, userID string) ([]domain.Territory, error) {
	return s.territories.List(ctx, userID)
}

// Get returns a territory by id, checking the seed catalog as well.
func (s *TerritoryService) Get(ctx context.Context, id string) (*domain.Territory, error) {
	for i := range s.seeds {
		if s.seeds[i].ID == id {
			t := s.seeds[i]
			return &t, nil
		}
	}
	return s.territories.GetByID(ctx, id)
}

// FindOverlaps intersects the candidate ring against every territory
// on the map and returns the ones with a non-empty overlap, annotated
// with the overlap area, in iteration order over the set. A malformed
// stored ring is logged and skipped; one bad record never aborts the
// scan.
func (s *TerritoryService) FindOverlaps(ctx context.Context, candidate domain.Ring) ([]domain.Overlap, error) {
	candidatePoly, err := geometry.FromRing(candidate)
	if err != nil {
		return nil, fmt.Errorf("candidate ring: %w", err)
	}

	existing, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	metrics.OverlapScans.Inc()
	var overlaps []domain.Overlap
	for _, t := range existing {
		poly, err := geometry.FromRing(t.Ring)
		if err != nil {
			slog.Warn("skipping malformed territory ring", "territory_id", t.ID, "error", err)
			metrics.OverlapSkips.Inc()
			continue
		}
		area, ok, err := geometry.Intersection(candidatePoly, poly)
		if err != nil {
			slog.Warn("territory intersection failed", "territory_id", t.ID, "error", err)
			metrics.OverlapSkips.Inc()
			continue
		}
		if !ok {
			continue
		}
		overlaps = append(overlaps, domain.Overlap{Territory: t, OverlapAreaKm2: area})
	}
	return overlaps, nil
}

// FindNearby returns territories within radiusMeters of a point:
// persisted ones from the spatial index, seeds by vertex proximity.
func (s *TerritoryService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	nearby, err := s.territories.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("find nearby territories: %w", err)
	}

	center := domain.GeoPoint{Lat: lat, Lon: lon}
	for _, seed := range s.seeds {
		if len(nearby) >= limit {
			break
		}
		vertices := make([]domain.GeoPoint, 0, len(seed.Ring))
		for _, pos := range seed.Ring {
			vertices = append(vertices, domain.GeoPoint{Lat: pos[1], Lon: pos[0]})
		}
		near, err := geodesy.NearPath(vertices, center, radiusMeters/1000)
		if err == nil && near {
			nearby = append(nearby, seed)
		}
	}
	return nearby, nil
}

// Create persists a newly captured territory and invalidates the
// cached map so every consumer re-fetches the authoritative state.
func (s *TerritoryService) Create(ctx context.Context, t *domain.Territory) error {
	if err := s.territories.Create(ctx, t); err != nil {
		return fmt.Errorf("create territory: %w", err)
	}
	s.invalidate(ctx)
	if s.publisher != nil {
		_ = s.publisher.PublishTerritoryCreated(ctx, t)
	}
	return nil
}

// Claim transfers ownership of a territory: owner and color swap,
// geometry untouched. Last writer wins; there is no version check on
// the claim. Unknown ids fail with domain.ErrTerritoryNotFound and
// leave the store unchanged.
func (s *TerritoryService) Claim(ctx context.Context, id, newOwnerID, newColor string) (*domain.Territory, error) {
	// Fetch before the update so the result does not depend on a
	// second read after the row already changed hands.
	claimed, err := s.territories.GetByID(ctx, id)
	if err != nil {
		metrics.Claims.WithLabelValues("failed").Inc()
		return nil, err
	}

	if err := s.territories.Claim(ctx, id, newOwnerID, newColor); err != nil {
		metrics.Claims.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.Claims.WithLabelValues("ok").Inc()
	s.invalidate(ctx)

	claimed.UserID = newOwnerID
	claimed.Color = newColor
	if s.publisher != nil {
		_ = s.publisher.PublishTerritoryClaimed(ctx, claimed)
	}
	return claimed, nil
}

// Delete removes a persisted territory.
func (s *TerritoryService) Delete(ctx context.Context, id string) error {
	if err := s.territories.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *TerritoryService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, territoryListKey)
	}
}
