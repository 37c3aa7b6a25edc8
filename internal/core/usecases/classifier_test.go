package usecases_test

import (
	"testing"
	"time"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/usecases"
)

// closedSquarePath is a ~111m square near Bangalore whose last point
// returns to within ~11m of the start.
func closedSquarePath() []domain.GeoPoint {
	return []domain.GeoPoint{
		{Lat: 12.9000, Lon: 77.5980},
		{Lat: 12.9000, Lon: 77.5990},
		{Lat: 12.9010, Lon: 77.5990},
		{Lat: 12.9010, Lon: 77.5980},
		{Lat: 12.9001, Lon: 77.5980},
	}
}

func pathOf(points []domain.GeoPoint, distKm float64, dur time.Duration) domain.Path {
	return domain.Path{Points: points, DistanceKm: distKm, Duration: dur}
}

func TestClassify_InsufficientPoints(t *testing.T) {
	path := pathOf([]domain.GeoPoint{
		{Lat: 12.9000, Lon: 77.5980},
		{Lat: 12.9005, Lon: 77.5985},
		{Lat: 12.9010, Lon: 77.5980},
	}, 0.25, 90*time.Second)

	result := usecases.Classify(path, "u1", "Morning Run", "#EF4444", time.Now())

	if result.Outcome != domain.OutcomeInsufficientPoints {
		t.Fatalf("outcome = %s, want insufficient_points", result.Outcome)
	}
	if result.Message != "Run Saved! Need more points for territory." {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.Territory != nil {
		t.Error("territory set on a run outcome")
	}
	if result.Run == nil {
		t.Fatal("run not set")
	}
	if result.Run.UserID != "u1" || len(result.Run.Points) != 3 {
		t.Errorf("run = %+v, want user u1 with 3 points", result.Run)
	}
	if result.Run.DistanceKm != 0.25 || result.Run.DurationSec != 90 {
		t.Errorf("run totals = %v km / %d s, want 0.25 / 90", result.Run.DistanceKm, result.Run.DurationSec)
	}
}

func TestClassify_SelfIntersectingPath(t *testing.T) {
	// Figure eight over ~100m.
	path := pathOf([]domain.GeoPoint{
		{Lat: 12.9000, Lon: 77.5980},
		{Lat: 12.9010, Lon: 77.5990},
		{Lat: 12.9000, Lon: 77.5990},
		{Lat: 12.9010, Lon: 77.5980},
	}, 0.4, 3*time.Minute)

	result := usecases.Classify(path, "u1", "", "#EF4444", time.Now())

	if result.Outcome != domain.OutcomeNonSimplePolygon {
		t.Fatalf("outcome = %s, want non_simple_polygon", result.Outcome)
	}
	if result.Run == nil || result.Territory != nil {
		t.Error("self-intersecting path must degrade to a run")
	}
}

func TestClassify_LoopNotClosed(t *testing.T) {
	// A valid square whose endpoints sit ~111m apart, far past the
	// 50m closure tolerance.
	path := pathOf([]domain.GeoPoint{
		{Lat: 12.9000, Lon: 77.5980},
		{Lat: 12.9000, Lon: 77.5990},
		{Lat: 12.9010, Lon: 77.5990},
		{Lat: 12.9010, Lon: 77.5980},
	}, 0.33, 2*time.Minute)

	result := usecases.Classify(path, "u1", "", "#EF4444", time.Now())

	if result.Outcome != domain.OutcomeLoopNotClosed {
		t.Fatalf("outcome = %s, want loop_not_closed", result.Outcome)
	}
	if result.Message != "Run Saved! Return to start point to claim territory." {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.Run == nil {
		t.Fatal("run not set")
	}
}

func TestClassify_AreaTooSmall(t *testing.T) {
	// A closed ~5.5m square: well under the 100m2 floor, endpoints
	// within closure tolerance.
	path := pathOf([]domain.GeoPoint{
		{Lat: 12.90000, Lon: 77.59800},
		{Lat: 12.90000, Lon: 77.59805},
		{Lat: 12.90005, Lon: 77.59805},
		{Lat: 12.90005, Lon: 77.59800},
	}, 0.022, time.Minute)

	result := usecases.Classify(path, "u1", "", "#EF4444", time.Now())

	if result.Outcome != domain.OutcomeAreaTooSmall {
		t.Fatalf("outcome = %s, want area_too_small", result.Outcome)
	}
	if result.Run == nil || result.Territory != nil {
		t.Error("tiny loop must degrade to a run")
	}
}

func TestClassify_Success(t *testing.T) {
	now := time.Now()
	path := pathOf(closedSquarePath(), 0.45, 4*time.Minute)

	result := usecases.Classify(path, "u1", "Lalbagh Loop", "#3B82F6", now)

	if result.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", result.Outcome)
	}
	if result.Message != "Territory Claimed!" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.Run != nil {
		t.Error("run set on a success outcome")
	}
	tr := result.Territory
	if tr == nil {
		t.Fatal("territory not set")
	}
	if tr.UserID != "u1" || tr.Name != "Lalbagh Loop" || tr.Color != "#3B82F6" {
		t.Errorf("territory = %+v, want u1 / Lalbagh Loop / #3B82F6", tr)
	}
	if tr.ID == "" {
		t.Error("territory id not assigned")
	}
	if !tr.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", tr.CreatedAt, now)
	}

	// The stored ring is the path closed back to its first vertex.
	if len(tr.Ring) != len(path.Points)+1 {
		t.Fatalf("ring has %d positions, want %d", len(tr.Ring), len(path.Points)+1)
	}
	if tr.Ring[0] != tr.Ring[len(tr.Ring)-1] {
		t.Error("stored ring is not closed")
	}

	// ~111m square is ~0.0124 km2.
	if tr.AreaKm2 < 0.011 || tr.AreaKm2 > 0.014 {
		t.Errorf("area = %v km2, want ~0.0124", tr.AreaKm2)
	}
	if tr.DistanceKm != 0.45 || tr.DurationSec != 240 {
		t.Errorf("totals = %v km / %d s, want 0.45 / 240", tr.DistanceKm, tr.DurationSec)
	}
}

func TestClassify_RunIDsAreUnique(t *testing.T) {
	path := pathOf([]domain.GeoPoint{{Lat: 1, Lon: 1}}, 0, time.Second)

	a := usecases.Classify(path, "u1", "", "", time.Now())
	b := usecases.Classify(path, "u1", "", "", time.Now())
	if a.Run.ID == b.Run.ID {
		t.Error("two classified runs share an id")
	}
}
