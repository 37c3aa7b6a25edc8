package usecases

import (
	"time"

	"github.com/google/uuid"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/pkg/geodesy"
	"github.com/capturegame/capture/internal/pkg/geometry"
)

// Fixed constants of the capture design. Not configurable.
const (
	// minTerritoryVertices is the fewest path vertices that can
	// enclose non-zero area as a simple polygon.
	minTerritoryVertices = 4

	// noiseFilterKm is the minimum displacement (5 m) between
	// consecutive accepted fixes.
	noiseFilterKm = 0.005

	// loopToleranceKm is how close (50 m) the path's first and last
	// points must be for the loop to count as closed.
	loopToleranceKm = 0.05

	// minTerritoryAreaKm2 is the smallest claimable territory (100 m²).
	minTerritoryAreaKm2 = 0.0001
)

// Classify converts a finished path into exactly one Territory or Run.
// It runs once, at the explicit end of a capture; closure is never
// auto-detected mid-run, so an out-and-back path that happens to cross
// itself cannot claim ground by accident. Rules apply in order:
// vertex count, polygon validity, loop closure, minimum area. Any rule
// failure degrades to a Run, never to data loss.
func Classify(path domain.Path, userID, name, color string, now time.Time) domain.CaptureResult {
	run := &domain.Run{
		ID:          uuid.NewString(),
		UserID:      userID,
		Points:      path.Points,
		DistanceKm:  path.DistanceKm,
		DurationSec: int(path.Duration.Seconds()),
		CreatedAt:   now,
	}

	asRun := func(outcome domain.ClassificationOutcome) domain.CaptureResult {
		return domain.CaptureResult{Outcome: outcome, Message: outcome.Message(), Run: run}
	}

	if len(path.Points) < minTerritoryVertices {
		return asRun(domain.OutcomeInsufficientPoints)
	}

	ring := domain.CloseRing(path.Points)

	poly, err := geometry.FromRing(ring)
	if err != nil {
		return asRun(domain.OutcomeNonSimplePolygon)
	}

	// Closure is judged on the original endpoints, not the ring we
	// closed artificially above.
	first := path.Points[0]
	last := path.Points[len(path.Points)-1]
	gap, err := geodesy.Distance(first, last)
	if err != nil || gap > loopToleranceKm {
		return asRun(domain.OutcomeLoopNotClosed)
	}

	area := poly.AreaKm2()
	if area < minTerritoryAreaKm2 {
		return asRun(domain.OutcomeAreaTooSmall)
	}

	territory := &domain.Territory{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Ring:        ring,
		Color:       color,
		AreaKm2:     area,
		DistanceKm:  path.DistanceKm,
		DurationSec: int(path.Duration.Seconds()),
		CreatedAt:   now,
	}

	return domain.CaptureResult{
		Outcome:   domain.OutcomeSuccess,
		Message:   domain.OutcomeSuccess.Message(),
		Territory: territory,
	}
}
