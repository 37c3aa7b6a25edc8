// Package geodesy holds the great-circle primitives the capture engine
// is built on. All functions are pure; malformed coordinates fail with
// domain.ErrInvalidCoordinate instead of propagating NaN.
package geodesy

import (
	"fmt"
	"math"

	"github.com/capturegame/capture/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Validate rejects NaN, infinite, or out-of-range coordinates.
func Validate(p domain.GeoPoint) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: (%v, %v)", domain.ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Distance returns the haversine great-circle distance between two
// points in kilometers. Symmetric in its arguments; zero iff the
// points coincide within floating tolerance.
func Distance(a, b domain.GeoPoint) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c, nil
}

// PathLength returns the cumulative length of an ordered point
// sequence in kilometers: the exact sum of Distance over consecutive
// pairs, so recomputation over the same points always reproduces the
// same value. Zero for fewer than two points.
func PathLength(points []domain.GeoPoint) (float64, error) {
	var total float64
	for i := 1; i < len(points); i++ {
		d, err := Distance(points[i-1], points[i])
		if err != nil {
			return 0, err
		}
		total += d
	}
	if len(points) == 1 {
		if err := Validate(points[0]); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// NearPath reports whether p lies within toleranceKm of any vertex of
// the path.
func NearPath(points []domain.GeoPoint, p domain.GeoPoint, toleranceKm float64) (bool, error) {
	for _, q := range points {
		d, err := Distance(p, q)
		if err != nil {
			return false, err
		}
		if d <= toleranceKm {
			return true, nil
		}
	}
	return false, nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
