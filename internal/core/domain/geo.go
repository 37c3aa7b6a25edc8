package domain

import "time"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ring is a closed polygon boundary as ordered (lon, lat) pairs,
// following the GeoJSON ring convention: the first pair is repeated
// as the last.
type Ring [][2]float64

// Closed reports whether the ring has at least four positions and its
// first and last positions coincide.
func (r Ring) Closed() bool {
	if len(r) < 4 {
		return false
	}
	return r[0] == r[len(r)-1]
}

// CloseRing appends the first vertex of points to the end, producing a
// candidate closed ring in (lon, lat) order.
func CloseRing(points []GeoPoint) Ring {
	ring := make(Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, [2]float64{p.Lon, p.Lat})
	}
	if len(points) > 0 {
		ring = append(ring, [2]float64{points[0].Lon, points[0].Lat})
	}
	return ring
}

// PositionFix is a single reading from a live position feed.
type PositionFix struct {
	Time      time.Time `json:"time"`
	UserID    string    `json:"user_id"`
	Location  GeoPoint  `json:"location"`
	AccuracyM float64   `json:"accuracy_m,omitempty"`
}

// Path is the ordered vertex sequence accumulated by a capture session.
// Points are appended in acceptance order; DistanceKm and Duration are
// derived from the points and the session clock, never set independently.
type Path struct {
	Points     []GeoPoint    `json:"points"`
	DistanceKm float64       `json:"distance_km"`
	Duration   time.Duration `json:"duration"`
}

// Last returns the most recently accepted point.
func (p Path) Last() (GeoPoint, bool) {
	if len(p.Points) == 0 {
		return GeoPoint{}, false
	}
	return p.Points[len(p.Points)-1], true
}
