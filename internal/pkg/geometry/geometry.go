// Package geometry builds and compares territory polygons. Rings are
// validated with simplefeatures (closure and simplicity); areas are
// computed spherically with orb/geo so the classifier and the overlap
// resolver report comparable figures.
package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/capturegame/capture/internal/core/domain"
)

// Polygon is a validated simple polygon built from a closed (lon, lat)
// ring.
type Polygon struct {
	ring domain.Ring
	g    geom.Geometry
}

// FromRing constructs a Polygon from a closed ring. It fails if the
// ring is not closed, is degenerate, or self-intersects.
func FromRing(ring domain.Ring) (*Polygon, error) {
	if !ring.Closed() {
		return nil, fmt.Errorf("ring is not closed (%d positions)", len(ring))
	}

	coords := make([]float64, 0, len(ring)*2)
	for _, pos := range ring {
		coords = append(coords, pos[0], pos[1])
	}

	ls := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ls})
	if err := poly.Validate(); err != nil {
		return nil, fmt.Errorf("invalid polygon: %w", err)
	}

	return &Polygon{ring: ring, g: poly.AsGeometry()}, nil
}

// Ring returns the polygon's (lon, lat) boundary.
func (p *Polygon) Ring() domain.Ring {
	return p.ring
}

// AreaKm2 returns the polygon's spherical area in square kilometers.
func (p *Polygon) AreaKm2() float64 {
	return ringAreaKm2(toOrbRing(p.ring))
}

// Intersection computes the overlap between two polygons. It returns
// the overlap area in square kilometers and whether a two-dimensional
// intersection exists; boundary touches and shared edges do not count.
func Intersection(a, b *Polygon) (float64, bool, error) {
	inter, err := geom.Intersection(a.g, b.g)
	if err != nil {
		return 0, false, fmt.Errorf("intersect: %w", err)
	}
	if inter.IsEmpty() {
		return 0, false, nil
	}

	area := polygonalAreaKm2(inter)
	if area <= 0 {
		return 0, false, nil
	}
	return area, true, nil
}

// polygonalAreaKm2 sums the spherical area of every polygonal
// component of g. Points and lines contribute nothing.
func polygonalAreaKm2(g geom.Geometry) float64 {
	switch {
	case g.IsPolygon():
		poly := g.MustAsPolygon()
		return ringAreaKm2(sequenceToOrbRing(poly.ExteriorRing().Coordinates()))
	case g.IsMultiPolygon():
		mp := g.MustAsMultiPolygon()
		var total float64
		for i := 0; i < mp.NumPolygons(); i++ {
			total += ringAreaKm2(sequenceToOrbRing(mp.PolygonN(i).ExteriorRing().Coordinates()))
		}
		return total
	case g.IsGeometryCollection():
		gc := g.MustAsGeometryCollection()
		var total float64
		for i := 0; i < gc.NumGeometries(); i++ {
			total += polygonalAreaKm2(gc.GeometryN(i))
		}
		return total
	}
	return 0
}

func toOrbRing(ring domain.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(ring))
	for _, pos := range ring {
		out = append(out, orb.Point{pos[0], pos[1]})
	}
	return out
}

func sequenceToOrbRing(seq geom.Sequence) orb.Ring {
	out := make(orb.Ring, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		out = append(out, orb.Point{xy.X, xy.Y})
	}
	return out
}

func ringAreaKm2(ring orb.Ring) float64 {
	return math.Abs(geo.Area(ring)) / 1e6
}
