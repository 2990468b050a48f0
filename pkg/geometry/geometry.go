// Package geometry provides planar helpers over the simplefeatures geometry
// types used throughout the classification engine. All coordinates are in
// map units (metres for flatmaps).
package geometry

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
)

const circleSegments = 32

// Point builds a point geometry at (x, y).
func Point(x, y float64) geom.Geometry {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}}).AsGeometry()
}

// Line builds a line string geometry through the given points.
func Line(points ...geom.XY) geom.Geometry {
	return LineString(points).AsGeometry()
}

// LineString builds a line string through the given points.
func LineString(points []geom.XY) geom.LineString {
	coords := make([]float64, 0, 2*len(points))
	for _, pt := range points {
		coords = append(coords, pt.X, pt.Y)
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// Rect builds an axis-aligned rectangular polygon.
func Rect(minX, minY, maxX, maxY float64) geom.Geometry {
	ring := LineString([]geom.XY{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	})
	return geom.NewPolygon([]geom.LineString{ring}).AsGeometry()
}

// Circle approximates a circular polygon around a centre point. It stands in
// for a true buffer operation when sizing connection-end regions and error
// markers.
func Circle(centre geom.XY, radius float64) geom.Geometry {
	points := make([]geom.XY, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		angle := 2 * math.Pi * float64(i) / circleSegments
		points = append(points, geom.XY{
			X: centre.X + radius*math.Cos(angle),
			Y: centre.Y + radius*math.Sin(angle),
		})
	}
	points = append(points, points[0])
	return geom.NewPolygon([]geom.LineString{LineString(points)}).AsGeometry()
}

// Bounds returns the min and max corners of a geometry's envelope.
func Bounds(g geom.Geometry) (mn, mx geom.XY, ok bool) {
	return g.Envelope().MinMaxXYs()
}

// WidthHeight returns the dimensions of a geometry's envelope.
func WidthHeight(g geom.Geometry) (width, height float64) {
	mn, mx, ok := Bounds(g)
	if !ok {
		return 0, 0
	}
	return mx.X - mn.X, mx.Y - mn.Y
}

// Diagonal returns the length of a geometry's envelope diagonal.
func Diagonal(g geom.Geometry) float64 {
	w, h := WidthHeight(g)
	return math.Hypot(w, h)
}

// IsPolygonal reports whether a geometry is a polygon or multi-polygon.
func IsPolygonal(g geom.Geometry) bool {
	t := g.Type()
	return t == geom.TypePolygon || t == geom.TypeMultiPolygon
}

// IsLinear reports whether a geometry is a line string or multi-line string.
func IsLinear(g geom.Geometry) bool {
	t := g.Type()
	return t == geom.TypeLineString || t == geom.TypeMultiLineString
}

// Distance returns the distance between two geometries, or +Inf when it is
// undefined (either geometry empty).
func Distance(a, b geom.Geometry) float64 {
	d, ok := geom.Distance(a, b)
	if !ok {
		return math.Inf(1)
	}
	return d
}

// IntersectionLength returns the length of the linear intersection of two
// geometries, zero when they do not intersect or the operation fails.
func IntersectionLength(a, b geom.Geometry) float64 {
	inter, err := geom.Intersection(a, b)
	if err != nil {
		return 0
	}
	return inter.Length()
}

// containsProperlyPattern is the DE-9IM pattern for "a contains b and b does
// not touch a's boundary".
const containsProperlyPattern = "T**FF*FF*"

// ContainsProperly reports whether geometry a properly contains geometry b.
func ContainsProperly(a, b geom.Geometry) bool {
	matrix, err := geom.Relate(a, b)
	if err != nil {
		return false
	}
	return relateMatches(matrix, containsProperlyPattern)
}

func relateMatches(matrix, pattern string) bool {
	if len(matrix) != len(pattern) {
		return false
	}
	for i := range pattern {
		switch pattern[i] {
		case '*':
		case 'T':
			if matrix[i] == 'F' {
				return false
			}
		default:
			if matrix[i] != pattern[i] {
				return false
			}
		}
	}
	return true
}

// Coords returns a line string's control points.
func Coords(ls geom.LineString) []geom.XY {
	seq := ls.Coordinates()
	points := make([]geom.XY, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		points[i] = seq.GetXY(i)
	}
	return points
}

// RingSize returns the number of control points in a polygon's exterior
// ring, or 0 for non-polygons. A closed triangle has 4.
func RingSize(g geom.Geometry) int {
	poly, ok := g.AsPolygon()
	if !ok {
		return 0
	}
	return poly.ExteriorRing().Coordinates().Length()
}

// Centroid returns the centre of a geometry's envelope.
func Centroid(g geom.Geometry) geom.XY {
	mn, mx, ok := Bounds(g)
	if !ok {
		return geom.XY{}
	}
	return geom.XY{X: (mn.X + mx.X) / 2, Y: (mn.Y + mx.Y) / 2}
}

// ExtendedIntersection intersects the infinite lines through segments
// (a0, a1) and (b0, b1). It reports false for parallel segments.
func ExtendedIntersection(a0, a1, b0, b1 geom.XY) (geom.XY, bool) {
	dax := a1.X - a0.X
	day := a1.Y - a0.Y
	dbx := b1.X - b0.X
	dby := b1.Y - b0.Y
	denom := dax*dby - day*dbx
	if math.Abs(denom) < 1e-12 {
		return geom.XY{}, false
	}
	t := ((b0.X-a0.X)*dby - (b0.Y-a0.Y)*dbx) / denom
	return geom.XY{X: a0.X + t*dax, Y: a0.Y + t*day}, true
}
