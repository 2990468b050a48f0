package shapes

import (
	"strings"

	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
)

// LineFinder attempts to extract a representative centreline from a
// polygon shape.
type LineFinder interface {
	Line(s *Shape) (geom.LineString, bool)
}

// TextFinder attempts to find a label for a shape from nearby or contained
// text.
type TextFinder interface {
	Text(s *Shape) (string, bool)
}

// AxisLineFinder is a minimal LineFinder that reduces a thin polygon to the
// major axis of its envelope. Source-format specific finders (which follow
// bends in the drawn polygon) can be injected in its place.
type AxisLineFinder struct {
	// MaxThinness is the largest envelope aspect ratio still considered
	// line-like.
	MaxThinness float64
}

func (f AxisLineFinder) Line(s *Shape) (geom.LineString, bool) {
	if !geometry.IsPolygonal(s.Geometry) {
		return geom.LineString{}, false
	}
	width, height := geometry.WidthHeight(s.Geometry)
	if width <= 0 || height <= 0 {
		return geom.LineString{}, false
	}
	maxThinness := f.MaxThinness
	if maxThinness <= 0 {
		maxThinness = 0.5
	}
	if min(width, height)/max(width, height) > maxThinness {
		return geom.LineString{}, false
	}
	mn, mx, ok := geometry.Bounds(s.Geometry)
	if !ok {
		return geom.LineString{}, false
	}
	if width >= height {
		mid := (mn.Y + mx.Y) / 2
		return geometry.LineString([]geom.XY{{X: mn.X, Y: mid}, {X: mx.X, Y: mid}}), true
	}
	mid := (mn.X + mx.X) / 2
	return geometry.LineString([]geom.XY{{X: mid, Y: mn.Y}, {X: mid, Y: mx.Y}}), true
}

// ContainedTextFinder labels a shape with the text of the first TEXT shape
// whose centre lies inside the shape's bounding region.
type ContainedTextFinder struct {
	texts []*Shape
}

// NewContainedTextFinder collects the TEXT shapes from a shape list.
func NewContainedTextFinder(shapes []*Shape) *ContainedTextFinder {
	finder := &ContainedTextFinder{}
	for _, s := range shapes {
		if s.Type() == Text {
			finder.texts = append(finder.texts, s)
		}
	}
	return finder
}

func (f *ContainedTextFinder) Text(s *Shape) (string, bool) {
	mn, mx, ok := geometry.Bounds(s.Geometry)
	if !ok {
		return "", false
	}
	for _, text := range f.texts {
		centre := geometry.Centroid(text.Geometry)
		if centre.X < mn.X || centre.X > mx.X || centre.Y < mn.Y || centre.Y > mx.Y {
			continue
		}
		if label := strings.TrimSpace(text.Name); label != "" {
			return label, true
		}
	}
	return "", false
}
