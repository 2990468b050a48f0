package shapes

import (
	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
	"flatmap/pkg/logger"
	"flatmap/pkg/spatial"
)

const (
	// A shape duplicating a reference shape overlaps it almost exactly.
	duplicateOverlap = 0.98
	// A shape drawn over a reference shape covers most of it.
	nearFullOverlap = 0.80
)

// commonAttributes is the style tuple compared when deciding whether a
// shape duplicates a reference shape.
type commonAttributes struct {
	name    string
	colour  string
	opacity float64
}

func attributesOf(s *Shape) commonAttributes {
	return commonAttributes{
		name:    s.Name,
		colour:  s.Colour,
		opacity: s.Opacity,
	}
}

// Filter marks shapes as excluded when they duplicate, or are near-fully
// overlapped by, a reference set of polygons with matching style
// attributes. Reference shapes are added while the filter is open; once
// CreateFilter has been called the reference set is frozen.
type Filter struct {
	attributes []commonAttributes
	geometries []geom.Geometry
	index      *spatial.Index

	warnedCreate bool
	warnedFilter bool
}

// NewFilter creates an open, empty shape filter.
func NewFilter() *Filter {
	return &Filter{}
}

// AddShape records a polygonal shape's geometry and style attributes in the
// reference set. Adding after CreateFilter is a no-op with a one-time
// warning.
func (f *Filter) AddShape(s *Shape) {
	if f.index != nil {
		if !f.warnedCreate {
			logger.Warn("[Filter] Cannot add shapes to filter after it has been created")
			f.warnedCreate = true
		}
		return
	}
	if s.Geometry.IsEmpty() || !geometry.IsPolygonal(s.Geometry) {
		return
	}
	f.geometries = append(f.geometries, s.Geometry)
	f.attributes = append(f.attributes, attributesOf(s))
}

// CreateFilter freezes the reference set and builds its spatial index.
// Idempotent.
func (f *Filter) CreateFilter() {
	if f.index == nil {
		f.index = spatial.New(f.geometries)
	}
}

// ResetFilter discards the spatial index and rebuilds it from the current
// reference snapshot.
func (f *Filter) ResetFilter() {
	f.index = nil
	f.CreateFilter()
}

// Filter reports whether the shape duplicates the reference set, marking it
// excluded when it does. Calling before CreateFilter is a no-op with a
// one-time warning.
func (f *Filter) Filter(s *Shape) bool {
	if f.index == nil {
		if !f.warnedFilter {
			logger.Warn("[Filter] Shape filter has not been created")
			f.warnedFilter = true
		}
		return false
	}
	if s.Geometry.IsEmpty() || !geometry.IsPolygonal(s.Geometry) {
		return false
	}
	match, ok := f.shapeExcluded(s.Geometry, duplicateOverlap, nil)
	if !ok {
		match, ok = f.shapeExcluded(s.Geometry, nearFullOverlap, nil)
	}
	if !ok {
		attrs := attributesOf(s)
		match, ok = f.shapeExcluded(s.Geometry, 0, &attrs)
	}
	if !ok {
		return false
	}
	s.Exclude = true
	s.SetExtra("excluded-by", map[string]any{
		"name":    match.name,
		"colour":  match.colour,
		"opacity": match.opacity,
	})
	return true
}

// shapeExcluded looks for a reference geometry that overlaps g by the given
// mutual fraction or, when attrs is non-nil, one that intersects g and has
// equal style attributes.
func (f *Filter) shapeExcluded(g geom.Geometry, overlap float64, attrs *commonAttributes) (commonAttributes, bool) {
	for _, i := range f.index.Intersecting(g) {
		reference := f.index.Geometry(i)
		if attrs == nil {
			intersection, err := geom.Intersection(reference, g)
			if err != nil {
				continue
			}
			area := intersection.Area()
			if area >= overlap*g.Area() && area >= overlap*reference.Area() {
				return f.attributes[i], true
			}
		} else if *attrs == f.attributes[i] {
			return f.attributes[i], true
		}
	}
	return commonAttributes{}, false
}
