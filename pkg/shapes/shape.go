// Package shapes implements the geometric classification stage of flatmap
// generation: raw diagram shapes are assigned structural types, thin shapes
// are reduced to connection lines, segments split by joiner marks are
// merged, and the containment hierarchy is derived from geometric nesting.
package shapes

import (
	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
	"flatmap/pkg/logger"
)

// Type is the structural type of a shape.
type Type int

const (
	Unknown Type = iota
	Layer
	Text
	Feature
	Boundary
	Component
	Connection
	Container
)

func (t Type) String() string {
	switch t {
	case Layer:
		return "layer"
	case Text:
		return "text"
	case Feature:
		return "feature"
	case Boundary:
		return "boundary"
	case Component:
		return "component"
	case Connection:
		return "connection"
	case Container:
		return "container"
	default:
		return "unknown"
	}
}

// Shape is a diagram shape: a geometry plus its style attributes and the
// metrics and diagnostics attached during classification. Core fields are
// typed; renderer-only hints live in the Extra overflow map.
type Shape struct {
	ID       string
	Geometry geom.Geometry
	Parent   *Shape

	Name      string
	Colour    string // fill colour
	Stroke    string
	Opacity   float64
	LineStyle string

	// Author-declared endpoint hints naming the connectors a connection
	// is drawn between.
	ConnectionStart string
	ConnectionEnd   string

	// Metrics computed by the classifier.
	Area         float64
	Aspect       float64
	Coverage     float64
	BBoxCoverage float64

	Kind        string // provisional connection kind from colour lookup
	Label       string
	Directional bool
	Exclude     bool
	Error       string
	Warning     string

	Extra map[string]any

	shapeType Type
}

// NewShape creates a shape with the given identifier, structural type and
// geometry.
func NewShape(id string, shapeType Type, g geom.Geometry) *Shape {
	return &Shape{
		ID:        id,
		Geometry:  g,
		Opacity:   1,
		shapeType: shapeType,
	}
}

// Type returns the shape's structural type.
func (s *Shape) Type() Type {
	return s.shapeType
}

// SetType assigns the shape's structural type. A type, once assigned, is
// never reassigned; later calls are ignored.
func (s *Shape) SetType(t Type) {
	if s.shapeType != Unknown {
		if t != s.shapeType {
			logger.Debug("[Shape] Ignoring type reassignment", "shape", s.ID, "type", s.shapeType, "new", t)
		}
		return
	}
	s.shapeType = t
}

// SetExtra attaches a renderer hint to the shape.
func (s *Shape) SetExtra(key string, value any) {
	if s.Extra == nil {
		s.Extra = make(map[string]any)
	}
	s.Extra[key] = value
}

// Ends returns the two endpoints of a line shape.
func (s *Shape) Ends() (start, end geom.XY, ok bool) {
	ls, isLine := s.Geometry.AsLineString()
	if !isLine {
		return geom.XY{}, geom.XY{}, false
	}
	coords := geometry.Coords(ls)
	if len(coords) < 2 {
		return geom.XY{}, geom.XY{}, false
	}
	return coords[0], coords[len(coords)-1], true
}

// LogError records an error diagnostic on the shape and logs it.
func (s *Shape) LogError(message string, keyvals ...any) {
	s.Error = message
	logger.Error(message, append([]any{"shape", s.ID}, keyvals...)...)
}

// LogWarning records a warning diagnostic on the shape and logs it.
func (s *Shape) LogWarning(message string, keyvals ...any) {
	s.Warning = message
	logger.Warn(message, append([]any{"shape", s.ID}, keyvals...)...)
}
