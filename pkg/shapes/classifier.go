package shapes

import (
	"sort"

	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
	"flatmap/pkg/logger"
	"flatmap/pkg/spatial"
)

const (
	componentBorderWidth  = 0.5
	connectionStrokeWidth = 2.0

	// Widest drawn line, in pixels. Connection end regions and error
	// markers are sized from it.
	maxLineWidthPixels = 10.0
)

// PathwaysTileLayer tags shapes rendered on the pathways layer.
const PathwaysTileLayer = "pathways"

// ClassifierParams configures a shape Classifier.
type ClassifierParams struct {
	// MapArea is the total area of the enclosing map, in map units².
	MapArea float64
	// MetresPerPixel scales pixel-sized tolerances into map units.
	MetresPerPixel float64

	LineFinder LineFinder
	TextFinder TextFinder

	// KindLookup maps a fill or stroke colour to a provisional connection
	// kind. Optional.
	KindLookup func(colour string) (string, bool)

	// Authoring keeps unclassifiable shapes visible for diagram authors
	// instead of excluding them.
	Authoring bool
}

// connectionEnd identifies one end of a line shape: endpoint 0 or the last
// endpoint (index -1).
type connectionEnd struct {
	shape *Shape
	index int
}

// Classifier assigns structural types to diagram shapes, extracts
// connection lines from thin polygons, merges connection segments that meet
// at joiner marks, and builds the containment forest.
type Classifier struct {
	params       ClassifierParams
	maxLineWidth float64

	shapes     []*Shape
	ends       []connectionEnd
	endRegions []geom.Geometry
}

// NewClassifier creates a classifier for one diagram.
func NewClassifier(params ClassifierParams) *Classifier {
	return &Classifier{
		params:       params,
		maxLineWidth: params.MetresPerPixel * maxLineWidthPixels,
	}
}

// Classify runs the full classification pass over an ordered shape list and
// returns the non-excluded shapes. Unclassifiable shapes are excluded or
// flagged; the only returned error is a joiner merge whose geometry cannot
// be collapsed to a single line, and it does not invalidate the rest of the
// result.
func (c *Classifier) Classify(shapes []*Shape) ([]*Shape, error) {
	c.shapes = shapes
	joiners := c.assignTypes(shapes)
	err := c.resolveJoiners(joiners)
	c.buildContainment(shapes)
	c.attachLabels(shapes)

	classified := make([]*Shape, 0, len(shapes))
	for _, s := range shapes {
		if !s.Exclude {
			classified = append(classified, s)
		}
	}
	return classified, err
}

// assignTypes computes the per-shape metrics and runs the decision tree,
// returning the deferred joiner candidates.
func (c *Classifier) assignTypes(shapes []*Shape) []*Shape {
	var joiners []*Shape
	for n, s := range shapes {
		width, height := geometry.WidthHeight(s.Geometry)
		area := s.Geometry.Area()
		s.Area = area
		s.BBoxCoverage = (width * height) / c.params.MapArea
		if width > 0 && height > 0 {
			s.Aspect = min(width, height) / max(width, height)
			s.Coverage = area / (width * height)
		} else {
			s.Aspect = 0
			s.Coverage = 1
		}

		if s.Type() == Unknown {
			switch {
			case s.BBoxCoverage > 0.001 && s.Geometry.Type() == geom.TypeMultiPolygon:
				s.SetType(Boundary)
			case n < len(shapes)-1 && shapes[n+1].Type() == Text &&
				s.Coverage < 0.5 && s.BBoxCoverage < 0.001:
				// The background lozenge behind a text shape.
				s.Exclude = true
			case s.Coverage < 0.4 || geometry.IsLinear(s.Geometry):
				if !c.addConnection(s) {
					logger.Warn("[Classifier] Cannot extract line from polygon", "shape", s.ID)
				}
			case s.BBoxCoverage > 0.001 && s.Coverage > 0.9:
				s.SetType(Container)
			case s.BBoxCoverage < 0.0005 && s.Aspect > 0.9 &&
				s.Coverage > 0.7 && s.Coverage <= 0.85:
				s.SetType(Component)
			case s.BBoxCoverage < 0.001 && s.Coverage > 0.85:
				s.SetType(Component)
			case geometry.RingSize(s.Geometry) == 4:
				// A triangle: candidate marker for joining two
				// connection segments.
				joiners = append(joiners, s)
			default:
				if !c.addConnection(s) {
					logger.Warn("[Classifier] Unclassifiable shape", "shape", s.ID)
					s.Colour = "yellow"
				}
			}
		}
		if !s.Exclude && s.Type() != Connection {
			s.SetExtra("stroke-width", componentBorderWidth)
		}
	}
	return joiners
}

// addConnection turns a line-like shape into a CONNECTION, extracting a
// centreline first when the shape is a polygon, and registers its end
// regions for joiner resolution. A provisional kind is looked up from the
// fill colour for extracted lines and the stroke colour for native ones.
func (c *Classifier) addConnection(s *Shape) bool {
	var kindColour string
	if geometry.IsPolygonal(s.Geometry) {
		if c.params.LineFinder == nil {
			s.Exclude = !c.params.Authoring
			s.Colour = "yellow"
			return false
		}
		line, ok := c.params.LineFinder.Line(s)
		if !ok {
			s.Exclude = !c.params.Authoring
			s.Colour = "yellow"
			return false
		}
		s.Geometry = line.AsGeometry()
		kindColour = s.Colour
	} else {
		kindColour = s.Stroke
	}
	start, end, ok := s.Ends()
	if !ok {
		s.LogWarning("Connection is not a single line", "type", s.Geometry.Type())
		s.Exclude = !c.params.Authoring
		return false
	}
	c.appendConnectionEnd(start, s, 0)
	c.appendConnectionEnd(end, s, -1)
	if c.params.KindLookup != nil {
		if kind, found := c.params.KindLookup(kindColour); found {
			s.Kind = kind
		}
	}
	s.SetType(Connection)
	s.SetExtra("tile-layer", PathwaysTileLayer)
	s.SetExtra("stroke-width", connectionStrokeWidth)
	s.SetExtra("type", "line")
	return true
}

// appendConnectionEnd registers the buffered region around a line endpoint.
func (c *Classifier) appendConnectionEnd(point geom.XY, s *Shape, index int) {
	c.endRegions = append(c.endRegions, geometry.Circle(point, c.maxLineWidth))
	c.ends = append(c.ends, connectionEnd{shape: s, index: index})
}

// buildContainment derives each shape's parent: the minimal-area shape,
// among those properly containing it, wins. The relation is a forest.
func (c *Classifier) buildContainment(shapes []*Shape) {
	var owners []*Shape
	var geometries []geom.Geometry
	for _, s := range shapes {
		if !s.Exclude && s.Type() != Connection && !s.Geometry.IsEmpty() {
			owners = append(owners, s)
			geometries = append(geometries, s.Geometry)
		}
	}
	index := spatial.New(geometries)

	type parentChild struct {
		parent *Shape
		child  *Shape
	}
	var candidates []parentChild
	for i, g := range geometries {
		if g.Area() <= 0 {
			continue
		}
		for _, contained := range index.ContainedProperlyBy(g) {
			if contained != i && geometries[contained].Area() > 0 {
				candidates = append(candidates, parentChild{parent: owners[i], child: owners[contained]})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].child.ID != candidates[j].child.ID {
			return candidates[i].child.ID < candidates[j].child.ID
		}
		return candidates[i].parent.Geometry.Area() < candidates[j].parent.Geometry.Area()
	})
	lastChild := ""
	for _, pc := range candidates {
		if pc.child.ID != lastChild {
			pc.child.Parent = pc.parent
			lastChild = pc.child.ID
		}
	}
}

// attachLabels looks up a label for every non-excluded component and
// container shape.
func (c *Classifier) attachLabels(shapes []*Shape) {
	if c.params.TextFinder == nil {
		return
	}
	for _, s := range shapes {
		if s.Exclude {
			continue
		}
		if t := s.Type(); t == Component || t == Container {
			if label, ok := c.params.TextFinder.Text(s); ok {
				s.Label = label
			}
		}
	}
}
