package shapes

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
	"flatmap/pkg/spatial"
)

// nearestEndEps is the tie tolerance when querying the connection-end
// regions nearest a joiner.
const nearestEndEps = 1e-6

// MergeError reports a joiner group whose member geometries could not be
// collapsed into a single line. The input geometry is inconsistent; the
// group is left unmerged.
type MergeError struct {
	ShapeIDs []string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("cannot join connections: %s", strings.Join(e.ShapeIDs, ", "))
}

// resolveJoiners excludes each joiner mark adjacent to exactly two
// connection ends and merges the member connections of every joined group
// into a single line. Joiners with any other number of adjacent ends are
// flagged and inflated so they render as visible errors.
func (c *Classifier) resolveJoiners(joiners []*Shape) error {
	if len(joiners) == 0 {
		return nil
	}
	endIndex := spatial.New(c.endRegions)
	join := newJoinGraph()
	for _, joiner := range joiners {
		hits := endIndex.NearestAll(joiner.Geometry, nearestEndEps)
		if len(hits) == 2 {
			joiner.Exclude = true
			s0, s1 := c.extendJoinedConnections(c.ends[hits[0]], c.ends[hits[1]])
			join.addEdge(s0, s1)
		} else {
			joiner.Colour = "yellow"
			joiner.Stroke = "red"
			joiner.SetExtra("stroke-width", componentBorderWidth)
			joiner.Geometry = geometry.Circle(
				geometry.Centroid(joiner.Geometry),
				geometry.Diagonal(joiner.Geometry)/2+c.maxLineWidth)
		}
	}

	var errs []error
	for _, members := range join.components() {
		line, err := mergeConnectionLines(members, 2*c.maxLineWidth)
		if err != nil {
			for _, member := range members {
				member.Error = "cannot join connections"
			}
			errs = append(errs, err)
			continue
		}
		members[0].Geometry = line.AsGeometry()
		for _, member := range members[1:] {
			if member.Directional {
				members[0].Directional = true
			}
			member.Exclude = true
		}
	}
	return errors.Join(errs...)
}

// extendJoinedConnections extends the end segments of the two connections
// meeting at a joiner to their mutual intersection so the merged line has
// neither gap nor kink. Parallel segments are left untouched.
func (c *Classifier) extendJoinedConnections(e0, e1 connectionEnd) (*Shape, *Shape) {
	seg0, ok0 := endSegment(e0)
	seg1, ok1 := endSegment(e1)
	if ok0 && ok1 {
		if pt, ok := geometry.ExtendedIntersection(seg0[0], seg0[1], seg1[0], seg1[1]); ok {
			snapEnd(e0, pt)
			snapEnd(e1, pt)
		}
	}
	return e0.shape, e1.shape
}

// endSegment returns the final segment of the line at the given end.
func endSegment(e connectionEnd) ([2]geom.XY, bool) {
	ls, ok := e.shape.Geometry.AsLineString()
	if !ok {
		return [2]geom.XY{}, false
	}
	coords := geometry.Coords(ls)
	if len(coords) < 2 {
		return [2]geom.XY{}, false
	}
	if e.index == 0 {
		return [2]geom.XY{coords[0], coords[1]}, true
	}
	return [2]geom.XY{coords[len(coords)-2], coords[len(coords)-1]}, true
}

// snapEnd moves the endpoint of the line at the given end to pt.
func snapEnd(e connectionEnd, pt geom.XY) {
	ls, ok := e.shape.Geometry.AsLineString()
	if !ok {
		return
	}
	coords := geometry.Coords(ls)
	if e.index == 0 {
		coords[0] = pt
	} else {
		coords[len(coords)-1] = pt
	}
	e.shape.Geometry = geometry.Line(coords...)
}

// joinGraph records which connections are equivalent through joiner marks.
// Iteration order follows first insertion so merge results are
// deterministic.
type joinGraph struct {
	order []*Shape
	seen  map[string]bool
	adj   map[string][]*Shape
}

func newJoinGraph() *joinGraph {
	return &joinGraph{
		seen: make(map[string]bool),
		adj:  make(map[string][]*Shape),
	}
}

func (g *joinGraph) addNode(s *Shape) {
	if !g.seen[s.ID] {
		g.seen[s.ID] = true
		g.order = append(g.order, s)
	}
}

func (g *joinGraph) addEdge(a, b *Shape) {
	g.addNode(a)
	g.addNode(b)
	g.adj[a.ID] = append(g.adj[a.ID], b)
	g.adj[b.ID] = append(g.adj[b.ID], a)
}

// components returns the connected components in first-seen order.
func (g *joinGraph) components() [][]*Shape {
	visited := make(map[string]bool)
	var components [][]*Shape
	for _, start := range g.order {
		if visited[start.ID] {
			continue
		}
		var member []*Shape
		stack := []*Shape{start}
		visited[start.ID] = true
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			member = append(member, s)
			for _, next := range g.adj[s.ID] {
				if !visited[next.ID] {
					visited[next.ID] = true
					stack = append(stack, next)
				}
			}
		}
		components = append(components, member)
	}
	return components
}

// mergeConnectionLines stitches the member connection lines into a single
// line string. Endpoints within tolerance of each other are considered
// coincident; a residual gap (parallel segments a joiner could not extend)
// is bridged. The members must collapse to one line.
func mergeConnectionLines(members []*Shape, tolerance float64) (geom.LineString, error) {
	ids := make([]string, len(members))
	paths := make([][]geom.XY, 0, len(members))
	for i, member := range members {
		ids[i] = member.ID
		ls, ok := member.Geometry.AsLineString()
		if !ok {
			return geom.LineString{}, &MergeError{ShapeIDs: ids}
		}
		paths = append(paths, geometry.Coords(ls))
	}
	for len(paths) > 1 {
		merged := false
	search:
		for i := 0; i < len(paths); i++ {
			for j := i + 1; j < len(paths); j++ {
				if combined, ok := joinPaths(paths[i], paths[j], tolerance); ok {
					paths[i] = combined
					paths = append(paths[:j], paths[j+1:]...)
					merged = true
					break search
				}
			}
		}
		if !merged {
			return geom.LineString{}, &MergeError{ShapeIDs: ids}
		}
	}
	return geometry.LineString(paths[0]), nil
}

// joinPaths concatenates two paths that share an endpoint within tolerance.
func joinPaths(a, b []geom.XY, tolerance float64) ([]geom.XY, bool) {
	switch {
	case near(a[len(a)-1], b[0], tolerance):
		return appendPath(a, b), true
	case near(a[len(a)-1], b[len(b)-1], tolerance):
		return appendPath(a, reversed(b)), true
	case near(a[0], b[len(b)-1], tolerance):
		return appendPath(b, a), true
	case near(a[0], b[0], tolerance):
		return appendPath(reversed(b), a), true
	}
	return nil, false
}

func appendPath(head, tail []geom.XY) []geom.XY {
	combined := make([]geom.XY, 0, len(head)+len(tail))
	combined = append(combined, head...)
	if near(head[len(head)-1], tail[0], 1e-9) {
		// Coincident join point, drop the duplicate.
		tail = tail[1:]
	}
	return append(combined, tail...)
}

func reversed(path []geom.XY) []geom.XY {
	out := make([]geom.XY, len(path))
	for i, pt := range path {
		out[len(path)-1-i] = pt
	}
	return out
}

func near(a, b geom.XY, tolerance float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tolerance
}
