// Package spatial wraps an R-tree as a write-once spatial index over a
// snapshot of geometries. An Index is built from a finalized geometry list
// and is read-only afterwards; "resetting" one means building a new Index
// from a fresh snapshot.
package spatial

import (
	"sort"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/peterstace/simplefeatures/rtree"

	"flatmap/pkg/geometry"
)

// Index answers which member geometries intersect, properly contain, or are
// nearest to a query geometry. Results are indices into the geometry
// snapshot the Index was built from, always in ascending order.
type Index struct {
	geoms []geom.Geometry
	tree  *rtree.RTree
}

// New builds an index over a snapshot of geometries. The slice is retained;
// callers must not mutate it afterwards.
func New(geoms []geom.Geometry) *Index {
	items := make([]rtree.BulkItem, 0, len(geoms))
	for i, g := range geoms {
		box, ok := box(g)
		if !ok {
			continue
		}
		items = append(items, rtree.BulkItem{Box: box, RecordID: i})
	}
	return &Index{
		geoms: geoms,
		tree:  rtree.BulkLoad(items),
	}
}

func box(g geom.Geometry) (rtree.Box, bool) {
	mn, mx, ok := g.Envelope().MinMaxXYs()
	if !ok {
		return rtree.Box{}, false
	}
	return rtree.Box{MinX: mn.X, MinY: mn.Y, MaxX: mx.X, MaxY: mx.Y}, true
}

// Len returns the number of geometries in the snapshot.
func (x *Index) Len() int {
	return len(x.geoms)
}

// Geometry returns the i'th geometry of the snapshot.
func (x *Index) Geometry(i int) geom.Geometry {
	return x.geoms[i]
}

// Candidates returns the indices whose bounding boxes intersect the query
// geometry's bounding box.
func (x *Index) Candidates(g geom.Geometry) []int {
	queryBox, ok := box(g)
	if !ok {
		return nil
	}
	var hits []int
	x.tree.RangeSearch(queryBox, func(recordID int) error {
		hits = append(hits, recordID)
		return nil
	})
	sort.Ints(hits)
	return hits
}

// Intersecting returns the indices of geometries that intersect the query.
func (x *Index) Intersecting(g geom.Geometry) []int {
	var hits []int
	for _, i := range x.Candidates(g) {
		if geom.Intersects(x.geoms[i], g) {
			hits = append(hits, i)
		}
	}
	return hits
}

// ContainedProperlyBy returns the indices of geometries properly contained
// by the query geometry.
func (x *Index) ContainedProperlyBy(g geom.Geometry) []int {
	var hits []int
	for _, i := range x.Candidates(g) {
		if geometry.ContainsProperly(g, x.geoms[i]) {
			hits = append(hits, i)
		}
	}
	return hits
}

// Nearest returns the index of the geometry closest to the query and its
// distance. Member counts are small enough that an exact scan is used,
// keeping results independent of tree structure.
func (x *Index) Nearest(g geom.Geometry) (int, float64, bool) {
	best := -1
	bestDistance := 0.0
	for i, member := range x.geoms {
		d := geometry.Distance(member, g)
		if best < 0 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestDistance, true
}

// NearestAll returns every index whose distance to the query is within eps
// of the minimum distance. This mirrors a nearest query that reports ties.
func (x *Index) NearestAll(g geom.Geometry, eps float64) []int {
	_, bestDistance, ok := x.Nearest(g)
	if !ok {
		return nil
	}
	var hits []int
	for i, member := range x.geoms {
		if geometry.Distance(member, g) <= bestDistance+eps {
			hits = append(hits, i)
		}
	}
	return hits
}
