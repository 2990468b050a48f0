package connections

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
	"flatmap/pkg/logger"
	"flatmap/pkg/shapes"
	"flatmap/pkg/spatial"
)

const strokeWidthScaleFactor = 1270.0

// direction returns the unit vector from a to b, reporting false for
// coincident points.
func direction(a, b geom.XY) (geom.XY, bool) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	magnitude := math.Hypot(dx, dy)
	if magnitude == 0 {
		return geom.XY{}, false
	}
	return geom.XY{X: dx / magnitude, Y: dy / magnitude}, true
}

// similarDirection reports whether two unit tangents diverge by no more
// than about 30°: the magnitude of their sum must exceed 1.93, which is
// approximately sqrt(2 + sqrt(3)).
func similarDirection(d0, d1 geom.XY, ok0, ok1 bool) bool {
	if !ok0 || !ok1 {
		return false
	}
	return math.Hypot(d0.X+d1.X, d0.Y+d1.Y) > 1.93
}

// primaryBranch returns the part of a description before any '-', e.g.
// "sympathetic" from "sympathetic-pre".
func primaryBranch(description string) string {
	branch, _, _ := strings.Cut(description, "-")
	return branch
}

// Classifier resolves connection endpoints to connectors, joins neuron
// segments that continue through joiner and through connectors, and builds
// the per-domain connection graphs. Components and connectors are
// registered first; their spatial indexes freeze when the first connection
// is added.
type Classifier struct {
	neural   *Graph
	vascular *Graph

	connectors     map[string]*Connector
	connectorIDs   []string
	connectorGeoms []geom.Geometry
	connectorIndex *spatial.Index

	components     []*Component
	componentGeoms []geom.Geometry
	componentIndex *spatial.Index

	joinNodes map[string]bool
	frozen    bool

	warnedNoComponents bool
	warnedNoConnectors bool
}

// NewClassifier creates a connection classifier for one diagram.
func NewClassifier() *Classifier {
	c := &Classifier{
		neural:     NewGraph(),
		vascular:   NewGraph(),
		connectors: make(map[string]*Connector),
		joinNodes:  make(map[string]bool),
	}
	c.neural.Metadata()["domain"] = FCNeural.String()
	c.vascular.Metadata()["domain"] = FCVascular.String()
	return c
}

// NeuralGraph returns the neural-domain connection graph.
func (c *Classifier) NeuralGraph() *Graph {
	return c.neural
}

// VascularGraph returns the vascular-domain connection graph.
func (c *Classifier) VascularGraph() *Graph {
	return c.vascular
}

// Records exports both domain graphs as connection records, keyed by each
// graph's domain metadata.
func (c *Classifier) Records() map[string][]ConnectionRecord {
	records := make(map[string][]ConnectionRecord, 2)
	for _, g := range []*Graph{c.neural, c.vascular} {
		domain, _ := g.Metadata()["domain"].(string)
		records[domain] = g.Records()
	}
	return records
}

// AddComponent registers a structural component that connections may
// cross. Adding after the first connection is an error.
func (c *Classifier) AddComponent(component *Component) {
	if c.frozen {
		logger.Error("[Connections] Cannot add components once connections are added", "component", component.ID())
		return
	}
	if component.CDClass != CDComponent {
		return
	}
	// The bounding-box diagonal: a connection aligned with the component
	// runs through it for at least this length.
	component.longSide = geometry.Diagonal(component.Geometry())
	c.components = append(c.components, component)
	c.componentGeoms = append(c.componentGeoms, component.Geometry())
}

// AddConnector registers a connector that connection ends may resolve to.
// Adding after the first connection is an error.
func (c *Classifier) AddConnector(connector *Connector) {
	if c.frozen {
		logger.Error("[Connections] Cannot add connectors once connections are added", "connector", connector.ID())
		return
	}
	if connector.CDClass != CDConnector {
		return
	}
	c.connectorIDs = append(c.connectorIDs, connector.ID())
	c.connectorGeoms = append(c.connectorGeoms, connector.Geometry())
	c.addConnectorNode(connector)
}

func (c *Classifier) addConnectorNode(connector *Connector) {
	c.connectors[connector.ID()] = connector
	switch connector.FCClass {
	case FCNeural:
		c.neural.AddConnector(connector)
	case FCVascular:
		c.vascular.AddConnector(connector)
	}
}

// checkIndexes freezes registration and builds the spatial indexes.
func (c *Classifier) checkIndexes() {
	c.frozen = true
	if c.componentIndex == nil {
		if len(c.componentGeoms) == 0 {
			if !c.warnedNoComponents {
				logger.Warn("[Connections] No components to connect to")
				c.warnedNoComponents = true
			}
		} else {
			c.componentIndex = spatial.New(c.componentGeoms)
		}
	}
	if c.connectorIndex == nil {
		if len(c.connectorGeoms) == 0 {
			if !c.warnedNoConnectors {
				logger.Warn("[Connections] No connectors to connect to")
				c.warnedNoConnectors = true
			}
		} else {
			c.connectorIndex = spatial.New(c.connectorGeoms)
		}
	}
}

// closestConnectorID finds the registered connector nearest a connection
// endpoint, within the connection gap tolerance.
func (c *Classifier) closestConnectorID(point geom.Geometry) (string, bool) {
	if c.connectorIndex == nil {
		return "", false
	}
	nearest, distance, ok := c.connectorIndex.Nearest(point)
	if !ok || distance >= MaxConnectionGap {
		return "", false
	}
	return c.connectorIDs[nearest], true
}

// crossedComponents returns the identifiers of components of the
// connection's domain class that the connection runs through for longer
// than their bounding-box diagonal, in ascending order.
func (c *Classifier) crossedComponents(connection *Connection) []string {
	if c.componentIndex == nil {
		return nil
	}
	var ids []string
	for _, i := range c.componentIndex.Candidates(connection.Geometry()) {
		component := c.components[i]
		if component.FCClass != connection.FCClass {
			continue
		}
		if geometry.IntersectionLength(component.Geometry(), connection.Geometry()) > component.longSide {
			ids = append(ids, component.ID())
		}
	}
	sort.Strings(ids)
	return ids
}

// AddConnection resolves a connection's two endpoints, classifies it from
// its endpoint connectors and colour, joins it to neuron segments meeting
// it at joiner or through connectors, and records it in the domain graph.
func (c *Classifier) AddConnection(connection *Connection) {
	c.checkIndexes()

	coords := connectionCoords(connection)
	if len(coords) < 2 {
		connection.Shape.LogError("Connection has no line geometry")
		return
	}

	// Resolve each geometric endpoint to the nearest connector,
	// synthesizing a free-end connector when none is in range.
	var connectedEndIDs []string
	var freeEnds []*Connector
	endIndexByConnector := make(map[string]int)
	for _, coordIndex := range []int{0, -1} {
		endPoint := coords[0]
		if coordIndex != 0 {
			endPoint = coords[len(coords)-1]
		}
		connectorID, found := c.closestConnectorID(geometry.Point(endPoint.X, endPoint.Y))
		if found {
			connectedEndIDs = append(connectedEndIDs, connectorID)
		} else {
			connectorID = fmt.Sprintf("%s/%d", connection.ID(), coordIndex+1)
			free := NewConnector(shapes.NewShape(connectorID, shapes.Feature,
				geometry.Circle(endPoint, MaxConnectionGap)))
			freeEnds = append(freeEnds, free)
		}
		endIndexByConnector[connectorID] = coordIndex
	}

	// Validate author-declared endpoint hints.
	checkDeclaredEnd := func(declared string) {
		if declared == "" {
			return
		}
		if _, known := c.connectors[declared]; !known {
			connection.Shape.LogError("Declared connection end is unknown", "end", declared)
		} else if !contains(connectedEndIDs, declared) {
			connection.Shape.LogError("Declared connection end isn't at an end", "end", declared)
		}
	}
	checkDeclaredEnd(connection.Shape.ConnectionStart)
	checkDeclaredEnd(connection.Shape.ConnectionEnd)

	if len(freeEnds) > 0 {
		logger.Warn("[Connections] Connection has unconnected end(s)",
			"connection", connection.ID(), "count", len(freeEnds))
		if len(freeEnds) == 1 && len(connectedEndIDs) == 1 {
			// The free end inherits the domain of the resolved end.
			freeEnds[0].FCClass = c.connectors[connectedEndIDs[0]].FCClass
		}
		for _, free := range freeEnds {
			free.FCKind = KindConnectorFreeEnd
			c.addConnectorNode(free)
			connectedEndIDs = append(connectedEndIDs, free.ID())
		}
	}
	connection.ConnectorIDs = append(connection.ConnectorIDs, connectedEndIDs...)

	connector0 := c.connectors[connectedEndIDs[0]]
	connector1 := c.connectors[connectedEndIDs[1]]
	if connector0.FCClass != connector1.FCClass {
		connection.Shape.LogError("Connection ends aren't compatible",
			"start", connector0.ID(), "end", connector1.ID())
	}
	connection.FCClass = connector0.FCClass

	c.describeConnection(connection, connector0)

	if connection.FCClass == FCNeural {
		c.joinNeuronSegments(connection, connectedEndIDs, endIndexByConnector)
	}

	crossed := c.crossedComponents(connection)
	switch connection.FCClass {
	case FCNeural:
		c.neural.AddConnection(connection, crossed)
		if kind, ok := connection.Shape.Extra["kind"].(string); ok {
			lineType := "line"
			if strings.HasSuffix(kind, "-post") {
				lineType = "line-dash"
			}
			connection.Shape.SetExtra("type", lineType)
		}
	case FCVascular:
		c.vascular.AddConnection(connection, crossed)
	}

	connection.Shape.SetExtra("shape-type", "connection")
	connection.Shape.SetExtra("tile-layer", shapes.PathwaysTileLayer)
}

// describeConnection determines a connection's description and kind from
// its colour, and for neural connections its pre-/post-ganglionic status
// from the line style.
func (c *Classifier) describeConnection(connection *Connection, connector *Connector) {
	setDescription := func(table ColourTable) {
		connection.Description, _ = table.Lookup(connection.Colour())
		if (connector.FCKind == KindConnectorNode || connector.FCKind == KindConnectorPort) &&
			connection.Description != connector.Description {
			connection.Shape.LogError("Connection colour doesn't match connector",
				"colour", connection.Colour(), "description", connection.Description,
				"connector-colour", connector.Colour(), "connector-description", connector.Description)
		}
	}
	switch connection.FCClass {
	case FCNeural:
		connection.FCKind = KindNeuron
		setDescription(NeuronKinds)
		connection.PathType = PathTypeFromColour(connection.Colour())
		lineStyle := strings.ToLower(connection.Shape.LineStyle)
		ganglionic := "post"
		if strings.Contains(lineStyle, "dot") || strings.Contains(lineStyle, "dash") {
			ganglionic = "pre"
		}
		if connection.Description == "sympathetic" || connection.Description == "parasympathetic" {
			connection.Description += "-" + ganglionic
		}
		kind := connection.Description
		if branch, rest, cut := strings.Cut(connection.Description, "-"); cut {
			if len(branch) > 4 {
				branch = branch[:4]
			}
			kind = branch + "-" + rest
		}
		connection.Shape.SetExtra("kind", kind)
		lineType := "line"
		if strings.HasSuffix(kind, "-post") {
			lineType = "line-dash"
		}
		connection.Shape.SetExtra("type", lineType)
		connection.Shape.SetExtra("stroke-width", 1.0)
	case FCVascular:
		setDescription(VascularKinds)
		connection.Shape.SetExtra("kind", connection.Description)
		connection.Shape.SetExtra("type", "line")
		strokeWidth := strokeWidthScaleFactor
		if width, ok := connection.Shape.Extra["stroke-width"].(float64); ok {
			strokeWidth = width
		}
		connection.Shape.SetExtra("stroke-width", strokeWidth/strokeWidthScaleFactor)
	}
}

// joinNeuronSegments splices the connection onto a previously-seen segment
// at any shared joiner or through connector, provided the two segments have
// the same description and continue in the same direction at the shared
// point.
func (c *Classifier) joinNeuronSegments(connection *Connection, connectedEndIDs []string, endIndexByConnector map[string]int) {
	for _, connectorID := range connectedEndIDs {
		connector := c.connectors[connectorID]
		if connector.FCKind != KindConnectorJoiner && connector.FCKind != KindConnectorThrough {
			continue
		}
		if !c.joinNodes[connectorID] {
			// First arrival claims the join node.
			c.joinNodes[connectorID] = true
			continue
		}
		neighbours := c.neural.Neighbors(connectorID)
		if len(neighbours) == 0 {
			continue
		}
		if len(neighbours) > 1 {
			connector.Shape.LogError("Connector has too many edges from it",
				"connector", connectorID, "degree", len(neighbours))
		}
		joinEdge, ok := c.neural.Edge(connectorID, neighbours[0])
		if !ok {
			continue
		}
		joinConnection := joinEdge.Connection
		if primaryBranch(joinConnection.Description) != primaryBranch(connection.Description) {
			connection.Shape.LogError("Neuron connections cannot be joined",
				"connection", connection.ID(), "with", joinConnection.ID())
			continue
		}
		if joinConnection.Description != connection.Description {
			// One is pre-, the other post-ganglionic: not the same segment.
			continue
		}
		c.spliceConnections(connection, joinConnection, connector, endIndexByConnector[connectorID], neighbours[0])
	}
}

// spliceConnections merges joinConnection into connection at the shared
// connector, subject to the direction-continuity gate.
func (c *Classifier) spliceConnections(connection, joinConnection *Connection, connector *Connector, coordIndex int, neighbour string) {
	coords0 := connectionCoords(connection)
	coords1 := connectionCoords(joinConnection)
	if len(coords0) < 2 || len(coords1) < 2 {
		return
	}

	// Unit tangent of this connection at the shared point.
	var endPoint geom.XY
	var dirn0 geom.XY
	var ok0 bool
	if coordIndex == 0 {
		endPoint = coords0[0]
		dirn0, ok0 = direction(coords0[0], coords0[1])
	} else {
		endPoint = coords0[len(coords0)-1]
		dirn0, ok0 = direction(coords0[len(coords0)-2], coords0[len(coords0)-1])
	}

	// Orient the joined segment so both run the same way, and take its
	// tangent at the shared point.
	var dirn1 geom.XY
	var ok1 bool
	var head, tail []geom.XY
	joinStartCloser := distance(endPoint, coords1[0]) < distance(endPoint, coords1[len(coords1)-1])
	switch {
	case joinStartCloser && coordIndex == 0:
		// joined segment start meets connection start
		coords1 = reversedCoords(coords1)
		dirn1, ok1 = direction(coords1[len(coords1)-2], coords1[len(coords1)-1])
		head, tail = coords1, coords0
	case joinStartCloser:
		// connection end meets joined segment start
		dirn1, ok1 = direction(coords1[0], coords1[1])
		head, tail = coords0, coords1
	case coordIndex == 0:
		// joined segment end meets connection start
		dirn1, ok1 = direction(coords1[len(coords1)-2], coords1[len(coords1)-1])
		head, tail = coords1, coords0
	default:
		// connection end meets joined segment end
		coords1 = reversedCoords(coords1)
		dirn1, ok1 = direction(coords1[0], coords1[1])
		head, tail = coords0, coords1
	}

	if !similarDirection(dirn0, dirn1, ok0, ok1) {
		return
	}

	c.neural.RemoveEdge(connector.ID(), neighbour)
	if connector.FCKind == KindConnectorJoiner {
		connector.Shape.Exclude = true
	} else {
		connection.IntermediateConnectors = append(connection.IntermediateConnectors, connector.ID())
	}
	joinConnection.Shape.Exclude = true
	delete(c.joinNodes, connector.ID())

	merged := make([]geom.XY, 0, len(head)+len(tail))
	merged = append(merged, head...)
	merged = append(merged, tail...)
	connection.Shape.Geometry = geometry.Line(merged...)

	// The connection's new far endpoint is the joined segment's other end.
	joinConnection.ConnectorIDs = remove(joinConnection.ConnectorIDs, connector.ID())
	connection.ConnectorIDs = remove(connection.ConnectorIDs, connector.ID())
	if len(joinConnection.ConnectorIDs) > 0 {
		last := len(joinConnection.ConnectorIDs) - 1
		connection.ConnectorIDs = append(connection.ConnectorIDs, joinConnection.ConnectorIDs[last])
		joinConnection.ConnectorIDs = joinConnection.ConnectorIDs[:last]
	}
}

func connectionCoords(connection *Connection) []geom.XY {
	ls, ok := connection.Geometry().AsLineString()
	if !ok {
		return nil
	}
	return geometry.Coords(ls)
}

func distance(a, b geom.XY) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func reversedCoords(coords []geom.XY) []geom.XY {
	out := make([]geom.XY, len(coords))
	for i, pt := range coords {
		out[len(coords)-1-i] = pt
	}
	return out
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// remove deletes the first occurrence of value.
func remove(values []string, value string) []string {
	for i, v := range values {
		if v == value {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}
