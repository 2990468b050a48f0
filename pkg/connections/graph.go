package connections

import (
	"sort"

	"flatmap/pkg/logger"
)

// Edge is a connection between two connectors, annotated with the
// structural components the connection crosses.
type Edge struct {
	Connection *Connection
	Components []string
}

// ConnectionRecord is the exported form of a graph edge.
type ConnectionRecord struct {
	ID         string    `json:"id"`
	Connectors [2]string `json:"connectors"`
	Components []string  `json:"components"`
}

// Graph is the undirected connection graph of one pathway domain: nodes are
// connector identifiers, edges are connections.
type Graph struct {
	connectors map[string]*Connector
	adjacency  map[string]map[string]*Edge
	metadata   map[string]any
}

// NewGraph creates an empty connection graph.
func NewGraph() *Graph {
	return &Graph{
		connectors: make(map[string]*Connector),
		adjacency:  make(map[string]map[string]*Edge),
		metadata:   make(map[string]any),
	}
}

// AddConnector adds a connector node.
func (g *Graph) AddConnector(connector *Connector) {
	g.connectors[connector.ID()] = connector
}

// Connector returns a connector node by identifier.
func (g *Graph) Connector(id string) (*Connector, bool) {
	connector, ok := g.connectors[id]
	return connector, ok
}

// AddConnection adds an edge for a connection with exactly two resolved,
// distinct endpoint connectors. Anything else is ignored.
func (g *Graph) AddConnection(connection *Connection, componentIDs []string) {
	if len(connection.ConnectorIDs) != 2 {
		return
	}
	a, b := connection.ConnectorIDs[0], connection.ConnectorIDs[1]
	if a == b {
		logger.Warn("[Graph] Dropping self-loop connection", "connection", connection.ID(), "connector", a)
		return
	}
	components := append([]string(nil), componentIDs...)
	sort.Strings(components)
	edge := &Edge{Connection: connection, Components: components}
	g.link(a, b, edge)
	g.link(b, a, edge)
}

func (g *Graph) link(from, to string, edge *Edge) {
	if g.adjacency[from] == nil {
		g.adjacency[from] = make(map[string]*Edge)
	}
	g.adjacency[from][to] = edge
}

// Edge returns the edge between two connectors.
func (g *Graph) Edge(a, b string) (*Edge, bool) {
	edge, ok := g.adjacency[a][b]
	return edge, ok
}

// RemoveEdge removes the edge between two connectors.
func (g *Graph) RemoveEdge(a, b string) {
	delete(g.adjacency[a], b)
	delete(g.adjacency[b], a)
}

// Neighbors returns the connectors adjacent to a node, in ascending order.
func (g *Graph) Neighbors(id string) []string {
	neighbours := make([]string, 0, len(g.adjacency[id]))
	for other := range g.adjacency[id] {
		neighbours = append(neighbours, other)
	}
	sort.Strings(neighbours)
	return neighbours
}

// Degree returns the number of edges at a node.
func (g *Graph) Degree(id string) int {
	return len(g.adjacency[id])
}

// Metadata returns the graph's metadata map.
func (g *Graph) Metadata() map[string]any {
	return g.metadata
}

// Records exports the graph's edges, sorted by connection identifier.
func (g *Graph) Records() []ConnectionRecord {
	seen := make(map[*Edge]bool)
	var records []ConnectionRecord
	for _, a := range g.nodes() {
		for _, b := range g.Neighbors(a) {
			edge := g.adjacency[a][b]
			if seen[edge] {
				continue
			}
			seen[edge] = true
			records = append(records, ConnectionRecord{
				ID:         edge.Connection.ID(),
				Connectors: [2]string{a, b},
				Components: edge.Components,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records
}

// Circuits pairs up the graph's terminal connectors: every two degree-1
// nodes reachable from one another form a circuit. Branch points of degree
// three or more are reported as warnings.
func (g *Graph) Circuits() [][2]string {
	var circuits [][2]string
	seen := make(map[string]bool)
	for _, source := range g.nodes() {
		degree := g.Degree(source)
		if degree >= 3 {
			logger.Warn("[Graph] Connector is a branch point", "connector", source, "degree", degree)
			continue
		}
		if degree != 1 || seen[source] {
			continue
		}
		seen[source] = true
		for _, target := range g.reachable(source) {
			if target != source && g.Degree(target) == 1 {
				circuits = append(circuits, [2]string{source, target})
				seen[target] = true
			}
		}
	}
	return circuits
}

// nodes returns every node with at least one edge, in ascending order.
func (g *Graph) nodes() []string {
	nodes := make([]string, 0, len(g.adjacency))
	for id := range g.adjacency {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// reachable returns the nodes reachable from start, in ascending order.
func (g *Graph) reachable(start string) []string {
	visited := map[string]bool{start: true}
	queue := []string{start}
	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, next := range g.Neighbors(node) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	sort.Strings(order)
	return order
}
