package connections

import (
	"testing"

	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/geometry"
	"flatmap/pkg/shapes"
)

func testConnector(id string, at geom.XY, class FCClass, kind FCKind, description, colour string) *Connector {
	s := shapes.NewShape(id, shapes.Feature, geometry.Circle(at, 1))
	s.Colour = colour
	connector := NewConnector(s)
	connector.FCClass = class
	connector.FCKind = kind
	connector.Description = description
	return connector
}

func testConnection(id, colour, lineStyle string, points ...geom.XY) *Connection {
	s := shapes.NewShape(id, shapes.Connection, geometry.Line(points...))
	s.Colour = colour
	s.LineStyle = lineStyle
	return NewConnection(s)
}

func sympatheticNode(id string, at geom.XY) *Connector {
	return testConnector(id, at, FCNeural, KindConnectorNode, "sympathetic", "#EA3323")
}

func TestRecordsKeyedByDomainMetadata(t *testing.T) {
	c := NewClassifier()
	if c.NeuralGraph().Metadata()["domain"] != "neural" ||
		c.VascularGraph().Metadata()["domain"] != "vascular" {
		t.Fatalf("expected the graphs to carry their domain, got %v and %v",
			c.NeuralGraph().Metadata(), c.VascularGraph().Metadata())
	}
	records := c.Records()
	if _, ok := records["neural"]; !ok {
		t.Fatal("expected a neural record list")
	}
	if _, ok := records["vascular"]; !ok {
		t.Fatal("expected a vascular record list")
	}
}

func TestAddConnectionResolvesEndpoints(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	c.AddConnector(sympatheticNode("n2", geom.XY{X: 100, Y: 0}))

	connection := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0})
	c.AddConnection(connection)

	if connection.Shape.Error != "" {
		t.Fatalf("unexpected error: %s", connection.Shape.Error)
	}
	if len(connection.ConnectorIDs) != 2 ||
		connection.ConnectorIDs[0] != "n1" || connection.ConnectorIDs[1] != "n2" {
		t.Fatalf("expected endpoints [n1 n2], got %v", connection.ConnectorIDs)
	}
	if connection.FCClass != FCNeural {
		t.Fatalf("expected neural class, got %s", connection.FCClass)
	}
	if connection.Description != "sympathetic-post" {
		t.Fatalf("expected sympathetic-post, got %q", connection.Description)
	}
	if connection.PathType != PathSympathetic {
		t.Fatalf("unexpected path type: %v", connection.PathType)
	}
	if connection.Shape.Extra["kind"] != "symp-post" || connection.Shape.Extra["type"] != "line-dash" {
		t.Fatalf("unexpected renderer hints: %v", connection.Shape.Extra)
	}
	if _, ok := c.NeuralGraph().Edge("n1", "n2"); !ok {
		t.Fatal("expected an edge between the endpoint connectors")
	}
}

func TestDashedLineIsPreGanglionic(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	c.AddConnector(sympatheticNode("n2", geom.XY{X: 100, Y: 0}))

	connection := testConnection("c1", "#EA3323", "dashed",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0})
	c.AddConnection(connection)

	if connection.Description != "sympathetic-pre" {
		t.Fatalf("expected sympathetic-pre, got %q", connection.Description)
	}
	if connection.Shape.Extra["kind"] != "symp-pre" || connection.Shape.Extra["type"] != "line" {
		t.Fatalf("unexpected renderer hints: %v", connection.Shape.Extra)
	}
}

func TestFreeEndSynthesis(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))

	connection := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 2, Y: 0}, geom.XY{X: 9000, Y: 0})
	c.AddConnection(connection)

	if len(connection.ConnectorIDs) != 2 ||
		connection.ConnectorIDs[0] != "n1" || connection.ConnectorIDs[1] != "c1/0" {
		t.Fatalf("expected endpoints [n1 c1/0], got %v", connection.ConnectorIDs)
	}
	free, ok := c.NeuralGraph().Connector("c1/0")
	if !ok {
		t.Fatal("expected the free-end connector to be registered")
	}
	if free.FCKind != KindConnectorFreeEnd {
		t.Fatalf("expected a free-end kind, got %s", free.FCKind)
	}
	if free.FCClass != FCNeural {
		t.Fatalf("expected the free end to inherit the neural class, got %s", free.FCClass)
	}
	if _, ok := c.NeuralGraph().Edge("n1", "c1/0"); !ok {
		t.Fatal("expected an edge to the free end")
	}
}

func TestFreeEndAtStartNumbering(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))

	connection := testConnection("c2", "#EA3323", "solid",
		geom.XY{X: -9000, Y: 50}, geom.XY{X: 0, Y: 50})
	c.AddConnection(connection)

	if _, ok := c.NeuralGraph().Connector("c2/1"); !ok {
		t.Fatal("expected the start free end to be numbered /1")
	}
}

func TestDeclaredEndValidation(t *testing.T) {
	t.Run("unknown connector", func(t *testing.T) {
		c := NewClassifier()
		c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
		c.AddConnector(sympatheticNode("n2", geom.XY{X: 100, Y: 0}))

		connection := testConnection("c1", "#EA3323", "solid",
			geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0})
		connection.Shape.ConnectionStart = "bogus"
		c.AddConnection(connection)
		if connection.Shape.Error != "Declared connection end is unknown" {
			t.Fatalf("unexpected error: %q", connection.Shape.Error)
		}
	})

	t.Run("not at an end", func(t *testing.T) {
		c := NewClassifier()
		c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
		c.AddConnector(sympatheticNode("n2", geom.XY{X: 100, Y: 0}))
		c.AddConnector(sympatheticNode("n3", geom.XY{X: 5000, Y: 5000}))

		connection := testConnection("c1", "#EA3323", "solid",
			geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0})
		connection.Shape.ConnectionEnd = "n3"
		c.AddConnection(connection)
		if connection.Shape.Error != "Declared connection end isn't at an end" {
			t.Fatalf("unexpected error: %q", connection.Shape.Error)
		}
	})
}

func TestIncompatibleEnds(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	c.AddConnector(testConnector("v1", geom.XY{X: 100, Y: 0},
		FCVascular, KindConnectorNode, "arterial", "#EA3323"))

	connection := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0})
	c.AddConnection(connection)

	if connection.Shape.Error != "Connection ends aren't compatible" {
		t.Fatalf("unexpected error: %q", connection.Shape.Error)
	}
	if connection.FCClass != FCNeural {
		t.Fatalf("expected the first endpoint's class, got %s", connection.FCClass)
	}
}

func TestConnectionColourMustMatchNode(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(testConnector("n1", geom.XY{X: 0, Y: 0},
		FCNeural, KindConnectorNode, "parasympathetic", "#548235"))
	c.AddConnector(testConnector("n2", geom.XY{X: 100, Y: 0},
		FCNeural, KindConnectorNode, "parasympathetic", "#548235"))

	connection := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0})
	c.AddConnection(connection)

	if connection.Shape.Error != "Connection colour doesn't match connector" {
		t.Fatalf("unexpected error: %q", connection.Shape.Error)
	}
}

func TestJoinSegmentsAtJoiner(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	joiner := testConnector("j1", geom.XY{X: 10, Y: 0}, FCNeural, KindConnectorJoiner, "", "")
	c.AddConnector(joiner)
	c.AddConnector(sympatheticNode("n2", geom.XY{X: 20, Y: 0}))

	first := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 10, Y: 0})
	second := testConnection("c2", "#EA3323", "solid",
		geom.XY{X: 10, Y: 0}, geom.XY{X: 20, Y: 0})
	c.AddConnection(first)
	c.AddConnection(second)

	if !first.Shape.Exclude {
		t.Fatal("expected the absorbed segment to be excluded")
	}
	if !joiner.Shape.Exclude {
		t.Fatal("expected the joiner connector to be excluded")
	}
	records := c.NeuralGraph().Records()
	if len(records) != 1 {
		t.Fatalf("expected one merged edge, got %v", records)
	}
	if records[0].ID != "c2" || records[0].Connectors != [2]string{"n1", "n2"} {
		t.Fatalf("expected c2 spanning n1 to n2, got %v", records[0])
	}
	coords := connectionCoords(second)
	if coords[0] != (geom.XY{X: 0, Y: 0}) || coords[len(coords)-1] != (geom.XY{X: 20, Y: 0}) {
		t.Fatalf("expected the merged geometry to span both segments, got %v", coords)
	}
}

func TestJoinRejectsDirectionChange(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	joiner := testConnector("j1", geom.XY{X: 10, Y: 0}, FCNeural, KindConnectorJoiner, "", "")
	c.AddConnector(joiner)
	c.AddConnector(sympatheticNode("n3", geom.XY{X: 10, Y: 3000}))

	first := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 10, Y: 0})
	// Turns 90° at the joiner: not a continuation of the first segment.
	second := testConnection("c2", "#EA3323", "solid",
		geom.XY{X: 10, Y: 0}, geom.XY{X: 10, Y: 3000})
	c.AddConnection(first)
	c.AddConnection(second)

	if first.Shape.Exclude || joiner.Shape.Exclude {
		t.Fatal("expected no splice across a direction change")
	}
	if records := c.NeuralGraph().Records(); len(records) != 2 {
		t.Fatalf("expected both edges to remain, got %v", records)
	}
}

func TestThroughConnectorKeptAsIntermediate(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	through := testConnector("t1", geom.XY{X: 10, Y: 0}, FCNeural, KindConnectorThrough, "", "")
	c.AddConnector(through)
	c.AddConnector(sympatheticNode("n2", geom.XY{X: 20, Y: 0}))

	first := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 10, Y: 0})
	second := testConnection("c2", "#EA3323", "solid",
		geom.XY{X: 10, Y: 0}, geom.XY{X: 20, Y: 0})
	c.AddConnection(first)
	c.AddConnection(second)

	if through.Shape.Exclude {
		t.Fatal("expected the through connector to stay visible")
	}
	if len(second.IntermediateConnectors) != 1 || second.IntermediateConnectors[0] != "t1" {
		t.Fatalf("expected t1 recorded as an intermediate, got %v", second.IntermediateConnectors)
	}
	if records := c.NeuralGraph().Records(); len(records) != 1 {
		t.Fatalf("expected one merged edge, got %v", records)
	}
}

func TestJoinRejectsDifferentBranch(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	joiner := testConnector("j1", geom.XY{X: 10, Y: 0}, FCNeural, KindConnectorJoiner, "", "")
	c.AddConnector(joiner)
	c.AddConnector(testConnector("n2", geom.XY{X: 20, Y: 0},
		FCNeural, KindConnectorNode, "parasympathetic", "#548235"))

	first := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 10, Y: 0})
	second := testConnection("c2", "#548235", "solid",
		geom.XY{X: 10, Y: 0}, geom.XY{X: 20, Y: 0})
	c.AddConnection(first)
	c.AddConnection(second)

	if second.Shape.Error != "Neuron connections cannot be joined" {
		t.Fatalf("unexpected error: %q", second.Shape.Error)
	}
	if first.Shape.Exclude {
		t.Fatal("expected no splice between different branches")
	}
	if records := c.NeuralGraph().Records(); len(records) != 2 {
		t.Fatalf("expected both edges to remain, got %v", records)
	}
}

func TestJoinSkipsPrePostMismatch(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	joiner := testConnector("j1", geom.XY{X: 10, Y: 0}, FCNeural, KindConnectorJoiner, "", "")
	c.AddConnector(joiner)
	c.AddConnector(sympatheticNode("n2", geom.XY{X: 20, Y: 0}))

	first := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 10, Y: 0})
	second := testConnection("c2", "#EA3323", "dashed",
		geom.XY{X: 10, Y: 0}, geom.XY{X: 20, Y: 0})
	c.AddConnection(first)
	c.AddConnection(second)

	if second.Shape.Error != "" {
		t.Fatalf("unexpected error: %q", second.Shape.Error)
	}
	if first.Shape.Exclude {
		t.Fatal("expected pre- and post-ganglionic segments not to merge")
	}
	if records := c.NeuralGraph().Records(); len(records) != 2 {
		t.Fatalf("expected both edges to remain, got %v", records)
	}
}

func TestCrossedComponents(t *testing.T) {
	c := NewClassifier()
	nerve := NewComponent(shapes.NewShape("nerve", shapes.Component, geometry.Rect(0, 0, 10, 10)))
	nerve.FCClass = FCNeural
	c.AddComponent(nerve)
	c.AddConnector(sympatheticNode("n1", geom.XY{X: -1, Y: 2}))
	c.AddConnector(sympatheticNode("n2", geom.XY{X: -1, Y: 8}))

	// Doubles back inside the component: runs through it for longer than
	// its bounding-box diagonal.
	connection := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: -1, Y: 2}, geom.XY{X: 11, Y: 2}, geom.XY{X: -1, Y: 8})
	c.AddConnection(connection)

	records := c.NeuralGraph().Records()
	if len(records) != 1 {
		t.Fatalf("expected one edge, got %v", records)
	}
	if len(records[0].Components) != 1 || records[0].Components[0] != "nerve" {
		t.Fatalf("expected the nerve component to be crossed, got %v", records[0].Components)
	}
}

func TestRegistrationFreezesOnFirstConnection(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(sympatheticNode("n1", geom.XY{X: 0, Y: 0}))
	c.AddConnector(sympatheticNode("n2", geom.XY{X: 100, Y: 0}))
	c.AddConnection(testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0}))

	c.AddConnector(sympatheticNode("late", geom.XY{X: 50, Y: 50}))
	if _, ok := c.NeuralGraph().Connector("late"); ok {
		t.Fatal("expected connectors added after the first connection to be rejected")
	}
}

func TestVascularConnection(t *testing.T) {
	c := NewClassifier()
	c.AddConnector(testConnector("v1", geom.XY{X: 0, Y: 0},
		FCVascular, KindConnectorNode, "arterial", "#EA3323"))
	c.AddConnector(testConnector("v2", geom.XY{X: 50, Y: 0},
		FCVascular, KindConnectorNode, "arterial", "#EA3323"))

	connection := testConnection("c1", "#EA3323", "solid",
		geom.XY{X: 0, Y: 0}, geom.XY{X: 50, Y: 0})
	connection.Shape.SetExtra("stroke-width", 2.0)
	c.AddConnection(connection)

	if connection.Shape.Error != "" {
		t.Fatalf("unexpected error: %s", connection.Shape.Error)
	}
	if connection.FCClass != FCVascular {
		t.Fatalf("expected vascular class, got %s", connection.FCClass)
	}
	if connection.Shape.Extra["kind"] != "arterial" {
		t.Fatalf("unexpected kind: %v", connection.Shape.Extra["kind"])
	}
	if connection.Shape.Extra["stroke-width"] != 2.0/strokeWidthScaleFactor {
		t.Fatalf("unexpected stroke width: %v", connection.Shape.Extra["stroke-width"])
	}
	if len(c.VascularGraph().Records()) != 1 {
		t.Fatal("expected the edge in the vascular graph")
	}
	if len(c.NeuralGraph().Records()) != 0 {
		t.Fatal("expected no neural edges")
	}
}
