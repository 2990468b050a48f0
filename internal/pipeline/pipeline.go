// Package pipeline wires the classification stages together for one
// diagram: shape filtering, structural classification, connection
// resolution, and graph export.
package pipeline

import (
	"github.com/peterstace/simplefeatures/geom"

	"flatmap/internal/ingest"
	"flatmap/pkg/connections"
	"flatmap/pkg/logger"
	"flatmap/pkg/shapes"
)

// Params configures a pipeline run.
type Params struct {
	// MetresPerPixel scales pixel tolerances into map units.
	MetresPerPixel float64
	// ExcludeShapes, when non-empty, seeds a shape filter that drops
	// duplicated reference shapes before classification.
	ExcludeShapes []*shapes.Shape
	// Authoring keeps unclassifiable shapes visible instead of excluding
	// them.
	Authoring bool
}

// ShapeRecord is the exported form of a classified shape.
type ShapeRecord struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Parent   string        `json:"parent,omitempty"`
	Name     string        `json:"name,omitempty"`
	Label    string        `json:"label,omitempty"`
	Colour   string        `json:"colour,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Warning  string        `json:"warning,omitempty"`
	Geometry geom.Geometry `json:"geometry"`
}

// Result is the classified model of one diagram.
type Result struct {
	Diagram     string                                    `json:"diagram"`
	Shapes      []ShapeRecord                             `json:"shapes"`
	Connections map[string][]connections.ConnectionRecord `json:"connections"`
}

// Run classifies a diagram's shapes and builds its connection graphs. A
// non-nil Result is returned alongside any joiner merge error, since such
// errors invalidate only the affected pathway group.
func Run(diagram *ingest.Diagram, params Params) (*Result, error) {
	if len(params.ExcludeShapes) > 0 {
		filter := shapes.NewFilter()
		for _, s := range params.ExcludeShapes {
			filter.AddShape(s)
		}
		filter.CreateFilter()
		dropped := 0
		for _, s := range diagram.Shapes {
			if filter.Filter(s) {
				dropped++
			}
		}
		if dropped > 0 {
			logger.Info("[Pipeline] Filtered duplicated shapes", "diagram", diagram.Name, "count", dropped)
		}
	}

	classifier := shapes.NewClassifier(shapes.ClassifierParams{
		MapArea:        diagram.MapArea,
		MetresPerPixel: params.MetresPerPixel,
		LineFinder:     shapes.AxisLineFinder{},
		TextFinder:     shapes.NewContainedTextFinder(diagram.Shapes),
		KindLookup:     connections.VascularKinds.Lookup,
		Authoring:      params.Authoring,
	})
	classified, err := classifier.Classify(diagram.Shapes)

	connClassifier := connections.NewClassifier()
	for _, s := range classified {
		if connectorKind, isConnector := connectorKindOf(s); isConnector {
			connector := connections.NewConnector(s)
			connector.FCKind = connectorKind
			connector.FCClass = domainOf(s)
			connector.Description = describeConnector(connector)
			connClassifier.AddConnector(connector)
			continue
		}
		switch s.Type() {
		case shapes.Component, shapes.Container, shapes.Boundary, shapes.Layer:
			component := connections.NewComponent(s)
			component.FCClass = domainOf(s)
			connClassifier.AddComponent(component)
		}
	}
	for _, s := range classified {
		if s.Type() == shapes.Connection {
			connClassifier.AddConnection(connections.NewConnection(s))
		}
	}

	result := &Result{
		Diagram:     diagram.Name,
		Connections: connClassifier.Records(),
	}
	// Segment joining may have excluded more shapes since classification.
	for _, s := range classified {
		if !s.Exclude {
			result.Shapes = append(result.Shapes, recordOf(s))
		}
	}
	return result, err
}

func recordOf(s *shapes.Shape) ShapeRecord {
	record := ShapeRecord{
		ID:       s.ID,
		Type:     s.Type().String(),
		Name:     s.Name,
		Label:    s.Label,
		Colour:   s.Colour,
		Kind:     s.Kind,
		Error:    s.Error,
		Warning:  s.Warning,
		Geometry: s.Geometry,
	}
	if s.Parent != nil {
		record.Parent = s.Parent.ID
	}
	return record
}

func connectorKindOf(s *shapes.Shape) (connections.FCKind, bool) {
	kind, _ := s.Extra["connector"].(string)
	switch kind {
	case "node":
		return connections.KindConnectorNode, true
	case "port":
		return connections.KindConnectorPort, true
	case "joiner":
		return connections.KindConnectorJoiner, true
	case "through":
		return connections.KindConnectorThrough, true
	}
	return connections.KindUnknown, false
}

func domainOf(s *shapes.Shape) connections.FCClass {
	switch s.Extra["domain"] {
	case "neural":
		return connections.FCNeural
	case "vascular":
		return connections.FCVascular
	case "system":
		return connections.FCSystem
	case "organ":
		return connections.FCOrgan
	case "ftu":
		return connections.FCFTU
	}
	return connections.FCUnknown
}

func describeConnector(connector *connections.Connector) string {
	switch connector.FCClass {
	case connections.FCNeural:
		description, _ := connections.NeuronKinds.Lookup(connector.Colour())
		return description
	case connections.FCVascular:
		description, _ := connections.VascularKinds.Lookup(connector.Colour())
		return description
	}
	return ""
}
