// Package ingest loads diagram shapes from GeoJSON feature collections.
// Geometry extraction from source document formats happens upstream; this
// package only maps already-extracted features onto Shape records.
//
// Recognized feature properties:
//
//	id               stable shape identifier (defaults to its position)
//	type             preset structural type: layer | text | feature
//	name             shape name / text content
//	colour, fill     fill colour
//	stroke           stroke colour
//	opacity          fill opacity (default 1)
//	line-style       e.g. "solid", "dashed", "dotted"
//	directional      connection carries a direction marker
//	connection-start, connection-end
//	                 author-declared endpoint connector ids
//	connector        connector kind: node | port | joiner | through
//	domain           pathway domain: neural | vascular
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/shapes"
)

// Diagram is one loaded diagram: its shapes in drawing order and the area
// of its enclosing bounds.
type Diagram struct {
	Name    string
	Shapes  []*shapes.Shape
	MapArea float64
}

// LoadDiagram reads a GeoJSON feature collection into a Diagram.
func LoadDiagram(path string) (*Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram: %w", err)
	}
	var collection geom.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("failed to parse diagram %s: %w", path, err)
	}

	diagram := &Diagram{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
	var bounds geom.Envelope
	for n, feature := range collection {
		shape := shapeFromFeature(feature, n)
		diagram.Shapes = append(diagram.Shapes, shape)
		bounds = bounds.ExpandToIncludeEnvelope(shape.Geometry.Envelope())
	}
	if mn, mx, ok := bounds.MinMaxXYs(); ok {
		diagram.MapArea = (mx.X - mn.X) * (mx.Y - mn.Y)
	}
	return diagram, nil
}

func shapeFromFeature(feature geom.GeoJSONFeature, position int) *shapes.Shape {
	props := feature.Properties
	id := stringProp(props, "id", fmt.Sprintf("shape/%d", position))
	shape := shapes.NewShape(id, presetType(stringProp(props, "type", "")), feature.Geometry)
	shape.Name = stringProp(props, "name", "")
	shape.Colour = stringProp(props, "colour", stringProp(props, "fill", ""))
	shape.Stroke = stringProp(props, "stroke", "")
	shape.Opacity = floatProp(props, "opacity", 1)
	shape.LineStyle = stringProp(props, "line-style", "")
	shape.ConnectionStart = stringProp(props, "connection-start", "")
	shape.ConnectionEnd = stringProp(props, "connection-end", "")
	shape.Directional = boolProp(props, "directional")
	if connector := stringProp(props, "connector", ""); connector != "" {
		shape.SetExtra("connector", connector)
	}
	if domain := stringProp(props, "domain", ""); domain != "" {
		shape.SetExtra("domain", domain)
	}
	return shape
}

func presetType(name string) shapes.Type {
	switch strings.ToLower(name) {
	case "layer":
		return shapes.Layer
	case "text":
		return shapes.Text
	case "feature":
		return shapes.Feature
	default:
		return shapes.Unknown
	}
}

func stringProp(props map[string]any, key, defaultValue string) string {
	if value, ok := props[key].(string); ok {
		return value
	}
	return defaultValue
}

func floatProp(props map[string]any, key string, defaultValue float64) float64 {
	if value, ok := props[key].(float64); ok {
		return value
	}
	return defaultValue
}

func boolProp(props map[string]any, key string) bool {
	value, ok := props[key].(bool)
	return ok && value
}
