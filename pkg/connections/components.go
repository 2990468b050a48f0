// Package connections builds the typed connectivity model of a classified
// diagram: connectors, connections between them, and one connection graph
// per pathway domain (neural, vascular), with multi-segment pathways merged
// into single logical edges.
package connections

import (
	"github.com/peterstace/simplefeatures/geom"

	"flatmap/pkg/shapes"
)

// MaxConnectionGap is how close a connection end must be to a connector of
// the same domain class to be connected to it, in map units.
const MaxConnectionGap = 4000.0

// CDClass is the structural class of a typed shape.
type CDClass int

const (
	CDUnknown    CDClass = iota
	CDLayer              // a slide layer
	CDComponent          // what has connectors
	CDConnector          // what a connection connects to
	CDConnection         // the path between connectors
	CDAnnotation         // additional information about something
)

func (c CDClass) String() string {
	switch c {
	case CDLayer:
		return "layer"
	case CDComponent:
		return "component"
	case CDConnector:
		return "connector"
	case CDConnection:
		return "connection"
	case CDAnnotation:
		return "annotation"
	default:
		return "unknown"
	}
}

// FCClass is the domain class of a typed shape. For connectors and
// connections it selects the per-domain connection graph.
type FCClass int

const (
	FCUnknown FCClass = iota
	FCLayer
	FCSystem
	FCOrgan
	FCFTU
	FCDescription
	FCHyperlink
	FCNeural
	FCVascular
)

func (c FCClass) String() string {
	switch c {
	case FCLayer:
		return "layer"
	case FCSystem:
		return "system"
	case FCOrgan:
		return "organ"
	case FCFTU:
		return "ftu"
	case FCDescription:
		return "description"
	case FCHyperlink:
		return "hyperlink"
	case FCNeural:
		return "neural"
	case FCVascular:
		return "vascular"
	default:
		return "unknown"
	}
}

// FCKind is the fine-grained kind of a typed shape, used for merge
// eligibility and rendering hints.
type FCKind int

const (
	KindUnknown FCKind = iota
	KindBrain
	KindDiaphragm

	KindArterial
	KindVenous
	KindVein
	KindArtery
	KindVascularRegion

	KindGanglion
	KindNeuron
	KindNerve
	KindPlexus

	KindConnectorJoiner  // double headed arrow
	KindConnectorFreeEnd // unattached connection end
	KindConnectorNode    // ganglionic node
	KindConnectorPort    // a neural connection end in an FTU
	KindConnectorThrough // cross in plexus and/or ganglion
)

func (k FCKind) String() string {
	switch k {
	case KindBrain:
		return "brain"
	case KindDiaphragm:
		return "diaphragm"
	case KindArterial:
		return "arterial"
	case KindVenous:
		return "venous"
	case KindVein:
		return "vein"
	case KindArtery:
		return "artery"
	case KindVascularRegion:
		return "vascular-region"
	case KindGanglion:
		return "ganglion"
	case KindNeuron:
		return "neuron"
	case KindNerve:
		return "nerve"
	case KindPlexus:
		return "plexus"
	case KindConnectorJoiner:
		return "connector-joiner"
	case KindConnectorFreeEnd:
		return "connector-free-end"
	case KindConnectorNode:
		return "connector-node"
	case KindConnectorPort:
		return "connector-port"
	case KindConnectorThrough:
		return "connector-through"
	default:
		return "unknown"
	}
}

// PathType classifies a neuron pathway.
type PathType int

const (
	PathUnknown PathType = iota
	PathSympathetic
	PathParasympathetic
	PathSensory
	PathIntrinsic
	PathMotor
)

// FCShape augments a classified shape with its three classification axes
// and a colour-derived description.
type FCShape struct {
	Shape       *shapes.Shape
	CDClass     CDClass
	FCClass     FCClass
	FCKind      FCKind
	Description string
}

func (f *FCShape) ID() string {
	return f.Shape.ID
}

func (f *FCShape) Geometry() geom.Geometry {
	return f.Shape.Geometry
}

func (f *FCShape) Colour() string {
	return f.Shape.Colour
}

func (f *FCShape) Name() string {
	return f.Shape.Name
}

// Component is a structural component: something that carries connectors.
type Component struct {
	FCShape
	Children []*FCShape

	// longSide is the component's bounding-box diagonal, the yardstick
	// for deciding whether a connection runs along the component rather
	// than merely clipping it.
	longSide float64
}

// NewComponent wraps a classified shape as a component. Layer shapes become
// LAYER/LAYER.
func NewComponent(s *shapes.Shape) *Component {
	component := &Component{FCShape: FCShape{Shape: s, CDClass: CDComponent}}
	if s.Type() == shapes.Layer {
		component.CDClass = CDLayer
		component.FCClass = FCLayer
	}
	return component
}

// Connector is what a connection resolves its endpoints to.
type Connector struct {
	FCShape
	Parent   *Component
	PathType PathType
}

// NewConnector wraps a classified shape as a connector.
func NewConnector(s *shapes.Shape) *Connector {
	return &Connector{FCShape: FCShape{Shape: s, CDClass: CDConnector}}
}

// Connection is a pathway between two connectors. ConnectorIDs holds the
// resolved endpoint connectors; IntermediateConnectors records the
// through-connectors absorbed when segments are joined.
type Connection struct {
	FCShape
	ConnectorIDs           []string
	IntermediateConnectors []string
	PathType               PathType
}

// NewConnection wraps a classified line shape as a connection.
func NewConnection(s *shapes.Shape) *Connection {
	return &Connection{FCShape: FCShape{Shape: s, CDClass: CDConnection}}
}

// Annotation carries additional information about another shape.
type Annotation struct {
	FCShape
	Parent *Component
}

// NewAnnotation wraps a shape as an annotation of the given domain class.
func NewAnnotation(s *shapes.Shape, fcClass FCClass) *Annotation {
	return &Annotation{FCShape: FCShape{Shape: s, CDClass: CDAnnotation, FCClass: fcClass}}
}
