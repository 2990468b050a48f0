package connections

import "strings"

// NormalizeColour canonicalizes a colour string for table lookup.
func NormalizeColour(colour string) string {
	colour = strings.ToUpper(strings.TrimSpace(colour))
	if colour != "" && !strings.HasPrefix(colour, "#") {
		colour = "#" + colour
	}
	return colour
}

// ColourTable maps fill/stroke colours to a description or kind string.
type ColourTable map[string]string

// Lookup finds the value for a colour, tolerating case and a missing '#'.
func (t ColourTable) Lookup(colour string) (string, bool) {
	value, ok := t[NormalizeColour(colour)]
	return value, ok
}

// ColourMatcher matches a single reference colour.
type ColourMatcher string

// Matches reports whether the colour is the reference colour.
func (m ColourMatcher) Matches(colour string) bool {
	return NormalizeColour(colour) == NormalizeColour(string(m))
}

// NeuronKinds gives a neural connection's description from its colour.
// Drawn as a small rect, small ellipse, or line.
var NeuronKinds = ColourTable{
	"#FF0000": "sympathetic",     // red
	"#EA3323": "sympathetic",     // red
	"#548235": "parasympathetic", // green
	"#5E813F": "parasympathetic", // green
	"#0070C0": "sensory",         // blue
	"#2F6EBA": "sensory",         // blue
	"#4472C4": "sensory",         // blue
	"#DE8344": "intrinsic",       // orange
	"#68349A": "motor",           // purple
}

// NeuronPathTypes maps a neuron colour to its pathway type.
var NeuronPathTypes = map[string]PathType{
	"#FF0000": PathSympathetic,
	"#EA3323": PathSympathetic,
	"#548235": PathParasympathetic,
	"#5E813F": PathParasympathetic,
	"#0070C0": PathSensory,
	"#2F6EBA": PathSensory,
	"#4472C4": PathSensory,
	"#DE8344": PathIntrinsic,
	"#68349A": PathMotor,
}

// PathTypeFromColour looks up a neuron pathway type by colour.
func PathTypeFromColour(colour string) PathType {
	if pathType, ok := NeuronPathTypes[NormalizeColour(colour)]; ok {
		return pathType
	}
	return PathUnknown
}

// VascularKinds gives a vascular connection's kind from its colour.
// Drawn as a small ellipse or line.
var VascularKinds = ColourTable{
	"#EA3323": "arterial", // red
	"#2F6EBA": "venous",   // blue
}

// VascularVesselKinds gives a vessel component's kind from its colour.
// Drawn as a large rect.
var VascularVesselKinds = map[string]FCKind{
	"#F1908B": KindArtery, // pale red
	"#EA3323": KindArtery, // red
	"#92A8DC": KindVein,   // pale blue
	"#2F6EBA": KindVein,   // blue
}

// NerveFeatureKinds gives a nerve feature's kind from its colour.
// Communicating branches are gradients. Drawn as a large rect.
var NerveFeatureKinds = ColourTable{
	"#ADFCFE": "cyan",       // e.g. upper branch of laryngeal nerve
	"#93FFFF": "cyan",       // e.g. upper branch of internal laryngeal nerve
	"#9FCE63": "green",      // e.g. maxillary nerve
	"#E5F0DB": "pale-green", // e.g. pterygopalatine ganglia
	"#ED70F8": "purple",     // e.g. pharyngeal nerve
	"#FDF3D0": "biege",      // e.g. pharyngeal nerve plexus, cardiac ganglia
	"#FFF3CC": "biege",      // e.g. carotid plexus
	"#FFD966": "dark-biege", // e.g. chorda tympani nerve
}

// OrganKinds gives an organ component's kind from its colour.
var OrganKinds = map[string]FCKind{
	"#000000": KindDiaphragm, // large rect, dashed line
}

// OrganColour is the fill of organ components.
var OrganColour = ColourMatcher("#D0CECE")

// VascularRegionColour is the fill of vascular regions.
var VascularRegionColour = ColourMatcher("#FF99CC") // pink
