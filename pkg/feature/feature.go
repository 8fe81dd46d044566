package feature

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"github.com/samber/lo"
)

// ID identifies a feature. IDs are process-unique and increase
// monotonically.
type ID uint64

var lastID atomic.Uint64

// NextID allocates a fresh feature ID.
func NextID() ID { return ID(lastID.Add(1)) }

// reserveID ensures future IDs are greater than id.
func reserveID(id ID) {
	for {
		cur := lastID.Load()
		if uint64(id) <= cur || lastID.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

// Type enumerates the feature kinds.
type Type int

const (
	TypeSketch  Type = iota // 2D sketch on a plane
	TypeExtrude             // linear extrusion of a sketch's profiles
	TypeRevolve             // revolution of a sketch's profiles about an axis
)

func (t Type) String() string {
	switch t {
	case TypeSketch:
		return "sketch"
	case TypeExtrude:
		return "extrude"
	case TypeRevolve:
		return "revolve"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	s := t.String()
	if s == "unknown" {
		return nil, fmt.Errorf("feature: unknown type %d", int(t))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	switch string(b) {
	case "sketch":
		*t = TypeSketch
	case "extrude":
		*t = TypeExtrude
	case "revolve":
		*t = TypeRevolve
	default:
		return fmt.Errorf("feature: unknown type %q", b)
	}
	return nil
}

// Operation selects how a generated solid combines with the upstream solid.
type Operation int

const (
	OpNew       Operation = iota // standalone body
	OpAdd                        // union with the previous solid
	OpSubtract                   // previous solid minus the new one
	OpIntersect                  // overlap of both
)

func (o Operation) String() string {
	switch o {
	case OpNew:
		return "new"
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpIntersect:
		return "intersect"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	if o < OpNew || o > OpIntersect {
		return nil, fmt.Errorf("feature: unknown operation %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string
// decodes as OpNew.
func (o *Operation) UnmarshalText(b []byte) error {
	switch string(b) {
	case "new", "":
		*o = OpNew
	case "add":
		*o = OpAdd
	case "subtract":
		*o = OpSubtract
	case "intersect":
		*o = OpIntersect
	default:
		return fmt.Errorf("feature: unknown operation %q", b)
	}
	return nil
}

// Axis selects the sketch axis a revolve turns about.
type Axis int

const (
	AxisY Axis = iota // sketch Y axis; radius is the sketch X coordinate
	AxisX             // sketch X axis; radius is the sketch Y coordinate
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(b []byte) error {
	switch string(b) {
	case "y", "":
		*a = AxisY
	case "x":
		*a = AxisX
	default:
		return fmt.Errorf("feature: unknown axis %q", b)
	}
	return nil
}

// Feature is a node in the parametric history.
type Feature struct {
	ID           ID
	Name         string
	Type         Type
	Suppressed   bool
	Visible      bool
	Dependencies []ID
	Children     []ID
	Created      time.Time
	Modified     time.Time
	Error        string // last execution error, empty on success
	Data         Data
}

// Data is the interface for kind-specific feature payloads.
type Data interface {
	featureData() // marker method restricting implementations to this package
}

// ----------------------------------------------------------------------------
// Sketch
// ----------------------------------------------------------------------------

// SketchData embeds a sketch on a plane.
type SketchData struct {
	Sketch *sketch.Sketch
	Plane  geom.Plane
}

func (*SketchData) featureData() {}

// ----------------------------------------------------------------------------
// Extrude
// ----------------------------------------------------------------------------

// ExtrudeParams are the tunable inputs of an extrusion.
type ExtrudeParams struct {
	Distance  float64
	Direction float64 // +1 along the plane normal, -1 against; zero means +1
	Symmetric bool    // extrude half the distance to each side
	Operation Operation
}

// ExtrudeData extrudes the closed profiles of a sketch feature.
type ExtrudeData struct {
	SketchFeatureID ID
	ExtrudeParams
}

func (*ExtrudeData) featureData() {}

// SetDistance changes the extrusion length.
func (d *ExtrudeData) SetDistance(v float64) { d.Distance = v }

func (d *ExtrudeData) direction() float64 {
	if d.Direction < 0 {
		return -1
	}
	return 1
}

// ----------------------------------------------------------------------------
// Revolve
// ----------------------------------------------------------------------------

// DefaultRevolveSegments is the angular resolution of a full revolution.
const DefaultRevolveSegments = 32

// fullTurnTolerance is how close to 2π an angle must be to skip the caps.
const fullTurnTolerance = 0.01

// RevolveParams are the tunable inputs of a revolution.
type RevolveParams struct {
	Angle     float64 // radians; zero means a full turn
	Segments  int     // angular steps; zero means DefaultRevolveSegments
	Axis      Axis
	Operation Operation
}

// RevolveData revolves the closed profiles of a sketch feature.
type RevolveData struct {
	SketchFeatureID ID
	RevolveParams
}

func (*RevolveData) featureData() {}

// SetAngle changes the sweep angle in radians.
func (d *RevolveData) SetAngle(v float64) { d.Angle = v }

func (d *RevolveData) angle() float64 {
	if d.Angle == 0 {
		return 2 * math.Pi
	}
	return d.Angle
}

func (d *RevolveData) segments() int {
	if d.Segments <= 0 {
		return DefaultRevolveSegments
	}
	return d.Segments
}

// fullTurn reports whether the revolve closes on itself.
func (d *RevolveData) fullTurn() bool {
	return math.Abs(math.Abs(d.angle())-2*math.Pi) <= fullTurnTolerance
}

// ----------------------------------------------------------------------------
// Constructors
// ----------------------------------------------------------------------------

func newFeature(name string, t Type, data Data, deps ...ID) *Feature {
	ts := time.Now().UTC().Round(0)
	return &Feature{
		ID:           NextID(),
		Name:         name,
		Type:         t,
		Visible:      true,
		Dependencies: deps,
		Created:      ts,
		Modified:     ts,
		Data:         data,
	}
}

// NewSketch returns a sketch feature. A nil sketch gets an empty one.
func NewSketch(name string, sk *sketch.Sketch, plane geom.Plane) *Feature {
	if sk == nil {
		sk = sketch.New(name)
	}
	return newFeature(name, TypeSketch, &SketchData{Sketch: sk, Plane: plane})
}

// NewExtrude returns an extrude feature depending on the sketch feature.
func NewExtrude(name string, sketchID ID, p ExtrudeParams) *Feature {
	return newFeature(name, TypeExtrude, &ExtrudeData{SketchFeatureID: sketchID, ExtrudeParams: p}, sketchID)
}

// NewRevolve returns a revolve feature depending on the sketch feature.
func NewRevolve(name string, sketchID ID, p RevolveParams) *Feature {
	return newFeature(name, TypeRevolve, &RevolveData{SketchFeatureID: sketchID, RevolveParams: p}, sketchID)
}

// sketchRef returns the sketch feature consumed by solid feature data.
func sketchRef(d Data) (ID, bool) {
	switch d := d.(type) {
	case *ExtrudeData:
		return d.SketchFeatureID, true
	case *RevolveData:
		return d.SketchFeatureID, true
	}
	return 0, false
}

func setSketchRef(d Data, id ID) {
	switch d := d.(type) {
	case *ExtrudeData:
		d.SketchFeatureID = id
	case *RevolveData:
		d.SketchFeatureID = id
	}
}

// Touch bumps the modification time.
func (f *Feature) Touch() { f.Modified = time.Now().UTC().Round(0) }

// DependsOn reports whether id is a direct dependency of f.
func (f *Feature) DependsOn(id ID) bool {
	return lo.Contains(f.Dependencies, id)
}

// AddChild records id as a consumer of f, ignoring repeats.
func (f *Feature) AddChild(id ID) {
	if !lo.Contains(f.Children, id) {
		f.Children = append(f.Children, id)
	}
}
