package sketch

import (
	"math"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// DimType selects what a dimension measures.
type DimType int

const (
	DimDistance DimType = iota // point-point, point-segment or segment length
	DimDX                      // horizontal distance
	DimDY                      // vertical distance
	DimAngle                   // angle between two segments, degrees
	DimRadius                  // circle or arc radius
	DimLength                  // segment length
)

var dimTypeNames = [...]string{"distance", "dx", "dy", "angle", "radius", "length"}

func (d DimType) String() string {
	if d >= 0 && int(d) < len(dimTypeNames) {
		return dimTypeNames[d]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (d DimType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DimType) UnmarshalText(b []byte) error {
	for i, n := range dimTypeNames {
		if n == string(b) {
			*d = DimType(i)
			return nil
		}
	}
	*d = DimDistance
	return nil
}

// DisplayMode selects how a dimension label is rendered.
type DisplayMode int

const (
	DisplayValue DisplayMode = iota
	DisplayName
	DisplayBoth
)

var displayModeNames = [...]string{"value", "name", "both"}

func (m DisplayMode) String() string {
	if m >= 0 && int(m) < len(displayModeNames) {
		return displayModeNames[m]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (m DisplayMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DisplayMode) UnmarshalText(b []byte) error {
	for i, n := range displayModeNames {
		if n == string(b) {
			*m = DisplayMode(i)
			return nil
		}
	}
	*m = DisplayValue
	return nil
}

// Dimension is a visible measurement annotation. With IsConstraint set it
// also drives geometry: the scene holds a KindDimension constraint for it
// and its residual pulls the measured quantity towards Value, or towards
// Formula when one is set.
type Dimension struct {
	ID           ID          `json:"id"`
	X1           float64     `json:"x1"`
	Y1           float64     `json:"y1"`
	X2           float64     `json:"x2"`
	Y2           float64     `json:"y2"`
	Offset       float64     `json:"offset"`
	DimType      DimType     `json:"dimType"`
	SourceA      ID          `json:"sourceAId,omitempty"`
	SourceB      ID          `json:"sourceBId,omitempty"`
	IsConstraint bool        `json:"isConstraint"`
	DisplayMode  DisplayMode `json:"displayMode"`
	Formula      *Value      `json:"formula"`
	VariableName string      `json:"variableName,omitempty"`
	Value        float64     `json:"value"`
	Style
}

func (d *Dimension) ShapeID() ID     { return d.ID }
func (d *Dimension) PointRefs() []ID { return nil }

func (d *Dimension) rewire(from, to ID) {
	if d.SourceA == from {
		d.SourceA = to
	}
	if d.SourceB == from {
		d.SourceB = to
	}
}

func (d *Dimension) distanceTo(_ *Scene, q geom.Vec2) float64 {
	a := geom.Vec2{X: d.X1, Y: d.Y1}
	b := geom.Vec2{X: d.X2, Y: d.Y2}
	ab := r2.Sub(b, a)
	l2 := r2.Dot(ab, ab)
	if l2 < geom.Epsilon {
		return r2.Norm(r2.Sub(q, a))
	}
	t := math.Max(0, math.Min(1, r2.Dot(r2.Sub(q, a), ab)/l2))
	return r2.Norm(r2.Sub(q, r2.Add(a, r2.Scale(t, ab))))
}

// Driven reports whether the dimension's value comes from a formula.
func (d *Dimension) Driven() bool { return d.Formula != nil }

// DimensionOptions configures AddDimension.
type DimensionOptions struct {
	Offset       float64
	SourceA      ID
	SourceB      ID
	IsConstraint bool
	DisplayMode  DisplayMode
	Formula      *Value
	VariableName string
	Style        Style
}

// Measure returns the quantity the dimension describes in the current
// geometry. Angles are in degrees. ok is false when a source is missing.
func (s *Scene) Measure(d *Dimension) (v float64, ok bool) {
	switch d.DimType {
	case DimLength:
		a, b, ok := s.segmentEndsByID(d.SourceA)
		if !ok {
			return 0, false
		}
		return r2.Norm(r2.Sub(b, a)), true

	case DimRadius:
		r, ok := s.radiusOf(d.SourceA)
		return r, ok

	case DimAngle:
		a1, a2, okA := s.segmentEndsByID(d.SourceA)
		b1, b2, okB := s.segmentEndsByID(d.SourceB)
		if !okA || !okB {
			return 0, false
		}
		return signedAngle(r2.Sub(a2, a1), r2.Sub(b2, b1)) * 180 / math.Pi, true

	case DimDX, DimDY, DimDistance:
		a, b, ok := s.dimensionEnds(d)
		if !ok {
			return 0, false
		}
		switch d.DimType {
		case DimDX:
			return math.Abs(b.X - a.X), true
		case DimDY:
			return math.Abs(b.Y - a.Y), true
		}
		if p, okP := s.Point(d.SourceA); okP {
			if l1, l2, okS := s.segmentEndsByID(d.SourceB); okS {
				return pointLineDistance(p.Vec(), l1, l2), true
			}
		}
		return r2.Norm(r2.Sub(b, a)), true
	}
	return 0, false
}

// dimensionEnds returns the two locations a linear dimension spans: two
// source points, the ends of a source segment, or its own anchor points when
// it has no sources.
func (s *Scene) dimensionEnds(d *Dimension) (a, b geom.Vec2, ok bool) {
	if d.SourceA == 0 && d.SourceB == 0 {
		return geom.Vec2{X: d.X1, Y: d.Y1}, geom.Vec2{X: d.X2, Y: d.Y2}, true
	}
	if d.SourceB == 0 {
		return s.segmentEndsByID(d.SourceA)
	}
	pa, okA := s.Point(d.SourceA)
	pb, okB := s.Point(d.SourceB)
	if okA && okB {
		return pa.Vec(), pb.Vec(), true
	}
	if okA {
		l1, l2, okS := s.segmentEndsByID(d.SourceB)
		if !okS {
			return geom.Vec2{}, geom.Vec2{}, false
		}
		return pa.Vec(), closestOnLine(pa.Vec(), l1, l2), true
	}
	return geom.Vec2{}, geom.Vec2{}, false
}

// dimensionTarget is the value a constraining dimension drives towards.
func (s *Scene) dimensionTarget(d *Dimension) (float64, bool) {
	if d.Formula != nil {
		return s.resolve(*d.Formula)
	}
	return d.Value, true
}

// RefreshDimensions updates dimension anchors and values from the geometry
// and publishes named dimensions into the variable table. Driven dimensions
// take their value from the formula; free annotations take the measured
// value; constraining dimensions without a formula keep their value.
func (s *Scene) RefreshDimensions() {
	for _, d := range s.dimensions {
		if a, b, ok := s.dimensionEnds(d); ok && (d.SourceA != 0 || d.SourceB != 0) {
			d.X1, d.Y1, d.X2, d.Y2 = a.X, a.Y, b.X, b.Y
		}
		switch {
		case d.Formula != nil:
			if v, ok := s.resolve(*d.Formula); ok {
				d.Value = v
			}
		case !d.IsConstraint:
			if v, ok := s.Measure(d); ok {
				d.Value = v
			}
		}
		if d.VariableName != "" {
			if err := s.Variables().Set(d.VariableName, d.Value); err != nil {
				s.log().Warn().Err(err).Int64("dimension", int64(d.ID)).Msg("cannot publish dimension variable")
			}
		}
	}
}

// Label returns the text a renderer shows for the dimension.
func (d *Dimension) Label() string {
	val := Literal(d.Value).String()
	if d.DimType == DimAngle {
		val += "°"
	}
	name := d.VariableName
	if name == "" && d.Formula != nil && d.Formula.IsExpr() {
		name = d.Formula.Expr
	}
	switch d.DisplayMode {
	case DisplayName:
		if name != "" {
			return name
		}
	case DisplayBoth:
		if name != "" {
			return name + " = " + val
		}
	}
	return val
}
