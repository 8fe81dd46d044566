package sketch

import (
	"fmt"
	"math"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// Kind names a constraint variant.
type Kind int

const (
	KindCoincident         Kind = iota // Points: a, b
	KindHorizontal                     // Shapes: segment
	KindVertical                       // Shapes: segment
	KindParallel                       // Shapes: segment, segment
	KindPerpendicular                  // Shapes: segment, segment
	KindAngle                          // Shapes: segment, segment; Value radians
	KindEqualLength                    // Shapes: segment, segment
	KindLength                         // Shapes: segment; Value
	KindDistance                       // Points: a, b; Value
	KindFixed                          // Points: p; Anchor
	KindRadius                         // Shapes: circle or arc; Value
	KindTangent                        // Shapes: segment, circle or arc
	KindOnLine                         // Points: p; Shapes: segment
	KindOnCircle                       // Points: p; Shapes: circle or arc
	KindMidpoint                       // Points: p; Shapes: segment
	KindHorizontalDistance             // Points: a, b; Value
	KindVerticalDistance               // Points: a, b; Value
	KindPointLineDistance              // Points: p; Shapes: segment; Value
	KindDimension                      // Shapes: dimension
)

var kindNames = [...]string{
	"coincident", "horizontal", "vertical", "parallel", "perpendicular",
	"angle", "equal_length", "length", "distance", "fixed", "radius",
	"tangent", "on_line", "on_circle", "midpoint", "horizontal_distance",
	"vertical_distance", "point_line_distance", "dimension",
}

// operand counts per kind: points, shapes.
var kindArity = [...][2]int{
	{2, 0}, {0, 1}, {0, 1}, {0, 2}, {0, 2},
	{0, 2}, {0, 2}, {0, 1}, {2, 0}, {1, 0}, {0, 1},
	{0, 2}, {1, 1}, {1, 1}, {1, 1}, {2, 0},
	{2, 0}, {1, 1}, {0, 1},
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("sketch: unknown constraint kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("sketch: unknown constraint kind %q", b)
}

// Anchor is the position a fixed constraint holds its point at.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Constraint is a geometric relation between primitives. Which operand
// slices are used depends on Kind; see the Kind constants.
type Constraint struct {
	ID     ID      `json:"id"`
	Kind   Kind    `json:"kind"`
	Points []ID    `json:"points,omitempty"`
	Shapes []ID    `json:"shapes,omitempty"`
	Value  Value   `json:"value"`
	Anchor *Anchor `json:"anchor,omitempty"`
}

// References returns every primitive ID the constraint names.
func (c *Constraint) References() []ID {
	out := make([]ID, 0, len(c.Points)+len(c.Shapes))
	out = append(out, c.Points...)
	return append(out, c.Shapes...)
}

func (c *Constraint) clone() *Constraint {
	cp := *c
	cp.Points = append([]ID(nil), c.Points...)
	cp.Shapes = append([]ID(nil), c.Shapes...)
	if c.Anchor != nil {
		a := *c.Anchor
		cp.Anchor = &a
	}
	return &cp
}

// Constructors. IDs are assigned by Scene.AddConstraint.

func Coincident(a, b ID) Constraint { return Constraint{Kind: KindCoincident, Points: []ID{a, b}} }
func Horizontal(seg ID) Constraint  { return Constraint{Kind: KindHorizontal, Shapes: []ID{seg}} }
func Vertical(seg ID) Constraint    { return Constraint{Kind: KindVertical, Shapes: []ID{seg}} }

func Parallel(a, b ID) Constraint {
	return Constraint{Kind: KindParallel, Shapes: []ID{a, b}}
}

func Perpendicular(a, b ID) Constraint {
	return Constraint{Kind: KindPerpendicular, Shapes: []ID{a, b}}
}

// Angle constrains the signed angle from segment a to segment b, radians.
func Angle(a, b ID, v Value) Constraint {
	return Constraint{Kind: KindAngle, Shapes: []ID{a, b}, Value: v}
}

func EqualLength(a, b ID) Constraint {
	return Constraint{Kind: KindEqualLength, Shapes: []ID{a, b}}
}

func Length(seg ID, v Value) Constraint {
	return Constraint{Kind: KindLength, Shapes: []ID{seg}, Value: v}
}

func Distance(a, b ID, v Value) Constraint {
	return Constraint{Kind: KindDistance, Points: []ID{a, b}, Value: v}
}

func HorizontalDistance(a, b ID, v Value) Constraint {
	return Constraint{Kind: KindHorizontalDistance, Points: []ID{a, b}, Value: v}
}

func VerticalDistance(a, b ID, v Value) Constraint {
	return Constraint{Kind: KindVerticalDistance, Points: []ID{a, b}, Value: v}
}

// Fixed pins a point. The anchor is captured from the point's position when
// the constraint is added unless one is given here.
func Fixed(p ID) Constraint { return Constraint{Kind: KindFixed, Points: []ID{p}} }

func Radius(shape ID, v Value) Constraint {
	return Constraint{Kind: KindRadius, Shapes: []ID{shape}, Value: v}
}

func Tangent(seg, circle ID) Constraint {
	return Constraint{Kind: KindTangent, Shapes: []ID{seg, circle}}
}

func OnLine(p, seg ID) Constraint {
	return Constraint{Kind: KindOnLine, Points: []ID{p}, Shapes: []ID{seg}}
}

func OnCircle(p, circle ID) Constraint {
	return Constraint{Kind: KindOnCircle, Points: []ID{p}, Shapes: []ID{circle}}
}

func Midpoint(p, seg ID) Constraint {
	return Constraint{Kind: KindMidpoint, Points: []ID{p}, Shapes: []ID{seg}}
}

func PointLineDistance(p, seg ID, v Value) Constraint {
	return Constraint{Kind: KindPointLineDistance, Points: []ID{p}, Shapes: []ID{seg}, Value: v}
}

// axis selects which solver variable a gradient entry belongs to.
type axis int

const (
	axisX axis = iota
	axisY
	axisRadius
)

type grad struct {
	ref  ID
	axis axis
	g    float64
}

// term is one scalar residual component with its gradient.
type term struct {
	r     float64
	grads []grad
}

func pointGrad(id ID, g geom.Vec2) []grad {
	return []grad{{id, axisX, g.X}, {id, axisY, g.Y}}
}

// validateConstraint checks operand arity and that every operand names a
// primitive of a suitable kind.
func (s *Scene) validateConstraint(c *Constraint) error {
	if c.Kind < 0 || int(c.Kind) >= len(kindArity) {
		return fmt.Errorf("sketch: unknown constraint kind %d", int(c.Kind))
	}
	ar := kindArity[c.Kind]
	if len(c.Points) != ar[0] || len(c.Shapes) != ar[1] {
		return fmt.Errorf("sketch: %s constraint needs %d points and %d shapes, got %d and %d",
			c.Kind, ar[0], ar[1], len(c.Points), len(c.Shapes))
	}
	for _, p := range c.Points {
		if _, ok := s.Point(p); !ok {
			return &ReferenceError{Kind: "constraint", ID: c.ID, Ref: p}
		}
	}
	for i, id := range c.Shapes {
		sh, ok := s.Shape(id)
		if !ok {
			return &ReferenceError{Kind: "constraint", ID: c.ID, Ref: id}
		}
		var want string
		switch c.Kind {
		case KindRadius, KindOnCircle:
			want = "circle"
		case KindTangent:
			want = "segment"
			if i == 1 {
				want = "circle"
			}
		case KindDimension:
			want = "dimension"
		default:
			want = "segment"
		}
		if !shapeIs(sh, want) {
			return fmt.Errorf("sketch: %s constraint operand %d must be a %s: %w", c.Kind, id, want, ErrUnknownPrimitive)
		}
	}
	return nil
}

func shapeIs(sh Shape, want string) bool {
	switch sh.(type) {
	case *Segment:
		return want == "segment"
	case *Circle, *Arc:
		return want == "circle"
	case *Dimension:
		return want == "dimension"
	}
	return false
}

// Residuals returns the constraint's residual components. All components
// are zero exactly when the constraint is satisfied. Missing operands and
// unresolved values yield no components.
func (s *Scene) Residuals(c *Constraint) []float64 {
	ts := s.terms(c)
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.r
	}
	return out
}

// ConstraintError returns the magnitude of the constraint's residual. It
// does not mutate geometry.
func (s *Scene) ConstraintError(c *Constraint) float64 {
	if _, ok := s.resolveConstraintValue(c); !ok {
		s.log().Warn().Int64("constraint", int64(c.ID)).Str("value", c.Value.String()).
			Msg("constraint value unresolved; treating as satisfied")
		return 0
	}
	var sum float64
	for _, t := range s.terms(c) {
		sum += t.r * t.r
	}
	return math.Sqrt(sum)
}

// ConstraintSatisfied reports whether the residual is below tol.
func (s *Scene) ConstraintSatisfied(c *Constraint, tol float64) bool {
	return s.ConstraintError(c) < tol
}

func (s *Scene) resolveConstraintValue(c *Constraint) (float64, bool) {
	switch c.Kind {
	case KindAngle, KindLength, KindDistance, KindRadius,
		KindHorizontalDistance, KindVerticalDistance, KindPointLineDistance:
		return s.resolve(c.Value)
	case KindDimension:
		if len(c.Shapes) == 1 {
			if d, ok := s.Dimension(c.Shapes[0]); ok {
				return s.dimensionTarget(d)
			}
		}
	}
	return 0, true
}

// terms evaluates the residual components and gradients of c.
func (s *Scene) terms(c *Constraint) []term {
	if c.Kind == KindDimension {
		dc, ok := s.dimensionConstraint(c)
		if !ok {
			return nil
		}
		return s.terms(dc)
	}
	v, ok := s.resolveConstraintValue(c)
	if !ok {
		return nil
	}

	switch c.Kind {
	case KindCoincident:
		a, okA := s.Point(c.Points[0])
		b, okB := s.Point(c.Points[1])
		if !okA || !okB {
			return nil
		}
		return []term{
			{a.X - b.X, []grad{{a.ID, axisX, 1}, {b.ID, axisX, -1}}},
			{a.Y - b.Y, []grad{{a.ID, axisY, 1}, {b.ID, axisY, -1}}},
		}

	case KindHorizontal, KindVertical:
		g, ok := s.Segment(c.Shapes[0])
		if !ok {
			return nil
		}
		p1, p2, ok := s.segmentPoints(g)
		if !ok {
			return nil
		}
		if c.Kind == KindHorizontal {
			return []term{{p2.Y - p1.Y, []grad{{p2.ID, axisY, 1}, {p1.ID, axisY, -1}}}}
		}
		return []term{{p2.X - p1.X, []grad{{p2.ID, axisX, 1}, {p1.ID, axisX, -1}}}}

	case KindParallel, KindPerpendicular, KindAngle, KindEqualLength:
		ga, okA := s.Segment(c.Shapes[0])
		gb, okB := s.Segment(c.Shapes[1])
		if !okA || !okB {
			return nil
		}
		a1, a2, okA := s.segmentPoints(ga)
		b1, b2, okB := s.segmentPoints(gb)
		if !okA || !okB {
			return nil
		}
		return twoLineTerm(c.Kind, v, a1, a2, b1, b2)

	case KindLength:
		g, ok := s.Segment(c.Shapes[0])
		if !ok {
			return nil
		}
		p1, p2, ok := s.segmentPoints(g)
		if !ok {
			return nil
		}
		return []term{distanceTerm(p1, p2, v)}

	case KindDistance:
		a, okA := s.Point(c.Points[0])
		b, okB := s.Point(c.Points[1])
		if !okA || !okB {
			return nil
		}
		return []term{distanceTerm(a, b, v)}

	case KindHorizontalDistance, KindVerticalDistance:
		a, okA := s.Point(c.Points[0])
		b, okB := s.Point(c.Points[1])
		if !okA || !okB {
			return nil
		}
		ax := axisX
		d := b.X - a.X
		if c.Kind == KindVerticalDistance {
			ax = axisY
			d = b.Y - a.Y
		}
		sgn := 1.0
		if d < 0 {
			sgn = -1
		}
		return []term{{math.Abs(d) - v, []grad{{b.ID, ax, sgn}, {a.ID, ax, -sgn}}}}

	case KindFixed:
		p, ok := s.Point(c.Points[0])
		if !ok || c.Anchor == nil {
			return nil
		}
		return []term{
			{p.X - c.Anchor.X, []grad{{p.ID, axisX, 1}}},
			{p.Y - c.Anchor.Y, []grad{{p.ID, axisY, 1}}},
		}

	case KindRadius:
		r, ok := s.radiusOf(c.Shapes[0])
		if !ok {
			return nil
		}
		return []term{{r - v, []grad{{c.Shapes[0], axisRadius, 1}}}}

	case KindTangent:
		g, ok := s.Segment(c.Shapes[0])
		if !ok {
			return nil
		}
		p1, p2, ok := s.segmentPoints(g)
		if !ok {
			return nil
		}
		ctr, r, ok := s.circleOf(c.Shapes[1])
		if !ok {
			return nil
		}
		t, ok := pointLineTerm(ctr, p1, p2, true)
		if !ok {
			return nil
		}
		t.r -= r
		t.grads = append(t.grads, grad{c.Shapes[1], axisRadius, -1})
		return []term{t}

	case KindOnLine, KindPointLineDistance:
		p, okP := s.Point(c.Points[0])
		g, okG := s.Segment(c.Shapes[0])
		if !okP || !okG {
			return nil
		}
		p1, p2, ok := s.segmentPoints(g)
		if !ok {
			return nil
		}
		t, ok := pointLineTerm(p, p1, p2, c.Kind == KindPointLineDistance)
		if !ok {
			return nil
		}
		if c.Kind == KindPointLineDistance {
			t.r -= v
		}
		return []term{t}

	case KindOnCircle:
		p, okP := s.Point(c.Points[0])
		ctr, r, okC := s.circleOf(c.Shapes[0])
		if !okP || !okC {
			return nil
		}
		d := r2.Sub(p.Vec(), ctr.Vec())
		u := geom.Unit2(d)
		if u == (geom.Vec2{}) {
			u = geom.Vec2{X: 1}
		}
		gs := append(pointGrad(p.ID, u), pointGrad(ctr.ID, r2.Scale(-1, u))...)
		gs = append(gs, grad{c.Shapes[0], axisRadius, -1})
		return []term{{r2.Norm(d) - r, gs}}

	case KindMidpoint:
		p, okP := s.Point(c.Points[0])
		g, okG := s.Segment(c.Shapes[0])
		if !okP || !okG {
			return nil
		}
		p1, p2, ok := s.segmentPoints(g)
		if !ok {
			return nil
		}
		return []term{
			{p.X - (p1.X+p2.X)/2, []grad{{p.ID, axisX, 1}, {p1.ID, axisX, -0.5}, {p2.ID, axisX, -0.5}}},
			{p.Y - (p1.Y+p2.Y)/2, []grad{{p.ID, axisY, 1}, {p1.ID, axisY, -0.5}, {p2.ID, axisY, -0.5}}},
		}
	}
	return nil
}

// dimensionConstraint translates a constraining dimension into the plain
// constraint it stands for, with the target value resolved.
func (s *Scene) dimensionConstraint(c *Constraint) (*Constraint, bool) {
	if len(c.Shapes) != 1 {
		return nil, false
	}
	d, ok := s.Dimension(c.Shapes[0])
	if !ok {
		return nil, false
	}
	v, ok := s.dimensionTarget(d)
	if !ok {
		return nil, false
	}
	lit := Literal(v)
	_, aIsPoint := s.Point(d.SourceA)
	_, bIsPoint := s.Point(d.SourceB)
	_, aIsSeg := s.Segment(d.SourceA)
	_, bIsSeg := s.Segment(d.SourceB)

	var out Constraint
	switch d.DimType {
	case DimRadius:
		if _, ok := s.radiusOf(d.SourceA); !ok {
			return nil, false
		}
		out = Radius(d.SourceA, lit)
	case DimAngle:
		if !aIsSeg || !bIsSeg {
			return nil, false
		}
		out = Angle(d.SourceA, d.SourceB, Literal(v*math.Pi/180))
	case DimLength:
		if !aIsSeg {
			return nil, false
		}
		out = Length(d.SourceA, lit)
	case DimDistance:
		switch {
		case aIsPoint && bIsPoint:
			out = Distance(d.SourceA, d.SourceB, lit)
		case aIsPoint && bIsSeg:
			out = PointLineDistance(d.SourceA, d.SourceB, lit)
		case aIsSeg && d.SourceB == 0:
			out = Length(d.SourceA, lit)
		default:
			return nil, false
		}
	case DimDX, DimDY:
		a, b := d.SourceA, d.SourceB
		if aIsSeg && d.SourceB == 0 {
			g, _ := s.Segment(d.SourceA)
			a, b = g.P1, g.P2
		} else if !aIsPoint || !bIsPoint {
			return nil, false
		}
		if d.DimType == DimDX {
			out = HorizontalDistance(a, b, lit)
		} else {
			out = VerticalDistance(a, b, lit)
		}
	default:
		return nil, false
	}
	out.ID = c.ID
	return &out, true
}

func distanceTerm(a, b *Point, v float64) term {
	d := r2.Sub(b.Vec(), a.Vec())
	u := geom.Unit2(d)
	if u == (geom.Vec2{}) {
		u = geom.Vec2{X: 1}
	}
	return term{r2.Norm(d) - v, append(pointGrad(b.ID, u), pointGrad(a.ID, r2.Scale(-1, u))...)}
}

// pointLineTerm is the signed distance from p to the infinite line through
// l1 and l2, or its absolute value when unsigned is set.
func pointLineTerm(p, l1, l2 *Point, unsigned bool) (term, bool) {
	dir := r2.Sub(l2.Vec(), l1.Vec())
	length := r2.Norm(dir)
	if length < geom.Epsilon {
		return term{}, false
	}
	u := r2.Scale(1/length, dir)
	n := geom.Vec2{X: -u.Y, Y: u.X}
	d := r2.Sub(p.Vec(), l1.Vec())
	cr := r2.Cross(u, d)
	t := r2.Dot(d, u) / length
	sgn := 1.0
	if unsigned && cr < 0 {
		sgn = -1
	}
	n = r2.Scale(sgn, n)
	gs := pointGrad(p.ID, n)
	gs = append(gs, pointGrad(l1.ID, r2.Scale(-(1-t), n))...)
	gs = append(gs, pointGrad(l2.ID, r2.Scale(-t, n))...)
	return term{sgn * cr, gs}, true
}

func twoLineTerm(k Kind, v float64, a1, a2, b1, b2 *Point) []term {
	da := r2.Sub(a2.Vec(), a1.Vec())
	db := r2.Sub(b2.Vec(), b1.Vec())
	la, lb := r2.Norm(da), r2.Norm(db)
	if la < geom.Epsilon || lb < geom.Epsilon {
		return nil
	}
	grads := func(ga, gb geom.Vec2) []grad {
		gs := pointGrad(a2.ID, ga)
		gs = append(gs, pointGrad(a1.ID, r2.Scale(-1, ga))...)
		gs = append(gs, pointGrad(b2.ID, gb)...)
		return append(gs, pointGrad(b1.ID, r2.Scale(-1, gb))...)
	}
	k2 := la * lb
	switch k {
	case KindParallel:
		r := r2.Cross(da, db) / k2
		return []term{{r, grads(
			geom.Vec2{X: db.Y / k2, Y: -db.X / k2},
			geom.Vec2{X: -da.Y / k2, Y: da.X / k2},
		)}}
	case KindPerpendicular:
		r := r2.Dot(da, db) / k2
		return []term{{r, grads(r2.Scale(1/k2, db), r2.Scale(1/k2, da))}}
	case KindAngle:
		r := geom.NormalizeAngle(signedAngle(da, db) - v)
		return []term{{r, grads(
			geom.Vec2{X: da.Y / (la * la), Y: -da.X / (la * la)},
			geom.Vec2{X: -db.Y / (lb * lb), Y: db.X / (lb * lb)},
		)}}
	case KindEqualLength:
		return []term{{la - lb, grads(r2.Scale(1/la, da), r2.Scale(-1/lb, db))}}
	}
	return nil
}

// signedAngle returns the counter-clockwise angle from a to b in (-pi, pi].
func signedAngle(a, b geom.Vec2) float64 {
	return math.Atan2(r2.Cross(a, b), r2.Dot(a, b))
}

func pointLineDistance(p, l1, l2 geom.Vec2) float64 {
	dir := r2.Sub(l2, l1)
	length := r2.Norm(dir)
	if length < geom.Epsilon {
		return r2.Norm(r2.Sub(p, l1))
	}
	return math.Abs(r2.Cross(dir, r2.Sub(p, l1))) / length
}

func closestOnLine(p, l1, l2 geom.Vec2) geom.Vec2 {
	dir := r2.Sub(l2, l1)
	l2n := r2.Dot(dir, dir)
	if l2n < geom.Epsilon {
		return l1
	}
	return r2.Add(l1, r2.Scale(r2.Dot(r2.Sub(p, l1), dir)/l2n, dir))
}
