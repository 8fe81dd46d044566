package sketch

import (
	"math"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// ID identifies a point, shape or constraint within a Scene. IDs are
// allocated from a single per-scene counter so they are unique across kinds
// and increase with creation order.
type ID int64

// Point is a shared 2D vertex. Fixed points are never moved by the solver.
type Point struct {
	ID    ID      `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fixed bool    `json:"fixed,omitempty"`
}

// Vec returns the point coordinates.
func (p *Point) Vec() geom.Vec2 { return geom.Vec2{X: p.X, Y: p.Y} }

// Style carries display attributes. The solver and feature tree ignore it.
type Style struct {
	Layer    string `json:"layer,omitempty"`
	Color    string `json:"color,omitempty"`
	Visible  bool   `json:"visible"`
	Selected bool   `json:"selected,omitempty"`
}

// ConstructionType controls how a construction segment extends past its
// endpoints when drawn and hit-tested.
type ConstructionType int

const (
	ConstructionFinite        ConstructionType = iota // plain segment
	ConstructionInfiniteStart                         // ray extending past P1
	ConstructionInfiniteEnd                           // ray extending past P2
	ConstructionInfiniteBoth                          // infinite line
)

var constructionTypeNames = [...]string{"finite", "infinite-start", "infinite-end", "infinite-both"}

func (c ConstructionType) String() string {
	if c >= 0 && int(c) < len(constructionTypeNames) {
		return constructionTypeNames[c]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (c ConstructionType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ConstructionType) UnmarshalText(b []byte) error {
	for i, n := range constructionTypeNames {
		if n == string(b) {
			*c = ConstructionType(i)
			return nil
		}
	}
	*c = ConstructionFinite
	return nil
}

// Shape is any primitive other than a bare Point.
type Shape interface {
	// ShapeID returns the primitive's ID.
	ShapeID() ID
	// PointRefs returns the IDs of points the shape references.
	PointRefs() []ID

	distanceTo(s *Scene, q geom.Vec2) float64
	rewire(from, to ID)
}

// Segment is a line segment between two shared points.
type Segment struct {
	ID               ID               `json:"id"`
	P1               ID               `json:"p1"`
	P2               ID               `json:"p2"`
	Construction     bool             `json:"construction,omitempty"`
	ConstructionDash string           `json:"constructionDash,omitempty"`
	ConstructionType ConstructionType `json:"constructionType"`
	Style
}

func (g *Segment) ShapeID() ID     { return g.ID }
func (g *Segment) PointRefs() []ID { return []ID{g.P1, g.P2} }

func (g *Segment) rewire(from, to ID) {
	if g.P1 == from {
		g.P1 = to
	}
	if g.P2 == from {
		g.P2 = to
	}
}

func (g *Segment) distanceTo(s *Scene, q geom.Vec2) float64 {
	a, b, ok := s.segmentEnds(g)
	if !ok {
		return math.Inf(1)
	}
	d := r2.Sub(b, a)
	l2 := r2.Dot(d, d)
	if l2 < geom.Epsilon {
		return r2.Norm(r2.Sub(q, a))
	}
	t := r2.Dot(r2.Sub(q, a), d) / l2
	lo, hi := 0.0, 1.0
	if g.Construction {
		switch g.ConstructionType {
		case ConstructionInfiniteStart:
			lo = math.Inf(-1)
		case ConstructionInfiniteEnd:
			hi = math.Inf(1)
		case ConstructionInfiniteBoth:
			lo, hi = math.Inf(-1), math.Inf(1)
		}
	}
	t = math.Max(lo, math.Min(hi, t))
	return r2.Norm(r2.Sub(q, r2.Add(a, r2.Scale(t, d))))
}

// Circle is a full circle around a shared center point.
type Circle struct {
	ID               ID      `json:"id"`
	Center           ID      `json:"center"`
	Radius           float64 `json:"radius"`
	Construction     bool    `json:"construction,omitempty"`
	ConstructionDash string  `json:"constructionDash,omitempty"`
	Style
}

func (c *Circle) ShapeID() ID     { return c.ID }
func (c *Circle) PointRefs() []ID { return []ID{c.Center} }

func (c *Circle) rewire(from, to ID) {
	if c.Center == from {
		c.Center = to
	}
}

func (c *Circle) distanceTo(s *Scene, q geom.Vec2) float64 {
	ctr, ok := s.Point(c.Center)
	if !ok {
		return math.Inf(1)
	}
	return math.Abs(r2.Norm(r2.Sub(q, ctr.Vec())) - c.Radius)
}

// Arc is a counter-clockwise circular arc from StartAngle to EndAngle
// (radians) around a shared center point.
type Arc struct {
	ID           ID      `json:"id"`
	Center       ID      `json:"center"`
	Radius       float64 `json:"radius"`
	StartAngle   float64 `json:"startAngle"`
	EndAngle     float64 `json:"endAngle"`
	Construction bool    `json:"construction,omitempty"`
	Style
}

func (a *Arc) ShapeID() ID     { return a.ID }
func (a *Arc) PointRefs() []ID { return []ID{a.Center} }

func (a *Arc) rewire(from, to ID) {
	if a.Center == from {
		a.Center = to
	}
}

// Sweep returns the counter-clockwise sweep (end - start) mod 2pi, in
// [0, 2pi).
func (a *Arc) Sweep() float64 {
	s := math.Mod(a.EndAngle-a.StartAngle, 2*math.Pi)
	if s < 0 {
		s += 2 * math.Pi
	}
	return s
}

// hitSweep is the sweep used for hit-testing: a zero sweep is a full turn.
func (a *Arc) hitSweep() float64 {
	s := a.Sweep()
	if s < 1e-12 {
		return 2 * math.Pi
	}
	return s
}

// ContainsAngle reports whether the direction theta lies on the arc. A zero
// sweep is treated as a full circle.
func (a *Arc) ContainsAngle(theta float64) bool {
	d := math.Mod(theta-a.StartAngle, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d <= a.hitSweep()+1e-12
}

// Endpoints returns the arc's start and end positions given its center.
func (a *Arc) Endpoints(center geom.Vec2) (start, end geom.Vec2) {
	start = r2.Add(center, geom.Vec2{X: a.Radius * math.Cos(a.StartAngle), Y: a.Radius * math.Sin(a.StartAngle)})
	end = r2.Add(center, geom.Vec2{X: a.Radius * math.Cos(a.EndAngle), Y: a.Radius * math.Sin(a.EndAngle)})
	return start, end
}

func (a *Arc) distanceTo(s *Scene, q geom.Vec2) float64 {
	ctr, ok := s.Point(a.Center)
	if !ok {
		return math.Inf(1)
	}
	c := ctr.Vec()
	d := r2.Sub(q, c)
	if a.ContainsAngle(math.Atan2(d.Y, d.X)) {
		return math.Abs(r2.Norm(d) - a.Radius)
	}
	start, end := a.Endpoints(c)
	return math.Min(r2.Norm(r2.Sub(q, start)), r2.Norm(r2.Sub(q, end)))
}

// Text is a positional annotation, ignored by the solver and feature tree.
type Text struct {
	ID      ID      `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"content"`
	Height  float64 `json:"height,omitempty"`
	Style
}

func (t *Text) ShapeID() ID        { return t.ID }
func (t *Text) PointRefs() []ID    { return nil }
func (t *Text) rewire(from, to ID) {}

func (t *Text) distanceTo(_ *Scene, q geom.Vec2) float64 {
	return math.Hypot(q.X-t.X, q.Y-t.Y)
}
