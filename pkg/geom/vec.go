package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec2 is a point or direction in sketch space.
type Vec2 = r2.Vec

// Vec3 is a point or direction in world space.
type Vec3 = r3.Vec

// Epsilon is the geometric tolerance used for degenerate-length checks.
const Epsilon = 1e-9

// DefaultNormal is used wherever a normal collapses to zero length.
var DefaultNormal = Vec3{X: 0, Y: 0, Z: 1}

// Unit returns v scaled to unit length, or fallback when v is (near) zero.
func Unit(v, fallback Vec3) Vec3 {
	n := r3.Norm(v)
	if n < Epsilon || math.IsNaN(n) {
		return fallback
	}
	return r3.Scale(1/n, v)
}

// Unit2 returns v scaled to unit length, or the zero vector when v is zero.
func Unit2(v Vec2) Vec2 {
	n := r2.Norm(v)
	if n < Epsilon {
		return Vec2{}
	}
	return r2.Scale(1/n, v)
}

// Normal returns the unit normal of the triangle (a, b, c) using the
// right-hand rule, falling back to DefaultNormal for degenerate triangles.
func Normal(a, b, c Vec3) Vec3 {
	return Unit(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)), DefaultNormal)
}

// PolygonNormal computes the unit normal of a planar polygon with Newell's
// method. Degenerate polygons get DefaultNormal.
func PolygonNormal(pts []Vec3) Vec3 {
	var n Vec3
	for i := range pts {
		cur := pts[i]
		next := pts[(i+1)%len(pts)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return Unit(n, DefaultNormal)
}

// SignedArea returns the signed area of a closed 2D polygon. Positive area
// means counter-clockwise winding (x right, y up).
func SignedArea(pts []Vec2) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// Reverse2 returns a reversed copy of pts.
func Reverse2(pts []Vec2) []Vec2 {
	out := make([]Vec2, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// Reverse3 returns a reversed copy of pts.
func Reverse3(pts []Vec3) []Vec3 {
	out := make([]Vec3, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// NormalizeAngle wraps a in radians into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// EmptyBox returns an inverted box that any Extend call will overwrite.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: Vec3{X: inf, Y: inf, Z: inf},
		Max: Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Extend grows the box to contain p.
func (b *Box) Extend(p Vec3) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// IsEmpty reports whether no point has been added to the box.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X
}

// Size returns the extents of the box along each axis.
func (b Box) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return r3.Sub(b.Max, b.Min)
}

// Center returns the midpoint of the box.
func (b Box) Center() Vec3 {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}
