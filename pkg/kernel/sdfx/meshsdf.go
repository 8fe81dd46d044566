package sdfx

import (
	"math"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// meshSDF is the signed distance field of a closed triangle mesh: the
// distance to the nearest triangle, negative where the generalized winding
// number says the point is inside.
type meshSDF struct {
	tris [][3]geom.Vec3
	bb   sdf.Box3
}

// Compile-time interface check.
var _ sdf.SDF3 = (*meshSDF)(nil)

func newMeshSDF(m *geom.Mesh) *meshSDF {
	b := m.Bounds()
	pad := 1e-3 * math.Max(1, r3.Norm(b.Size()))
	return &meshSDF{
		tris: m.Triangles(),
		bb: sdf.Box3{
			Min: toV3(r3.Sub(b.Min, geom.Vec3{X: pad, Y: pad, Z: pad})),
			Max: toV3(r3.Add(b.Max, geom.Vec3{X: pad, Y: pad, Z: pad})),
		},
	}
}

// Evaluate implements sdf.SDF3.
func (m *meshSDF) Evaluate(p v3.Vec) float64 {
	q := geom.Vec3{X: p.X, Y: p.Y, Z: p.Z}
	d := math.Inf(1)
	var solid float64
	for _, t := range m.tris {
		d = math.Min(d, r3.Norm(r3.Sub(q, closestOnTriangle(q, t[0], t[1], t[2]))))
		solid += solidAngle(q, t[0], t[1], t[2])
	}
	if solid/(4*math.Pi) > 0.5 {
		return -d
	}
	return d
}

// BoundingBox implements sdf.SDF3.
func (m *meshSDF) BoundingBox() sdf.Box3 { return m.bb }

// solidAngle is the signed solid angle triangle abc subtends at p.
func solidAngle(p, a, b, c geom.Vec3) float64 {
	a, b, c = r3.Sub(a, p), r3.Sub(b, p), r3.Sub(c, p)
	la, lb, lc := r3.Norm(a), r3.Norm(b), r3.Norm(c)
	num := r3.Dot(a, r3.Cross(b, c))
	den := la*lb*lc + r3.Dot(a, b)*lc + r3.Dot(a, c)*lb + r3.Dot(b, c)*la
	return 2 * math.Atan2(num, den)
}

// closestOnTriangle returns the point of triangle abc nearest p.
func closestOnTriangle(p, a, b, c geom.Vec3) geom.Vec3 {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return r3.Add(b, r3.Scale((d4-d3)/((d4-d3)+(d5-d6)), r3.Sub(c, b)))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
