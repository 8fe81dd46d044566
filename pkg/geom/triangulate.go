package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Triangulate splits the face into triangles with the same winding. Convex
// and concave simple polygons are handled by ear clipping in the face's
// dominant projection plane; if clipping stalls the remainder is fanned.
func (f Face) Triangulate() [][3]Vec3 {
	n := len(f.Vertices)
	switch {
	case n < 3:
		return nil
	case n == 3:
		return [][3]Vec3{{f.Vertices[0], f.Vertices[1], f.Vertices[2]}}
	}

	normal := f.Normal
	if normal == (Vec3{}) {
		normal = PolygonNormal(f.Vertices)
	}
	pts := project(f.Vertices, normal)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	tris := make([][3]Vec3, 0, n-2)
	emit := func(a, b, c int) {
		tris = append(tris, [3]Vec3{f.Vertices[a], f.Vertices[b], f.Vertices[c]})
	}

	for guard := 0; len(idx) > 3 && guard < n*n; guard++ {
		clipped := false
		for i := range idx {
			a := idx[(i+len(idx)-1)%len(idx)]
			b := idx[i]
			c := idx[(i+1)%len(idx)]
			if !isEar(pts, idx, a, b, c) {
				continue
			}
			emit(a, b, c)
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}
	for i := 1; i+1 < len(idx); i++ {
		emit(idx[0], idx[i], idx[i+1])
	}
	return tris
}

// project maps the polygon to 2D so that it winds counter-clockwise when
// seen from the side normal points to.
func project(vs []Vec3, normal Vec3) []Vec2 {
	ax, ay, az := math.Abs(normal.X), math.Abs(normal.Y), math.Abs(normal.Z)
	out := make([]Vec2, len(vs))
	for i, v := range vs {
		switch {
		case az >= ax && az >= ay:
			out[i] = Vec2{X: v.X, Y: v.Y}
			if normal.Z < 0 {
				out[i].X = -out[i].X
			}
		case ax >= ay:
			out[i] = Vec2{X: v.Y, Y: v.Z}
			if normal.X < 0 {
				out[i].X = -out[i].X
			}
		default:
			out[i] = Vec2{X: v.Z, Y: v.X}
			if normal.Y < 0 {
				out[i].X = -out[i].X
			}
		}
	}
	return out
}

func isEar(pts []Vec2, idx []int, a, b, c int) bool {
	pa, pb, pc := pts[a], pts[b], pts[c]
	if r2.Cross(r2.Sub(pb, pa), r2.Sub(pc, pb)) <= Epsilon {
		return false
	}
	for _, j := range idx {
		if j == a || j == b || j == c {
			continue
		}
		if pts[j] == pa || pts[j] == pb || pts[j] == pc {
			continue
		}
		if inTriangle(pts[j], pa, pb, pc) {
			return false
		}
	}
	return true
}

func inTriangle(p, a, b, c Vec2) bool {
	d1 := r2.Cross(r2.Sub(b, a), r2.Sub(p, a))
	d2 := r2.Cross(r2.Sub(c, b), r2.Sub(p, b))
	d3 := r2.Cross(r2.Sub(a, c), r2.Sub(p, c))
	return d1 >= 0 && d2 >= 0 && d3 >= 0
}
