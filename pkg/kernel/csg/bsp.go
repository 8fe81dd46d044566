package csg

import (
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// planeEpsilon is the thickness of a splitting plane.
const planeEpsilon = 1e-5

type plane struct {
	normal geom.Vec3
	w      float64
}

func planeFromPoints(a, b, c geom.Vec3) (plane, bool) {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l < geom.Epsilon {
		return plane{}, false
	}
	n = r3.Scale(1/l, n)
	return plane{normal: n, w: r3.Dot(n, a)}, true
}

func (p plane) flip() plane {
	return plane{normal: r3.Scale(-1, p.normal), w: -p.w}
}

// polygon is a convex planar polygon.
type polygon struct {
	verts []geom.Vec3
	plane plane
}

func (p polygon) flip() polygon {
	return polygon{verts: geom.Reverse3(p.verts), plane: p.plane.flip()}
}

const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = front | back
)

// split sorts poly into the four lists relative to p, cutting spanning
// polygons in two.
func (p plane) split(poly polygon, coFront, coBack, fr, bk *[]polygon) {
	kind := coplanar
	types := make([]int, len(poly.verts))
	for i, v := range poly.verts {
		t := r3.Dot(p.normal, v) - p.w
		ty := coplanar
		switch {
		case t < -planeEpsilon:
			ty = back
		case t > planeEpsilon:
			ty = front
		}
		kind |= ty
		types[i] = ty
	}

	switch kind {
	case coplanar:
		if r3.Dot(p.normal, poly.plane.normal) > 0 {
			*coFront = append(*coFront, poly)
		} else {
			*coBack = append(*coBack, poly)
		}
	case front:
		*fr = append(*fr, poly)
	case back:
		*bk = append(*bk, poly)
	case spanning:
		var f, b []geom.Vec3
		n := len(poly.verts)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.verts[i], poly.verts[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				d := r3.Sub(vj, vi)
				t := (p.w - r3.Dot(p.normal, vi)) / r3.Dot(p.normal, d)
				v := r3.Add(vi, r3.Scale(t, d))
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fr = append(*fr, polygon{verts: f, plane: poly.plane})
		}
		if len(b) >= 3 {
			*bk = append(*bk, polygon{verts: b, plane: poly.plane})
		}
	}
}

// node is a BSP tree node. Polygons coplanar with the node's plane are
// stored on the node.
type node struct {
	plane       *plane
	front, back *node
	polys       []polygon
}

func newNode(polys []polygon) *node {
	n := &node{}
	n.build(polys)
	return n
}

// invert turns solid space into empty space and back.
func (n *node) invert() {
	for i := range n.polys {
		n.polys[i] = n.polys[i].flip()
	}
	if n.plane != nil {
		f := n.plane.flip()
		n.plane = &f
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polys inside the tree's solid.
func (n *node) clipPolygons(polys []polygon) []polygon {
	if n.plane == nil {
		return append([]polygon(nil), polys...)
	}
	var fr, bk []polygon
	for _, p := range polys {
		n.plane.split(p, &fr, &bk, &fr, &bk)
	}
	if n.front != nil {
		fr = n.front.clipPolygons(fr)
	}
	if n.back != nil {
		bk = n.back.clipPolygons(bk)
	} else {
		bk = nil
	}
	return append(fr, bk...)
}

// clipTo removes the parts of n's polygons inside other.
func (n *node) clipTo(other *node) {
	n.polys = other.clipPolygons(n.polys)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

func (n *node) allPolygons() []polygon {
	out := append([]polygon(nil), n.polys...)
	if n.front != nil {
		out = append(out, n.front.allPolygons()...)
	}
	if n.back != nil {
		out = append(out, n.back.allPolygons()...)
	}
	return out
}

func (n *node) build(polys []polygon) {
	if len(polys) == 0 {
		return
	}
	if n.plane == nil {
		p := polys[0].plane
		n.plane = &p
	}
	var fr, bk []polygon
	for _, p := range polys {
		n.plane.split(p, &n.polys, &n.polys, &fr, &bk)
	}
	if len(fr) > 0 {
		if n.front == nil {
			n.front = &node{}
		}
		n.front.build(fr)
	}
	if len(bk) > 0 {
		if n.back == nil {
			n.back = &node{}
		}
		n.back.build(bk)
	}
}
