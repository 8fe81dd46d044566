// Package csg implements kernel.Kernel with binary space partitioning
// trees over the meshes' polygons. Results are exact up to the plane
// thickness but may contain T-junctions; they are valid for volume,
// bounds and rendering.
package csg

import (
	"fmt"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
)

// Name is the registry name of the kernel.
const Name = "csg"

func init() {
	kernel.Register(Name, func() kernel.Kernel { return New() })
}

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// Kernel is the BSP boolean kernel. The zero value is ready to use.
type Kernel struct{}

// New returns a new BSP kernel.
func New() *Kernel {
	return &Kernel{}
}

// Name implements kernel.Kernel.
func (k *Kernel) Name() string { return Name }

// Boolean implements kernel.Kernel.
func (k *Kernel) Boolean(a, b *geom.Mesh, op kernel.Op) (*geom.Mesh, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return emptyCase(a, b, op), nil
	}
	na := newNode(toPolygons(a))
	nb := newNode(toPolygons(b))

	switch op {
	case kernel.OpUnion:
		na.clipTo(nb)
		nb.clipTo(na)
		nb.invert()
		nb.clipTo(na)
		nb.invert()
		na.build(nb.allPolygons())
	case kernel.OpSubtract:
		na.invert()
		na.clipTo(nb)
		nb.clipTo(na)
		nb.invert()
		nb.clipTo(na)
		nb.invert()
		na.build(nb.allPolygons())
		na.invert()
	case kernel.OpIntersect:
		na.invert()
		nb.clipTo(na)
		nb.invert()
		na.clipTo(nb)
		nb.clipTo(na)
		na.build(nb.allPolygons())
		na.invert()
	default:
		return nil, fmt.Errorf("csg: unsupported boolean %s", op)
	}
	return fromPolygons(na.allPolygons()), nil
}

func emptyCase(a, b *geom.Mesh, op kernel.Op) *geom.Mesh {
	switch op {
	case kernel.OpUnion:
		if a.IsEmpty() {
			return b.Clone()
		}
		return a.Clone()
	case kernel.OpSubtract:
		if a.IsEmpty() {
			return &geom.Mesh{}
		}
		return a.Clone()
	}
	return &geom.Mesh{}
}

func toPolygons(m *geom.Mesh) []polygon {
	var out []polygon
	for _, f := range m.Faces {
		for _, tri := range f.Triangulate() {
			pl, ok := planeFromPoints(tri[0], tri[1], tri[2])
			if !ok {
				continue
			}
			out = append(out, polygon{verts: []geom.Vec3{tri[0], tri[1], tri[2]}, plane: pl})
		}
	}
	return out
}

func fromPolygons(polys []polygon) *geom.Mesh {
	m := &geom.Mesh{Faces: make([]geom.Face, 0, len(polys))}
	for _, p := range polys {
		m.Faces = append(m.Faces, geom.Face{Vertices: p.verts, Normal: p.plane.normal})
		m.Vertices = append(m.Vertices, p.verts...)
	}
	return m
}
