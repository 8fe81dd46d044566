// Package sdfx implements kernel.Kernel on top of the
// github.com/deadsy/sdfx SDF library. Each operand mesh is wrapped as a
// signed distance field, the fields are combined with sdfx's boolean
// operators and the result is re-meshed with marching cubes. Output is
// approximate: flat faces are kept within one cell but sharp edges are
// rounded to the grid resolution.
package sdfx

import (
	"fmt"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Name is the registry name of the kernel.
const Name = "sdfx"

// DefaultMeshCells controls marching cubes resolution along the longest
// axis of the result.
const DefaultMeshCells = 64

func init() {
	kernel.Register(Name, func() kernel.Kernel { return New() })
}

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Name implements kernel.Kernel.
func (k *SdfxKernel) Name() string { return Name }

// Boolean implements kernel.Kernel.
func (k *SdfxKernel) Boolean(a, b *geom.Mesh, op kernel.Op) (*geom.Mesh, error) {
	if a.IsEmpty() || b.IsEmpty() {
		switch {
		case op == kernel.OpUnion && a.IsEmpty():
			return b.Clone(), nil
		case op == kernel.OpUnion, op == kernel.OpSubtract && !a.IsEmpty():
			return a.Clone(), nil
		}
		return &geom.Mesh{}, nil
	}

	sa, sb := newMeshSDF(a), newMeshSDF(b)
	var s sdf.SDF3
	switch op {
	case kernel.OpUnion:
		s = sdf.Union3D(sa, sb)
	case kernel.OpSubtract:
		s = sdf.Difference3D(sa, sb)
	case kernel.OpIntersect:
		s = sdf.Intersect3D(sa, sb)
		if !overlaps(sa.bb, sb.bb) {
			return &geom.Mesh{}, nil
		}
	default:
		return nil, fmt.Errorf("sdfx: unsupported boolean %s", op)
	}
	return k.toMesh(s), nil
}

// toMesh converts a field to a face mesh using marching cubes.
func (k *SdfxKernel) toMesh(s sdf.SDF3) *geom.Mesh {
	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(s, renderer)

	out := &geom.Mesh{Faces: make([]geom.Face, 0, len(triangles))}
	for _, tri := range triangles {
		var vs [3]geom.Vec3
		for j := 0; j < 3; j++ {
			v := tri[j]
			vs[j] = geom.Vec3{X: v.X, Y: v.Y, Z: v.Z}
		}
		f := geom.Face{Vertices: vs[:], Normal: geom.Normal(vs[0], vs[1], vs[2])}
		out.Faces = append(out.Faces, f)
		out.Vertices = append(out.Vertices, vs[:]...)
	}
	out.Orient()
	return out
}

func overlaps(a, b sdf.Box3) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

func toV3(v geom.Vec3) v3.Vec { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
