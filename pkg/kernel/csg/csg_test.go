package csg

import (
	"math"
	"testing"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
)

// box returns an outward-oriented axis-aligned box from lo to hi.
func box(lo, hi geom.Vec3) *geom.Mesh {
	p := func(x, y, z float64) geom.Vec3 {
		return geom.Vec3{X: lo.X + x*(hi.X-lo.X), Y: lo.Y + y*(hi.Y-lo.Y), Z: lo.Z + z*(hi.Z-lo.Z)}
	}
	return &geom.Mesh{Faces: []geom.Face{
		geom.NewFace(p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0)),
		geom.NewFace(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)),
		geom.NewFace(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)),
		geom.NewFace(p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0)),
		geom.NewFace(p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)),
		geom.NewFace(p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1)),
	}}
}

func v(x, y, z float64) geom.Vec3 { return geom.Vec3{X: x, Y: y, Z: z} }

func TestBooleanVolumes(t *testing.T) {
	a := box(v(0, 0, 0), v(10, 10, 10))
	overlapping := box(v(5, 0, 0), v(15, 10, 10))
	disjoint := box(v(20, 0, 0), v(30, 10, 10))
	inner := box(v(2, 2, 2), v(8, 8, 8))

	tests := []struct {
		name string
		b    *geom.Mesh
		op   kernel.Op
		want float64
	}{
		{"union overlapping", overlapping, kernel.OpUnion, 1500},
		{"subtract overlapping", overlapping, kernel.OpSubtract, 500},
		{"intersect overlapping", overlapping, kernel.OpIntersect, 500},
		{"union disjoint", disjoint, kernel.OpUnion, 2000},
		{"subtract disjoint", disjoint, kernel.OpSubtract, 1000},
		{"intersect disjoint", disjoint, kernel.OpIntersect, 0},
		{"subtract inner", inner, kernel.OpSubtract, 1000 - 216},
		{"intersect inner", inner, kernel.OpIntersect, 216},
	}
	k := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := k.Boolean(a, tt.b, tt.op)
			if err != nil {
				t.Fatalf("Boolean() error = %v", err)
			}
			if got := out.Volume(); math.Abs(got-tt.want) > 1e-6*math.Max(1, tt.want) {
				t.Errorf("volume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBooleanLeavesInputsUntouched(t *testing.T) {
	a := box(v(0, 0, 0), v(10, 10, 10))
	b := box(v(5, 5, 5), v(15, 15, 15))
	before := a.Clone()
	if _, err := New().Boolean(a, b, kernel.OpSubtract); err != nil {
		t.Fatal(err)
	}
	if len(a.Faces) != len(before.Faces) || a.Volume() != before.Volume() {
		t.Error("input mesh was modified")
	}
}

func TestBooleanBounds(t *testing.T) {
	a := box(v(0, 0, 0), v(10, 10, 10))
	b := box(v(5, 5, 5), v(15, 15, 15))
	out, err := New().Boolean(a, b, kernel.OpIntersect)
	if err != nil {
		t.Fatal(err)
	}
	bb := out.Bounds()
	if math.Abs(bb.Min.X-5) > 1e-9 || math.Abs(bb.Max.Z-10) > 1e-9 {
		t.Errorf("bounds = %+v, want [5,10]^3", bb)
	}
}

func TestEmptyOperands(t *testing.T) {
	a := box(v(0, 0, 0), v(1, 1, 1))
	empty := &geom.Mesh{}
	k := New()
	if out, _ := k.Boolean(empty, a, kernel.OpUnion); math.Abs(out.Volume()-1) > 1e-9 {
		t.Errorf("empty union volume = %v, want 1", out.Volume())
	}
	if out, _ := k.Boolean(a, empty, kernel.OpSubtract); math.Abs(out.Volume()-1) > 1e-9 {
		t.Errorf("subtract empty volume = %v, want 1", out.Volume())
	}
	if out, _ := k.Boolean(a, empty, kernel.OpIntersect); !out.IsEmpty() {
		t.Error("intersect with empty should be empty")
	}
}

func TestRegistered(t *testing.T) {
	k, err := kernel.New(Name)
	if err != nil {
		t.Fatalf("kernel.New(%q) error = %v", Name, err)
	}
	if k.Name() != Name {
		t.Errorf("Name() = %q, want %q", k.Name(), Name)
	}
}
