package kernel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Registry and conversion tests ---

// stubKernel returns its first operand unchanged.
type stubKernel struct{}

func (stubKernel) Name() string { return "stub" }

func (stubKernel) Boolean(a, _ *geom.Mesh, _ Op) (*geom.Mesh, error) {
	return a.Clone(), nil
}

var _ Kernel = stubKernel{}

func TestRegistry(t *testing.T) {
	Register("stub-test", func() Kernel { return stubKernel{} })
	k, err := New("stub-test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if k.Name() != "stub" {
		t.Errorf("Name() = %q, want stub", k.Name())
	}
	found := false
	for _, n := range Names() {
		if n == "stub-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, missing stub-test", Names())
	}
	if _, err := New("nope"); !errors.Is(err, ErrUnknownKernel) {
		t.Errorf("New(nope) error = %v, want ErrUnknownKernel", err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	Register("dup-test", func() Kernel { return stubKernel{} })
	defer func() {
		if recover() == nil {
			t.Error("second Register did not panic")
		}
	}()
	Register("dup-test", func() Kernel { return stubKernel{} })
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpUnion, "union"},
		{OpSubtract, "subtract"},
		{OpIntersect, "intersect"},
		{Op(9), "op(9)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func cube(s float64) *geom.Mesh {
	p := func(x, y, z float64) geom.Vec3 { return geom.Vec3{X: x * s, Y: y * s, Z: z * s} }
	return &geom.Mesh{Faces: []geom.Face{
		geom.NewFace(p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0)),
		geom.NewFace(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)),
		geom.NewFace(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)),
		geom.NewFace(p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0)),
		geom.NewFace(p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)),
		geom.NewFace(p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1)),
	}}
}

func TestFromGeom(t *testing.T) {
	m := FromGeom(cube(2), "box")
	if m.TriangleCount() != 12 {
		t.Fatalf("TriangleCount() = %d, want 12", m.TriangleCount())
	}
	if len(m.Vertices) != len(m.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(m.Vertices), len(m.Normals))
	}
	if m.PartName != "box" {
		t.Errorf("PartName = %q, want box", m.PartName)
	}
	if v := m.Volume(); math.Abs(v-8) > 1e-5 {
		t.Errorf("Volume() = %v, want 8", v)
	}
	b := m.Bounds()
	if b.Max.X != 2 || b.Min.Z != 0 {
		t.Errorf("Bounds() = %+v", b)
	}
}

func TestMeshAppend(t *testing.T) {
	a := FromGeom(cube(1), "a")
	b := FromGeom(cube(1), "b")
	n := a.VertexCount()
	a.Append(b)
	if a.TriangleCount() != 24 {
		t.Fatalf("TriangleCount() = %d, want 24", a.TriangleCount())
	}
	if a.Indices[36] != uint32(n) {
		t.Errorf("appended index = %d, want %d", a.Indices[36], n)
	}
}

func TestWriteSTL(t *testing.T) {
	m := FromGeom(cube(1), "cube")
	var buf bytes.Buffer
	if err := m.WriteSTL(&buf, 10); err != nil {
		t.Fatalf("WriteSTL() error = %v", err)
	}
	data := buf.Bytes()
	if len(data) != 84+50*12 {
		t.Fatalf("size = %d, want %d", len(data), 84+50*12)
	}
	if !bytes.HasPrefix(data, []byte("cube")) {
		t.Errorf("header = %q", data[:8])
	}
	if n := binary.LittleEndian.Uint32(data[80:84]); n != 12 {
		t.Errorf("triangle count = %d, want 12", n)
	}
	var maxCoord float32
	for i := 0; i < 12; i++ {
		off := 84 + i*50 + 12
		for j := 0; j < 9; j++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[off+j*4:]))
			if v > maxCoord {
				maxCoord = v
			}
		}
	}
	if maxCoord != 10 {
		t.Errorf("max coordinate = %v, want 10", maxCoord)
	}
}
