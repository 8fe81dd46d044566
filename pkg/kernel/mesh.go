package kernel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // part or assembly component it came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// FromGeom flattens a face mesh into render buffers. Every triangle gets
// its own three vertices so that normals stay flat per face.
func FromGeom(g *geom.Mesh, name string) *Mesh {
	tris := g.Triangles()
	m := &Mesh{
		Vertices: make([]float32, 0, len(tris)*9),
		Normals:  make([]float32, 0, len(tris)*9),
		Indices:  make([]uint32, 0, len(tris)*3),
		PartName: name,
	}
	for i, tri := range tris {
		n := geom.Normal(tri[0], tri[1], tri[2])
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m
}

// Append merges other into m, offsetting its indices.
func (m *Mesh) Append(other *Mesh) {
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, other.Vertices...)
	m.Normals = append(m.Normals, other.Normals...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() geom.Box {
	b := geom.EmptyBox()
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		b.Extend(geom.Vec3{X: float64(m.Vertices[i]), Y: float64(m.Vertices[i+1]), Z: float64(m.Vertices[i+2])})
	}
	return b
}

func (m *Mesh) vertex(i uint32) [3]float32 {
	return [3]float32{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]}
}

// WriteSTL writes the mesh as binary STL: an 80-byte header, a triangle
// count and 50 bytes per triangle. scale multiplies every coordinate, so
// callers can convert units on export.
func (m *Mesh) WriteSTL(w io.Writer, scale float64) error {
	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], m.PartName)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.TriangleCount())); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}
	s := float32(scale)
	for t := 0; t < m.TriangleCount(); t++ {
		var rec struct {
			Normal [3]float32
			V      [3][3]float32
			Attr   uint16
		}
		for j := 0; j < 3; j++ {
			v := m.vertex(m.Indices[t*3+j])
			rec.V[j] = [3]float32{v[0] * s, v[1] * s, v[2] * s}
		}
		n := geom.Normal(toVec(rec.V[0]), toVec(rec.V[1]), toVec(rec.V[2]))
		rec.Normal = [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", t, err)
		}
	}
	return bw.Flush()
}

func toVec(v [3]float32) geom.Vec3 {
	return geom.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// Volume returns the signed enclosed volume of the render mesh.
func (m *Mesh) Volume() float64 {
	var v float64
	for t := 0; t < m.TriangleCount(); t++ {
		a := toVec(m.vertex(m.Indices[t*3]))
		b := toVec(m.vertex(m.Indices[t*3+1]))
		c := toVec(m.vertex(m.Indices[t*3+2]))
		v += r3.Dot(a, r3.Cross(b, c))
	}
	if math.IsNaN(v) {
		return 0
	}
	return v / 6
}
