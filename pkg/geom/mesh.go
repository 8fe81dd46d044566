package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a planar polygon. Vertex order determines orientation; Normal
// points out of the solid for generated geometry.
type Face struct {
	Vertices []Vec3
	Normal   Vec3
}

// NewFace builds a face and derives its normal from the vertex order.
func NewFace(vertices ...Vec3) Face {
	return Face{Vertices: vertices, Normal: PolygonNormal(vertices)}
}

// Flip reverses the winding and the normal.
func (f Face) Flip() Face {
	return Face{Vertices: Reverse3(f.Vertices), Normal: r3.Scale(-1, f.Normal)}
}

// Area returns the area of the (planar) face.
func (f Face) Area() float64 {
	var sum Vec3
	for i := range f.Vertices {
		sum = r3.Add(sum, r3.Cross(f.Vertices[i], f.Vertices[(i+1)%len(f.Vertices)]))
	}
	return 0.5 * r3.Norm(sum)
}

// Edge is a mesh edge between two world points.
type Edge struct {
	A, B Vec3
}

// Mesh is a face-list solid. No topological adjacency is kept; Vertices
// records the generated vertex rings for consumers that need point clouds.
type Mesh struct {
	Vertices []Vec3
	Faces    []Face
	Edges    []Edge
}

// IsEmpty reports whether the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Faces) == 0
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices: append([]Vec3(nil), m.Vertices...),
		Edges:    append([]Edge(nil), m.Edges...),
		Faces:    make([]Face, len(m.Faces)),
	}
	for i, f := range m.Faces {
		out.Faces[i] = Face{Vertices: append([]Vec3(nil), f.Vertices...), Normal: f.Normal}
	}
	return out
}

// Append adds all faces, vertices and edges of other to m.
func (m *Mesh) Append(other *Mesh) {
	if other == nil {
		return
	}
	m.Vertices = append(m.Vertices, other.Vertices...)
	m.Faces = append(m.Faces, other.Faces...)
	m.Edges = append(m.Edges, other.Edges...)
}

// Triangles triangulates every face.
func (m *Mesh) Triangles() [][3]Vec3 {
	if m == nil {
		return nil
	}
	var tris [][3]Vec3
	for _, f := range m.Faces {
		tris = append(tris, f.Triangulate()...)
	}
	return tris
}

// Volume returns the signed enclosed volume by the divergence theorem,
// summing the signed tetrahedra formed by the origin and each triangle.
// Outward-oriented closed meshes give a positive volume.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, t := range m.Triangles() {
		v += r3.Dot(t[0], r3.Cross(t[1], t[2]))
	}
	return v / 6
}

// CenterOfMass returns the centroid of the enclosed volume, assuming uniform
// density. Meshes with zero volume report the bounding box centre.
func (m *Mesh) CenterOfMass() Vec3 {
	var total float64
	var c Vec3
	for _, t := range m.Triangles() {
		vol := r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
		centroid := r3.Scale(0.25, r3.Add(t[0], r3.Add(t[1], t[2])))
		c = r3.Add(c, r3.Scale(vol, centroid))
		total += vol
	}
	if total*total < 1e-18 {
		return m.Bounds().Center()
	}
	return r3.Scale(1/total, c)
}

// SurfaceArea returns the sum of face areas.
func (m *Mesh) SurfaceArea() float64 {
	var a float64
	for _, f := range m.Faces {
		a += f.Area()
	}
	return a
}

// Bounds returns the axis-aligned bounding box of all face vertices.
func (m *Mesh) Bounds() Box {
	b := EmptyBox()
	if m == nil {
		return b
	}
	for _, f := range m.Faces {
		for _, v := range f.Vertices {
			b.Extend(v)
		}
	}
	return b
}

// Flip reverses every face in place.
func (m *Mesh) Flip() {
	for i, f := range m.Faces {
		m.Faces[i] = f.Flip()
	}
}

// Orient flips the mesh when its signed volume is negative so that face
// normals point outward.
func (m *Mesh) Orient() {
	if m.Volume() < 0 {
		m.Flip()
	}
}

// Transformed returns a copy of m with t applied to every point and normal.
func (m *Mesh) Transformed(t Transform) *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices: make([]Vec3, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
		Edges:    make([]Edge, len(m.Edges)),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = t.Apply(v)
	}
	for i, f := range m.Faces {
		vs := make([]Vec3, len(f.Vertices))
		for j, v := range f.Vertices {
			vs[j] = t.Apply(v)
		}
		out.Faces[i] = Face{Vertices: vs, Normal: Unit(t.ApplyDirection(f.Normal), DefaultNormal)}
	}
	for i, e := range m.Edges {
		out.Edges[i] = Edge{A: t.Apply(e.A), B: t.Apply(e.B)}
	}
	return out
}
